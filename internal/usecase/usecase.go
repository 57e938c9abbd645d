package usecase

import "errors"

var (
	ErrCycleInProgress = errors.New("reminder cycle already running")
)
