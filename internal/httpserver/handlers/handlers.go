package handlers

const (
	NotFound       = "NOT_FOUND"
	InternalError  = "INTERNAL_ERROR"
	InvalidRequest = "INVALID_REQUEST"
	CycleRunning   = "CYCLE_RUNNING"
	TrackerAuth    = "TRACKER_AUTH_FAILED"
)
