// Package scheduler triggers the weekly reminder cycle.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/skors/reminder-engine/internal/domains"
)

// CycleRunner runs one reminder cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*domains.CycleReport, error)
}

// JobStats accumulates results across scheduled runs.
type JobStats struct {
	LastRun            time.Time `json:"last_run"`
	TotalRuns          int       `json:"total_runs"`
	TotalUsersReminded int       `json:"total_users_reminded"`
	DirectSuccess      int       `json:"direct_success"`
	DirectFailed       int       `json:"direct_failed"`
	ChannelSent        int       `json:"channel_sent"`
}

// Scheduler runs one reminder cycle every Saturday at 00:00 UTC. Failures
// are logged and the next run is scheduled regardless.
type Scheduler struct {
	log    *slog.Logger
	runner CycleRunner
	now    func() time.Time

	mu    sync.Mutex
	stats JobStats
}

func New(log *slog.Logger, runner CycleRunner) *Scheduler {
	return &Scheduler{log: log, runner: runner, now: time.Now}
}

// Run blocks until ctx is cancelled, firing the cycle at each scheduled
// instant.
func (s *Scheduler) Run(ctx context.Context) {
	const op = "scheduler.Scheduler.Run"

	for {
		next := nextRun(s.now())
		s.log.Info("next scheduled reminder cycle", slog.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("scheduler stopped", slog.String("op", op))
			return
		case <-timer.C:
		}

		report, err := s.runner.RunCycle(ctx)
		if err != nil {
			s.log.Error("scheduled reminder cycle failed",
				slog.String("op", op),
				slog.String("err", err.Error()))
			continue
		}
		s.record(report)
	}
}

func (s *Scheduler) record(report *domains.CycleReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.LastRun = s.now()
	s.stats.TotalRuns++
	s.stats.TotalUsersReminded += report.UsersProcessed
	s.stats.DirectSuccess += report.DeliveryStats.DirectSuccess
	s.stats.DirectFailed += report.DeliveryStats.DirectFailed
	s.stats.ChannelSent += report.DeliveryStats.ChannelSent
}

func (s *Scheduler) Stats() JobStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stats
}

// NextRun exposes the upcoming scheduled instant.
func (s *Scheduler) NextRun() time.Time {
	return nextRun(s.now())
}

// nextRun returns the first Saturday 00:00 UTC strictly after now.
func nextRun(now time.Time) time.Time {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	days := (int(time.Saturday) - int(now.Weekday()) + 7) % 7
	next := midnight.AddDate(0, 0, days)
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}
