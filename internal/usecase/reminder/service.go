// Package reminder orchestrates one full reminder cycle: walk every tracked
// (repository, kind) unit, classify staleness, aggregate per recipient and
// deliver the bundles.
package reminder

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skors/reminder-engine/internal/classify"
	"github.com/skors/reminder-engine/internal/domains"
	"github.com/skors/reminder-engine/internal/lib/backoff"
	"github.com/skors/reminder-engine/internal/usecase"
)

// Walker fetches every open item of one (repository, kind) unit.
type Walker interface {
	Walk(ctx context.Context, repo string, kind domains.ItemKind, threshold time.Duration, now time.Time) ([]domains.TrackedItem, error)
}

// Deliverer sends one bundle to one recipient.
type Deliverer interface {
	Deliver(ctx context.Context, bundle *domains.ReminderBundle) domains.DeliveryOutcome
}

type Config struct {
	Repositories []string
	Thresholds   classify.Thresholds
	// MaxParallelWalks caps concurrent pagination walks; walks of distinct
	// units touch disjoint data and are safe to run together.
	MaxParallelWalks int
}

type Service struct {
	log       *slog.Logger
	cfg       Config
	walker    Walker
	deliverer Deliverer
	now       func() time.Time
	running   atomic.Bool
}

func New(log *slog.Logger, cfg Config, walker Walker, deliverer Deliverer) *Service {
	if cfg.MaxParallelWalks <= 0 {
		cfg.MaxParallelWalks = 4
	}
	return &Service{
		log:       log,
		cfg:       cfg,
		walker:    walker,
		deliverer: deliverer,
		now:       time.Now,
	}
}

// RunCycle executes one fetch-classify-aggregate-deliver run. Unit failures
// are isolated: a repository whose pagination exhausts its retries is
// reported in the cycle errors while every other unit proceeds. Terminal
// authentication failures abort the whole cycle since no unit can succeed
// without credentials. Only one cycle runs at a time.
func (s *Service) RunCycle(ctx context.Context) (*domains.CycleReport, error) {
	const op = "usecase.reminder.RunCycle"

	if !s.running.CompareAndSwap(false, true) {
		return nil, usecase.ErrCycleInProgress
	}
	defer s.running.Store(false)

	started := s.now()
	s.log.Info("reminder cycle started", slog.Int("repositories", len(s.cfg.Repositories)))

	items, unitErrors, err := s.collect(ctx, started)
	if err != nil {
		s.log.Error("reminder cycle aborted", slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	bundles := classify.Aggregate(items, s.cfg.Thresholds, started)

	report := &domains.CycleReport{
		UsersProcessed: len(bundles),
		Errors:         unitErrors,
	}

	// Deliveries stay sequential: the direct-send pacing is global to the
	// mediator, so parallelism would buy nothing here.
	for _, recipient := range sortedRecipients(bundles) {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		outcome := s.deliverer.Deliver(ctx, bundles[recipient])
		report.DeliveryStats.Record(outcome)
	}

	s.log.Info("reminder cycle finished",
		slog.Int("users_processed", report.UsersProcessed),
		slog.Int("direct_success", report.DeliveryStats.DirectSuccess),
		slog.Int("direct_failed", report.DeliveryStats.DirectFailed),
		slog.Int("no_mapping", report.DeliveryStats.NoMapping),
		slog.Duration("elapsed", s.now().Sub(started)))
	return report, nil
}

// collect walks all (repository, kind) units concurrently and gathers their
// items. The returned error is non-nil only for cycle-fatal conditions.
func (s *Service) collect(ctx context.Context, now time.Time) ([]domains.TrackedItem, []string, error) {
	const op = "usecase.reminder.collect"

	type unit struct {
		repo string
		kind domains.ItemKind
	}

	var units []unit
	for _, repo := range s.cfg.Repositories {
		units = append(units, unit{repo, domains.KindIssue}, unit{repo, domains.KindPullRequest})
	}

	var mu sync.Mutex
	var items []domains.TrackedItem
	var unitErrors []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxParallelWalks)

	for _, u := range units {
		u := u
		g.Go(func() error {
			walked, err := s.walker.Walk(gctx, u.repo, u.kind, s.cfg.Thresholds.For(u.kind), now)
			if err != nil {
				if errors.Is(err, backoff.ErrUnauthorized) || gctx.Err() != nil {
					return err
				}
				s.log.Warn("unit walk failed, continuing cycle",
					slog.String("op", op),
					slog.String("repo", u.repo),
					slog.String("kind", string(u.kind)),
					slog.String("err", err.Error()))
				mu.Lock()
				unitErrors = append(unitErrors, err.Error())
				mu.Unlock()
				return nil
			}

			mu.Lock()
			items = append(items, walked...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	sort.Strings(unitErrors)
	return items, unitErrors, nil
}

func sortedRecipients(bundles map[string]*domains.ReminderBundle) []string {
	recipients := make([]string, 0, len(bundles))
	for recipient := range bundles {
		recipients = append(recipients, recipient)
	}
	sort.Strings(recipients)
	return recipients
}
