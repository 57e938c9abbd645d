package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/skors/reminder-engine/internal/domains"
	"github.com/skors/reminder-engine/internal/lib/backoff"
)

// Walker accumulates every open item of one (repository, kind) unit, paging
// through the tracker until the remote reports no next page or the early-exit
// heuristic fires.
type Walker struct {
	log      *slog.Logger
	fetcher  PageFetcher
	pageSize int
	retry    backoff.Config
}

func NewWalker(log *slog.Logger, fetcher PageFetcher, pageSize int, retry backoff.Config) *Walker {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return &Walker{log: log, fetcher: fetcher, pageSize: pageSize, retry: retry}
}

// Walk fetches pages for one repository and kind, each page going through the
// backoff executor. Pages arrive ordered newest-updated-first, so once the
// oldest item of a page was updated within twice the staleness threshold no
// later page can contain a stale item and the walk stops early. A page fetch
// that exhausts its retries fails the whole unit.
func (w *Walker) Walk(ctx context.Context, repo string, kind domains.ItemKind, threshold time.Duration, now time.Time) ([]domains.TrackedItem, error) {
	const op = "tracker.Walker.Walk"

	var items []domains.TrackedItem
	cursor := ""

	for {
		cur := cursor
		page, err := backoff.Do(ctx, w.retry, func(ctx context.Context) (Page, error) {
			return w.fetcher.FetchPage(ctx, repo, kind, cur, w.pageSize)
		})
		if err != nil {
			w.log.Error("page fetch failed",
				slog.String("op", op),
				slog.String("repo", repo),
				slog.String("kind", string(kind)),
				slog.String("err", err.Error()))
			return nil, fmt.Errorf("fetch %s %s page: %w", repo, kind, err)
		}

		items = append(items, page.Items...)

		if !page.HasMore {
			break
		}
		if pageIsFresh(page.Items, threshold, now) {
			w.log.Debug("stopping pagination early, page already fresh",
				slog.String("repo", repo),
				slog.String("kind", string(kind)),
				slog.Int("items", len(items)))
			break
		}
		cursor = page.NextCursor
	}

	return items, nil
}

// pageIsFresh reports whether the oldest item on a newest-first page was
// updated within twice the staleness threshold.
func pageIsFresh(items []domains.TrackedItem, threshold time.Duration, now time.Time) bool {
	if len(items) == 0 {
		return false
	}
	oldest := items[len(items)-1]
	if !oldest.UpdatedAtValid {
		return false
	}
	return now.Sub(oldest.UpdatedAt) < 2*threshold
}
