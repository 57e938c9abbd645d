package tracker

import (
	"context"
	"errors"

	"github.com/skors/reminder-engine/internal/domains"
)

// MaxPageSize is the largest page the remote tracker will serve.
const MaxPageSize = 100

var ErrNotFound = errors.New("repository or item not found")

// Page is one slice of a newest-updated-first listing.
type Page struct {
	Items      []domains.TrackedItem
	NextCursor string
	HasMore    bool
}

// PageFetcher issues a single page request against the remote tracker.
type PageFetcher interface {
	FetchPage(ctx context.Context, repo string, kind domains.ItemKind, cursor string, pageSize int) (Page, error)
}

// CommentPoster posts a free-text comment on an issue or pull request and
// returns the URL of the created comment.
type CommentPoster interface {
	PostComment(ctx context.Context, repo string, number int, body string) (string, error)
}
