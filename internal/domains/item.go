package domains

import "time"

type ItemKind string

const (
	KindIssue       ItemKind = "issue"
	KindPullRequest ItemKind = "pull_request"
)

type ReviewState string

const (
	ReviewNone             ReviewState = ""
	ReviewApproved         ReviewState = "APPROVED"
	ReviewChangesRequested ReviewState = "CHANGES_REQUESTED"
	ReviewRequired         ReviewState = "REVIEW_REQUIRED"
)

// TrackedItem is an immutable snapshot of one open issue or pull request
// taken during a fetch cycle. UpdatedAtValid is false when the remote
// timestamp was missing or unparseable; such items count as stale.
type TrackedItem struct {
	Repository     string
	Number         int
	Title          string
	URL            string
	Kind           ItemKind
	CreatedAt      time.Time
	UpdatedAt      time.Time
	UpdatedAtValid bool

	Author    string
	Assignees []string

	// Pull-request only.
	IsDraft     bool
	ReviewState ReviewState
	Reviewers   []string
}
