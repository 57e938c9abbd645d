package domains

// ReminderReason is the rule that caused a recipient to be notified about a
// stale item. Exactly one reason is attached per (recipient, item) pair.
type ReminderReason string

const (
	ReasonAssigned          ReminderReason = "assigned"
	ReasonCreatedUnassigned ReminderReason = "created_unassigned"

	ReasonDraftOwner            ReminderReason = "draft_owner"
	ReasonApprovedOwner         ReminderReason = "approved_owner"
	ReasonChangesRequestedOwner ReminderReason = "changes_requested_owner"
	ReasonRequestedReviewer     ReminderReason = "requested_reviewer"
	ReasonAwaitingReviewOwner   ReminderReason = "awaiting_review_owner"
)

var reasonTexts = map[ReminderReason]string{
	ReasonAssigned:              "You are assigned to this issue",
	ReasonCreatedUnassigned:     "You created this issue (no assignees)",
	ReasonDraftOwner:            "You created this draft PR",
	ReasonApprovedOwner:         "You created this approved PR that needs merging",
	ReasonChangesRequestedOwner: "You created this PR with requested changes",
	ReasonRequestedReviewer:     "You are requested to review this PR",
	ReasonAwaitingReviewOwner:   "You created this PR awaiting review",
}

func (r ReminderReason) Text() string {
	if text, ok := reasonTexts[r]; ok {
		return text
	}
	return "Unknown reason"
}

type Reminder struct {
	Item   TrackedItem
	Reason ReminderReason
}

// ReminderBundle collects every reminder for one recipient in one cycle,
// issues and pull requests kept apart for display. Both lists are sorted
// newest-updatedAt-first by the aggregator.
type ReminderBundle struct {
	GitHubUser   string
	Issues       []Reminder
	PullRequests []Reminder
}

func (b *ReminderBundle) Empty() bool {
	return len(b.Issues) == 0 && len(b.PullRequests) == 0
}
