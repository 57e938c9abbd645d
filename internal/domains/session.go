package domains

import "time"

// SessionStage tracks where a recipient is in the update conversation.
type SessionStage string

const (
	StageAwaitingInitialResponse        SessionStage = "awaiting_initial_response"
	StageAwaitingItemSelection          SessionStage = "awaiting_item_selection"
	StageAwaitingItemSelectionForUpdate SessionStage = "awaiting_item_selection_for_update"
	StageAwaitingUpdateContent          SessionStage = "awaiting_update_content"
	StageAwaitingContinueChoice         SessionStage = "awaiting_continue_choice"
	StageAwaitingNextUpdateOrDone       SessionStage = "awaiting_next_update_or_done"
)

// PendingItem is the slice of a tracked item a conversation needs.
type PendingItem struct {
	Repository string   `json:"repository"`
	Number     int      `json:"number"`
	Title      string   `json:"title"`
	Kind       ItemKind `json:"kind"`
}

// Session is the per-recipient conversational state created when a reminder
// reaches the recipient's direct channel. LastMessageID is the id of the
// most recent message the engine sent; an inbound reply is routed into the
// session only when it targets that message.
type Session struct {
	Recipient      string
	GitHubUser     string
	Items          []PendingItem
	Stage          SessionStage
	SelectedIndex  int
	PendingContent string
	Resolved       map[int]bool
	CreatedAt      time.Time
	LastMessageID  string
}

// RemainingIndices lists the pending items not yet updated this session, in
// their original order.
func (s *Session) RemainingIndices() []int {
	var remaining []int
	for i := range s.Items {
		if !s.Resolved[i] {
			remaining = append(remaining, i)
		}
	}
	return remaining
}

func (s *Session) ResolvedCount() int {
	return len(s.Resolved)
}
