// Package conversation turns recipients' free-text replies into tracker
// comments through a per-recipient finite-state machine.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/skors/reminder-engine/internal/chat"
	"github.com/skors/reminder-engine/internal/domains"
	"github.com/skors/reminder-engine/internal/lib/backoff"
	"github.com/skors/reminder-engine/internal/session"
	"github.com/skors/reminder-engine/internal/tracker"
)

var (
	yesWords  = map[string]bool{"yes": true, "y": true, "continue": true, "more": true, "next": true}
	doneWords = map[string]bool{"no": true, "n": true, "done": true, "finish": true, "finished": true, "stop": true}
)

// Engine drives update conversations. It claims an inbound message only when
// the recipient has a live session and the message is a direct reply to the
// most recent message the engine sent them; anything else falls through the
// router, which keeps concurrent reminder threads from cross-talking.
type Engine struct {
	log       *slog.Logger
	store     session.Store
	messenger chat.Messenger
	poster    tracker.CommentPoster
	retry     backoff.Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEngine(
	log *slog.Logger,
	store session.Store,
	messenger chat.Messenger,
	poster tracker.CommentPoster,
	retry backoff.Config,
) *Engine {
	return &Engine{
		log:       log,
		store:     store,
		messenger: messenger,
		poster:    poster,
		retry:     retry,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (e *Engine) Handle(ctx context.Context, msg Reply) bool {
	const op = "conversation.Engine.Handle"

	if !e.claims(msg) {
		return false
	}

	// Replies from one recipient are processed strictly in arrival order.
	lock := e.recipientLock(msg.Recipient)
	lock.Lock()
	defer lock.Unlock()

	sess, ok := e.store.Get(msg.Recipient)
	if !ok || sess.LastMessageID != msg.ReplyTo {
		return false
	}

	if err := e.advance(ctx, sess, strings.TrimSpace(msg.Content)); err != nil {
		e.log.Error("conversation failed, resetting session",
			slog.String("op", op),
			slog.String("recipient", msg.Recipient),
			slog.String("err", err.Error()))

		e.store.Delete(msg.Recipient)
		_, _ = e.messenger.SendDirect(ctx, msg.Recipient,
			"Sorry, something went wrong while processing your update and I had to reset your session. "+
				"You'll get a fresh reminder on the next cycle.")
	}
	return true
}

func (e *Engine) claims(msg Reply) bool {
	sess, ok := e.store.Get(msg.Recipient)
	return ok && msg.ReplyTo != "" && sess.LastMessageID == msg.ReplyTo
}

func (e *Engine) recipientLock(recipient string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[recipient]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[recipient] = lock
	}
	return lock
}

func (e *Engine) advance(ctx context.Context, sess *domains.Session, content string) error {
	switch sess.Stage {
	case domains.StageAwaitingInitialResponse:
		return e.onInitialResponse(ctx, sess, content)
	case domains.StageAwaitingItemSelection:
		return e.onItemSelection(ctx, sess, content)
	case domains.StageAwaitingItemSelectionForUpdate:
		return e.onItemSelectionForUpdate(ctx, sess, content)
	case domains.StageAwaitingUpdateContent:
		return e.onUpdateContent(ctx, sess, content)
	case domains.StageAwaitingContinueChoice:
		return e.onContinueChoice(ctx, sess, content)
	case domains.StageAwaitingNextUpdateOrDone:
		return e.onNextUpdateOrDone(ctx, sess, content)
	default:
		return fmt.Errorf("unknown session stage %q", sess.Stage)
	}
}

// onInitialResponse handles the first reply after a reminder. With a single
// pending item the reply is the update itself; with several, the content is
// held until the recipient says which item it belongs to.
func (e *Engine) onInitialResponse(ctx context.Context, sess *domains.Session, content string) error {
	if len(sess.Items) == 0 {
		return e.finish(ctx, sess, "There are no items left in this reminder. You'll get a fresh one on the next cycle.")
	}
	if content == "" {
		return e.prompt(ctx, sess, "Please send some text for your update.")
	}

	if len(sess.Items) == 1 {
		return e.postUpdate(ctx, sess, 0, content, true)
	}

	sess.PendingContent = content
	sess.Stage = domains.StageAwaitingItemSelectionForUpdate
	return e.prompt(ctx, sess, fmt.Sprintf(
		"Got your update: %q\n\nWhich item is it for?\n\n%s\n\nReply with the number of the item.",
		preview(content), itemList(sess)))
}

func (e *Engine) onItemSelection(ctx context.Context, sess *domains.Session, content string) error {
	index, ok := e.parseSelection(sess, content)
	if !ok {
		return e.prompt(ctx, sess, fmt.Sprintf(
			"Please enter a number between 1 and %d.\n\n%s", len(sess.Items), itemList(sess)))
	}

	sess.SelectedIndex = index
	sess.Stage = domains.StageAwaitingUpdateContent
	item := sess.Items[index]
	return e.prompt(ctx, sess, fmt.Sprintf(
		"Selected %s#%d: %s\n\nSend your update and I'll post it as a comment on GitHub.",
		item.Repository, item.Number, item.Title))
}

func (e *Engine) onItemSelectionForUpdate(ctx context.Context, sess *domains.Session, content string) error {
	index, ok := e.parseSelection(sess, content)
	if !ok {
		return e.prompt(ctx, sess, fmt.Sprintf(
			"Please enter a number between 1 and %d.\n\n%s", len(sess.Items), itemList(sess)))
	}
	return e.postUpdate(ctx, sess, index, sess.PendingContent, true)
}

func (e *Engine) onUpdateContent(ctx context.Context, sess *domains.Session, content string) error {
	if sess.SelectedIndex < 0 || sess.SelectedIndex >= len(sess.Items) {
		return fmt.Errorf("no item selected in stage %s", sess.Stage)
	}
	if content == "" {
		return e.prompt(ctx, sess, "Please send some text for your update.")
	}
	return e.postUpdate(ctx, sess, sess.SelectedIndex, content, false)
}

func (e *Engine) onContinueChoice(ctx context.Context, sess *domains.Session, content string) error {
	word := strings.ToLower(content)

	switch {
	case yesWords[word]:
		remaining := sess.RemainingIndices()
		if len(remaining) == 0 {
			return e.finish(ctx, sess, "You've already updated every item. Nice work!")
		}
		sess.Stage = domains.StageAwaitingItemSelection
		return e.prompt(ctx, sess, fmt.Sprintf(
			"You have %d item(s) left. Which one would you like to update?\n\n%s\n\nReply with the number of the item.",
			len(remaining), itemList(sess)))
	case doneWords[word]:
		return e.finish(ctx, sess, fmt.Sprintf(
			"Perfect, you've updated %d item(s). Thanks for keeping your GitHub activity current!",
			sess.ResolvedCount()))
	default:
		return e.prompt(ctx, sess, "Please reply with yes to update another item or no to finish.")
	}
}

func (e *Engine) onNextUpdateOrDone(ctx context.Context, sess *domains.Session, content string) error {
	if doneWords[strings.ToLower(content)] {
		return e.finish(ctx, sess, fmt.Sprintf(
			"Perfect, you've updated %d item(s). Thanks for keeping your GitHub activity current!",
			sess.ResolvedCount()))
	}
	if content == "" {
		return e.prompt(ctx, sess, "Please send some text for your update, or reply done to finish.")
	}

	remaining := sess.RemainingIndices()
	switch len(remaining) {
	case 0:
		return e.finish(ctx, sess, "You've already updated every item. Nice work!")
	case 1:
		return e.postUpdate(ctx, sess, remaining[0], content, true)
	default:
		sess.PendingContent = content
		sess.Stage = domains.StageAwaitingItemSelectionForUpdate
		return e.prompt(ctx, sess, fmt.Sprintf(
			"Got your update: %q\n\nWhich item is it for?\n\n%s\n\nReply with the number of the item.",
			preview(content), itemList(sess)))
	}
}

// postUpdate posts the comment and advances the session. On failure the
// stage, pending content and selection are left untouched so resubmitting
// the same reply retries the post. contentFirst selects the continuation
// used when content arrives before an item selection.
func (e *Engine) postUpdate(ctx context.Context, sess *domains.Session, index int, content string, contentFirst bool) error {
	if index < 0 || index >= len(sess.Items) {
		return fmt.Errorf("item index %d out of range", index)
	}
	item := sess.Items[index]
	body := fmt.Sprintf("Update from @%s: %s", sess.GitHubUser, content)

	commentURL, err := backoff.Do(ctx, e.retry, func(ctx context.Context) (string, error) {
		return e.poster.PostComment(ctx, item.Repository, item.Number, body)
	})
	if err != nil {
		e.log.Warn("comment post failed",
			slog.String("op", "conversation.Engine.postUpdate"),
			slog.String("repo", item.Repository),
			slog.Int("number", item.Number),
			slog.String("err", err.Error()))
		return e.prompt(ctx, sess, fmt.Sprintf(
			"I couldn't post your comment on %s#%d. Send your reply again to retry.",
			item.Repository, item.Number))
	}

	sess.Resolved[index] = true
	sess.PendingContent = ""
	sess.SelectedIndex = -1

	confirmed := fmt.Sprintf("Comment posted on %s#%d: %s", item.Repository, item.Number, commentURL)

	remaining := sess.RemainingIndices()
	if len(remaining) == 0 {
		return e.finish(ctx, sess, confirmed+"\n\nThat was the last one, all your items are updated. Thanks!")
	}

	if contentFirst {
		sess.Stage = domains.StageAwaitingNextUpdateOrDone
		return e.prompt(ctx, sess, fmt.Sprintf(
			"%s\n\nYou have %d more item(s):\n\n%s\n\nSend your update for another item, or reply done to finish.",
			confirmed, len(remaining), itemList(sess)))
	}

	sess.Stage = domains.StageAwaitingContinueChoice
	return e.prompt(ctx, sess, fmt.Sprintf(
		"%s\n\nWould you like to update another item? You have %d left:\n\n%s\n\nReply with yes to continue or no to finish.",
		confirmed, len(remaining), itemList(sess)))
}

// prompt sends a message that continues the conversation and records its id
// as the new reply target.
func (e *Engine) prompt(ctx context.Context, sess *domains.Session, content string) error {
	messageID, err := e.messenger.SendDirect(ctx, sess.Recipient, content)
	if err != nil {
		return fmt.Errorf("send prompt: %w", err)
	}
	sess.LastMessageID = messageID
	e.store.Put(sess)
	return nil
}

// finish sends a closing message and destroys the session.
func (e *Engine) finish(ctx context.Context, sess *domains.Session, content string) error {
	e.store.Delete(sess.Recipient)
	if _, err := e.messenger.SendDirect(ctx, sess.Recipient, content); err != nil {
		return fmt.Errorf("send closing message: %w", err)
	}
	return nil
}

func (e *Engine) parseSelection(sess *domains.Session, content string) (int, bool) {
	selection, err := strconv.Atoi(content)
	if err != nil || selection < 1 || selection > len(sess.Items) {
		return 0, false
	}
	return selection - 1, true
}

func itemList(sess *domains.Session) string {
	var b strings.Builder
	for i, item := range sess.Items {
		kind := "issue"
		if item.Kind == domains.KindPullRequest {
			kind = "PR"
		}
		mark := ""
		if sess.Resolved[i] {
			mark = " [updated]"
		}
		fmt.Fprintf(&b, "%d.%s %s %s#%d: %s\n", i+1, mark, kind, item.Repository, item.Number, item.Title)
	}
	return strings.TrimRight(b.String(), "\n")
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= 100 {
		return content
	}
	return string(runes[:100]) + "..."
}
