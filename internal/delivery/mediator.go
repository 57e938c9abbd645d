// Package delivery sends reminder bundles to recipients, preferring a direct
// message with the shared channel as the always-on fallback copy.
package delivery

import (
	"context"
	"log/slog"
	"time"

	"github.com/skors/reminder-engine/internal/chat"
	"github.com/skors/reminder-engine/internal/domains"
	"github.com/skors/reminder-engine/internal/identity"
	"github.com/skors/reminder-engine/internal/lib/backoff"
	"github.com/skors/reminder-engine/internal/session"
)

type Config struct {
	FallbackChannelID string
	RateLimitDelay    time.Duration // pause after each successful direct send
	IssueStaleAge     time.Duration
	PRStaleAge        time.Duration
}

// Mediator delivers one bundle per recipient and opens a conversation
// session whenever the direct channel worked, so the recipient's next reply
// can be routed into the update conversation.
type Mediator struct {
	log       *slog.Logger
	cfg       Config
	resolver  identity.Resolver
	messenger chat.Messenger
	sessions  session.Store
	retry     backoff.Config
	now       func() time.Time
}

func NewMediator(
	log *slog.Logger,
	cfg Config,
	resolver identity.Resolver,
	messenger chat.Messenger,
	sessions session.Store,
	retry backoff.Config,
) *Mediator {
	return &Mediator{
		log:       log,
		cfg:       cfg,
		resolver:  resolver,
		messenger: messenger,
		sessions:  sessions,
		retry:     retry,
		now:       time.Now,
	}
}

// Deliver attempts the direct send, always posts the channel copy, and
// reports what happened. The channel copy mentions the recipient only when
// the direct path failed or no identity mapping exists, since the channel is
// then the only visible notification.
func (m *Mediator) Deliver(ctx context.Context, bundle *domains.ReminderBundle) domains.DeliveryOutcome {
	const op = "delivery.Mediator.Deliver"

	var out domains.DeliveryOutcome

	id, mapped := m.resolver.Resolve(ctx, bundle.GitHubUser)
	if !mapped {
		out.NoMapping = true
		m.log.Warn("no identity mapping for recipient",
			slog.String("op", op),
			slog.String("github_user", bundle.GitHubUser))
	} else {
		content := directMessage(bundle, id, m.cfg.IssueStaleAge, m.cfg.PRStaleAge)
		messageID, err := backoff.Do(ctx, m.retry, func(ctx context.Context) (string, error) {
			return m.messenger.SendDirect(ctx, id.Handle, content)
		})
		if err != nil {
			out.Err = err.Error()
			m.log.Warn("direct send failed",
				slog.String("op", op),
				slog.String("github_user", bundle.GitHubUser),
				slog.String("err", err.Error()))
		} else {
			out.DirectSuccess = true
			m.openSession(bundle, id, messageID)
		}
	}

	channelContent := channelMessage(bundle, id, mapped, !out.DirectSuccess)
	_, err := backoff.Do(ctx, m.retry, func(ctx context.Context) (string, error) {
		return m.messenger.SendToChannel(ctx, m.cfg.FallbackChannelID, channelContent)
	})
	if err != nil {
		if out.Err == "" {
			out.Err = err.Error()
		}
		m.log.Warn("channel send failed",
			slog.String("op", op),
			slog.String("github_user", bundle.GitHubUser),
			slog.String("err", err.Error()))
	} else {
		out.ChannelSent = true
	}

	// The chat platform throttles direct messages; pace only after a
	// successful direct send.
	if out.DirectSuccess && m.cfg.RateLimitDelay > 0 {
		m.pause(ctx)
	}

	return out
}

func (m *Mediator) openSession(bundle *domains.ReminderBundle, id identity.Identity, messageID string) {
	items := make([]domains.PendingItem, 0, len(bundle.Issues)+len(bundle.PullRequests))
	for _, reminder := range bundle.Issues {
		items = append(items, pendingItem(reminder.Item))
	}
	for _, reminder := range bundle.PullRequests {
		items = append(items, pendingItem(reminder.Item))
	}

	m.sessions.Put(&domains.Session{
		Recipient:     id.Handle,
		GitHubUser:    bundle.GitHubUser,
		Items:         items,
		Stage:         domains.StageAwaitingInitialResponse,
		SelectedIndex: -1,
		Resolved:      make(map[int]bool),
		CreatedAt:     m.now(),
		LastMessageID: messageID,
	})
}

func pendingItem(item domains.TrackedItem) domains.PendingItem {
	return domains.PendingItem{
		Repository: item.Repository,
		Number:     item.Number,
		Title:      item.Title,
		Kind:       item.Kind,
	}
}

func (m *Mediator) pause(ctx context.Context) {
	timer := time.NewTimer(m.cfg.RateLimitDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
