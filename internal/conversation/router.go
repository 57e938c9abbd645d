package conversation

import (
	"context"
	"log/slog"

	"github.com/skors/reminder-engine/internal/chat"
)

// Reply is one inbound direct message from a recipient. ReplyTo is the id of
// the message the recipient replied to, when the platform reports one.
type Reply struct {
	Recipient string
	Content   string
	ReplyTo   string
}

// Handler inspects an inbound message and reports whether it claimed it.
type Handler interface {
	Handle(ctx context.Context, msg Reply) bool
}

// Router dispatches each inbound message through an ordered handler chain.
// The conversation engine runs first; anything it does not claim falls
// through to the remaining handlers.
type Router struct {
	handlers []Handler
}

func NewRouter(handlers ...Handler) *Router {
	return &Router{handlers: handlers}
}

func (r *Router) Dispatch(ctx context.Context, msg Reply) bool {
	for _, h := range r.handlers {
		if h.Handle(ctx, msg) {
			return true
		}
	}
	return false
}

// Help is the terminal fallthrough: a short pointer for direct messages no
// conversation claims.
type Help struct {
	log       *slog.Logger
	messenger chat.Messenger
}

func NewHelp(log *slog.Logger, messenger chat.Messenger) *Help {
	return &Help{log: log, messenger: messenger}
}

func (h *Help) Handle(ctx context.Context, msg Reply) bool {
	const op = "conversation.Help.Handle"

	_, err := h.messenger.SendDirect(ctx, msg.Recipient,
		"Hi! I post reminders about stale issues and pull requests. "+
			"When you get one, reply to it directly and I'll turn your message into a GitHub comment.")
	if err != nil {
		h.log.Warn("help reply failed", slog.String("op", op), slog.String("err", err.Error()))
	}
	return true
}
