package inbound

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/skors/reminder-engine/internal/conversation"
	"github.com/skors/reminder-engine/internal/httpserver/handlers"
	"github.com/skors/reminder-engine/internal/lib/api/response"
)

type MessageRouter interface {
	Dispatch(ctx context.Context, msg conversation.Reply) bool
}

// Request is the chat gateway's webhook payload for a direct message sent to
// the bot. ReplyTo carries the id of the message the user replied to.
type Request struct {
	Recipient string `json:"recipient"`
	Content   string `json:"content"`
	ReplyTo   string `json:"reply_to"`
}

type Response struct {
	Claimed bool `json:"claimed"`
}

func New(
	log *slog.Logger,
	router MessageRouter,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "http.handlers.messages.inbound.New"
		log = log.With(slog.String("op", op))

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Warn("invalid request body", slog.Any("error", err))

			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).
				Encode(response.NewErrorResponse(handlers.InvalidRequest, "invalid JSON format"))
			return
		}
		if req.Recipient == "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).
				Encode(response.NewErrorResponse(handlers.InvalidRequest, "recipient is required"))
			return
		}

		claimed := router.Dispatch(r.Context(), conversation.Reply{
			Recipient: req.Recipient,
			Content:   req.Content,
			ReplyTo:   req.ReplyTo,
		})

		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(Response{Claimed: claimed}); err != nil {
			log.Error("failed to encode response", slog.Any("error", err))
		}
	}
}
