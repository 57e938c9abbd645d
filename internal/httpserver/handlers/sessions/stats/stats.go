package stats

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/skors/reminder-engine/internal/session"
)

type SessionStats interface {
	Stats() session.Stats
}

func New(
	log *slog.Logger,
	store SessionStats,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "http.handlers.sessions.stats.New"
		log = log.With(slog.String("op", op))

		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(store.Stats()); err != nil {
			log.Error("failed to encode response", slog.Any("error", err))
		}
	}
}
