package status

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/skors/reminder-engine/internal/scheduler"
)

type Schedule interface {
	Stats() scheduler.JobStats
	NextRun() time.Time
}

type Response struct {
	Enabled bool               `json:"enabled"`
	NextRun *time.Time         `json:"next_run,omitempty"`
	Stats   scheduler.JobStats `json:"stats"`
}

// New reports the weekly schedule state. schedule is nil when the weekly
// cycle is disabled in config.
func New(
	log *slog.Logger,
	schedule Schedule,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "http.handlers.scheduler.status.New"
		log = log.With(slog.String("op", op))

		resp := Response{}
		if schedule != nil {
			next := schedule.NextRun()

			resp.Enabled = true
			resp.NextRun = &next
			resp.Stats = schedule.Stats()
		}

		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Error("failed to encode response", slog.Any("error", err))
		}
	}
}
