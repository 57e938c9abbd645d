package run

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/skors/reminder-engine/internal/domains"
	"github.com/skors/reminder-engine/internal/httpserver/handlers"
	"github.com/skors/reminder-engine/internal/lib/api/response"
	"github.com/skors/reminder-engine/internal/lib/backoff"
	"github.com/skors/reminder-engine/internal/usecase"
)

type CycleService interface {
	RunCycle(ctx context.Context) (*domains.CycleReport, error)
}

type Response struct {
	UsersProcessed int                   `json:"users_processed"`
	DeliveryStats  domains.DeliveryStats `json:"delivery_stats"`
	Errors         []string              `json:"errors,omitempty"`
}

// New triggers one reminder cycle on demand (the operator path; the weekly
// scheduler uses the same service).
func New(
	log *slog.Logger,
	service CycleService,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "http.handlers.cycle.run.New"
		log = log.With(slog.String("op", op))

		report, err := service.RunCycle(r.Context())
		if err != nil {
			log.Warn("reminder cycle failed", slog.Any("error", err))

			switch {
			case errors.Is(err, usecase.ErrCycleInProgress):
				w.WriteHeader(http.StatusConflict)
				_ = json.NewEncoder(w).
					Encode(response.NewErrorResponse(handlers.CycleRunning, "a reminder cycle is already running"))
			case errors.Is(err, backoff.ErrUnauthorized):
				w.WriteHeader(http.StatusBadGateway)
				_ = json.NewEncoder(w).
					Encode(response.NewErrorResponse(handlers.TrackerAuth, "tracker rejected the configured credentials"))
			default:
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).
					Encode(response.NewErrorResponse(handlers.InternalError, "internal server error"))
			}
			return
		}

		resp := Response{
			UsersProcessed: report.UsersProcessed,
			DeliveryStats:  report.DeliveryStats,
			Errors:         report.Errors,
		}

		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Error("failed to encode response", slog.Any("error", err))
		}
	}
}
