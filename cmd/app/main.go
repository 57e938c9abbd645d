package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/skors/reminder-engine/internal/chat"
	"github.com/skors/reminder-engine/internal/classify"
	"github.com/skors/reminder-engine/internal/config"
	"github.com/skors/reminder-engine/internal/conversation"
	"github.com/skors/reminder-engine/internal/delivery"
	"github.com/skors/reminder-engine/internal/httpserver/handlers/cycle/run"
	"github.com/skors/reminder-engine/internal/httpserver/handlers/messages/inbound"
	schedulerstatus "github.com/skors/reminder-engine/internal/httpserver/handlers/scheduler/status"
	sessionstats "github.com/skors/reminder-engine/internal/httpserver/handlers/sessions/stats"
	"github.com/skors/reminder-engine/internal/httpserver/middlewares"
	"github.com/skors/reminder-engine/internal/identity"
	"github.com/skors/reminder-engine/internal/lib/backoff"
	"github.com/skors/reminder-engine/internal/scheduler"
	"github.com/skors/reminder-engine/internal/session"
	"github.com/skors/reminder-engine/internal/tracker"
	"github.com/skors/reminder-engine/internal/tracker/github"
	"github.com/skors/reminder-engine/internal/usecase/reminder"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.Load()

	log := setupLogger(cfg.Env)

	log.Info("starting application", slog.String("env", cfg.Env))

	retry := backoff.Config{MaxRetries: 3, BaseDelay: time.Second}

	githubClient := github.New(github.Config{
		Token:      cfg.GitHubConfig.Token,
		Org:        cfg.GitHubConfig.Org,
		GraphQLURL: cfg.GitHubConfig.GraphQLURL,
		APIBaseURL: cfg.GitHubConfig.APIBaseURL,
		Timeout:    cfg.GitHubConfig.RequestTimeout,
	})

	resolver := identity.New(log, identity.Config{
		BaseURL:  cfg.IdentityConfig.BaseURL,
		APIKey:   cfg.IdentityConfig.APIKey,
		CacheTTL: cfg.IdentityConfig.CacheTTL,
		Timeout:  cfg.IdentityConfig.RequestTimeout,
	}, retry)

	messenger := chat.NewGateway(chat.Config{
		BaseURL: cfg.ChatConfig.BaseURL,
		APIKey:  cfg.ChatConfig.APIKey,
		Timeout: cfg.ChatConfig.RequestTimeout,
	})

	sessions := session.NewMemoryStore(
		time.Duration(cfg.ReminderConfig.SessionTimeoutHours) * time.Hour)

	thresholds := classify.Thresholds{
		Issue:       time.Duration(cfg.ReminderConfig.StaleIssueDays) * 24 * time.Hour,
		PullRequest: time.Duration(cfg.ReminderConfig.StalePRDays) * 24 * time.Hour,
	}

	walker := tracker.NewWalker(log, githubClient, cfg.ReminderConfig.PageSize, retry)

	mediator := delivery.NewMediator(log, delivery.Config{
		FallbackChannelID: cfg.ReminderConfig.FallbackChannelID,
		RateLimitDelay:    cfg.ReminderConfig.RateLimitDelay,
		IssueStaleAge:     thresholds.Issue,
		PRStaleAge:        thresholds.PullRequest,
	}, resolver, messenger, sessions, retry)

	reminderService := reminder.New(log, reminder.Config{
		Repositories:     cfg.ReminderConfig.Repositories,
		Thresholds:       thresholds,
		MaxParallelWalks: cfg.ReminderConfig.MaxParallelWalks,
	}, walker, mediator)

	engine := conversation.NewEngine(log, sessions, messenger, githubClient, retry)
	msgRouter := conversation.NewRouter(engine, conversation.NewHelp(log, messenger))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var schedule *scheduler.Scheduler
	if cfg.ReminderConfig.WeeklySchedule {
		schedule = scheduler.New(log, reminderService)
		go schedule.Run(ctx)
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	router.Post("/messages/inbound", inbound.New(log, msgRouter))

	router.Group(func(r chi.Router) {
		r.Use(middlewares.AdminAuthMiddleware(cfg.HTTPServerConfig.AdminToken))

		r.Post("/cycle/run", run.New(log, reminderService))
		r.Get("/sessions/stats", sessionstats.New(log, sessions))
		r.Get("/scheduler/status", schedulerStatusHandler(log, schedule))
	})

	addr := cfg.HTTPServerConfig.Host + ":" + strconv.Itoa(cfg.HTTPServerConfig.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTPServerConfig.Timeout,
		WriteTimeout:      cfg.HTTPServerConfig.Timeout,
		IdleTimeout:       cfg.HTTPServerConfig.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	gracefulShutdown(ctx, srv, log)
}

// schedulerStatusHandler keeps a disabled schedule as a nil interface, not a
// typed nil pointer, so the handler's nil check works.
func schedulerStatusHandler(log *slog.Logger, schedule *scheduler.Scheduler) http.HandlerFunc {
	if schedule == nil {
		return schedulerstatus.New(log, nil)
	}
	return schedulerstatus.New(log, schedule)
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return log
}

func gracefulShutdown(ctx context.Context, srv *http.Server, log *slog.Logger) {
	<-ctx.Done()

	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", slog.Any("err", err))
		return
	}

	log.Info("server exited gracefully")
}
