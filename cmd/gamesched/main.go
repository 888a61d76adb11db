// Command gamesched runs the weekly pickup games service.
//
//	gamesched serve      HTTP API plus the cron driven reconciliation (default)
//	gamesched reconcile  a single reconciliation pass, for external cron triggers
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/pickup-games/internal/application"
	"github.com/example/pickup-games/internal/config"
	httptransport "github.com/example/pickup-games/internal/http"
	"github.com/example/pickup-games/internal/logging"
	"github.com/example/pickup-games/internal/metrics"
	"github.com/example/pickup-games/internal/persistence/sqlite"
	"github.com/example/pickup-games/internal/persistence/sqlite/migration"
	"github.com/example/pickup-games/internal/recurrence"
	"github.com/example/pickup-games/internal/scheduler"
)

const (
	modeServe     = "serve"
	modeReconcile = "reconcile"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	if err := run(ctx, os.Args[1:], cfg, logger); err != nil {
		logger.Error("gamesched failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, cfg config.Config, logger *slog.Logger) error {
	mode, err := parseMode(args)
	if err != nil {
		return err
	}

	games, err := config.LoadGames(cfg.ConfigFile)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, games, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	switch mode {
	case modeReconcile:
		report := a.reconciler.Run(ctx)
		if report.Failures > 0 {
			return fmt.Errorf("reconciliation finished with %d failures", report.Failures)
		}
		return nil
	default:
		return a.serve(ctx)
	}
}

func parseMode(args []string) (string, error) {
	if len(args) == 0 {
		return modeServe, nil
	}
	if len(args) > 1 {
		return "", fmt.Errorf("unexpected arguments: %v", args[1:])
	}
	switch args[0] {
	case modeServe, modeReconcile:
		return args[0], nil
	}
	return "", fmt.Errorf("unknown command %q (want %q or %q)", args[0], modeServe, modeReconcile)
}

// app holds the wired components of one process.
type app struct {
	cfg        config.Config
	logger     *slog.Logger
	location   *time.Location
	store      *sqlite.Store
	reconciler *scheduler.Reconciler
	registry   *prometheus.Registry
	handler    http.Handler
}

func newApp(ctx context.Context, cfg config.Config, games config.Games, logger *slog.Logger) (*app, error) {
	loc, err := games.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	table, err := games.Table()
	if err != nil {
		return nil, err
	}
	limits, err := games.Limits()
	if err != nil {
		return nil, err
	}

	store, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(cfg.SQLitePath), sqlite.Options{
		Location: loc,
		Timeout:  cfg.StoreTimeout,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewPrometheus(registry, "games")

	calendar := recurrence.NewCalendar(games.Rule(), loc)
	reconciler := scheduler.NewReconciler(scheduler.Config{
		Store:          store,
		Calendar:       calendar,
		LookaheadWeeks: games.LookaheadWeeks,
		IDGenerator:    uuid.NewString,
		Metrics:        recorder,
		Logger:         logger,
	})

	signupService := application.NewSignupService(application.SignupServiceConfig{
		Events:      store,
		Signups:     store,
		IDGenerator: uuid.NewString,
		Metrics:     recorder,
		Logger:      logger,
	})
	drawService := application.NewDrawService(application.DrawServiceConfig{
		Events:   store,
		Signups:  store,
		Teams:    store,
		Calendar: calendar,
		Table:    table,
		Metrics:  recorder,
		Logger:   logger,
	})
	limiters := application.NewLimiterRegistry(limits, cfg.SessionTTL, 0, nil)

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Events:   httptransport.NewEventHandler(signupService, loc, logger),
		Teams:    httptransport.NewTeamHandler(drawService, logger),
		Calendar: httptransport.NewCalendarHandler(calendar, games.LookaheadWeeks, nil, logger),
		Health:   httptransport.NewHealthHandler(store, cfg.StoreTimeout, logger),
		Metrics:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Sessions(limiters, cfg.SessionTTL),
		},
	})

	return &app{
		cfg:        cfg,
		logger:     logger,
		location:   loc,
		store:      store,
		reconciler: reconciler,
		registry:   registry,
		handler:    handler,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// serve runs the HTTP server and the cron runner until ctx is cancelled. One
// pass runs immediately so a fresh database has games without waiting for the
// first firing.
func (a *app) serve(ctx context.Context) error {
	runner, err := scheduler.NewRunner(scheduler.RunnerConfig{
		Schedule: a.cfg.ReconcileSchedule,
		Location: a.location,
		Job:      a.reconciler,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}
	runner.Start(ctx)
	go runner.RunNow()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.HTTPPort),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	a.logger.Info("games API listening", "addr", server.Addr, "timezone", a.location.String(), "schedule", a.cfg.ReconcileSchedule)
	serveErr := server.ListenAndServe()
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := runner.Stop(stopCtx); err != nil {
		a.logger.Error("reconciliation pass did not finish before shutdown", "error", err)
	}

	if serveErr != nil {
		return fmt.Errorf("server encountered error: %w", serveErr)
	}
	return nil
}
