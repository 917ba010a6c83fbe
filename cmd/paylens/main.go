package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/PayLens/internal/api"
	"github.com/MikeSquared-Agency/PayLens/internal/config"
	"github.com/MikeSquared-Agency/PayLens/internal/hermes"
	"github.com/MikeSquared-Agency/PayLens/internal/metrics"
	"github.com/MikeSquared-Agency/PayLens/internal/reconcile"
	"github.com/MikeSquared-Agency/PayLens/internal/service"
	"github.com/MikeSquared-Agency/PayLens/internal/solver/backends"
	"github.com/MikeSquared-Agency/PayLens/internal/solver/search"
	"github.com/MikeSquared-Agency/PayLens/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checks := map[string]api.HealthChecker{}

	// Artifact store: Postgres when configured, memory otherwise
	var artifacts store.Store
	if cfg.Database.URL != "" {
		if err := store.Migrate(cfg.Database.URL, logger); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		db, err := store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		artifacts = db
		checks["database"] = func(r *http.Request) error { return db.Ping(r.Context()) }
		logger.Info("connected to database")
	} else {
		artifacts = store.NewMemoryStore()
		logger.Warn("no database configured, artifacts are kept in memory")
	}

	// Hermes (optional)
	var hermesClient hermes.Client
	if cfg.Hermes.URL != "" {
		hc, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to hermes, running without events", "error", err)
		} else {
			hermesClient = hc
			defer hc.Close()
			logger.Info("connected to hermes")
		}
	}

	backend, err := backends.New(cfg.Solver, logger)
	if err != nil {
		logger.Error("failed to create solver backend", "error", err)
		os.Exit(1)
	}
	logger.Info("solver backend ready", "backend", cfg.Solver.Backend, "workers", cfg.Solver.Workers)

	m := metrics.New()
	reconciler := reconcile.New(backend, m, logger)
	svc := service.New(reconciler, artifacts, hermesClient, m, cfg, logger)

	// The models endpoint always answers with the local engine, so a
	// remote-backed instance never forwards model solves in a loop.
	router := api.NewRouter(svc, search.New(logger), cfg, logger)
	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           api.NewMetricsRouter(m.Handler(), checks),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	// In-flight batches may run up to their time limit per row.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
