package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"tradie-schedule-service/internal/adapters/repositories"
	"tradie-schedule-service/internal/api"
	"tradie-schedule-service/internal/app"
	"tradie-schedule-service/internal/config"
	"tradie-schedule-service/internal/platform/obs"
)

// main is the application composition root.
// It wires concrete adapters behind ports and starts the HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := obs.NewLogger(obs.LogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat, ServiceName: "schedule-api"})
	slog.SetDefault(logger)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	container, err := app.New(ctx, cfg, app.Options{Migrate: true})
	if err != nil {
		return err
	}
	defer container.Close()

	// Seed demo data on startup for local runs.
	if cfg.SeedPath != "" {
		if _, err := os.Stat(cfg.SeedPath); err == nil {
			if err := repositories.SeedFromJSON(ctx, container.DB, container.Dialect, cfg.SeedPath, container.Loc); err != nil {
				return err
			}
			slog.Info("seed loaded", "path", cfg.SeedPath)
		}
	}

	router := api.NewRouter(api.Dependencies{
		Queries:         container.Queries,
		Commands:        container.Commands,
		Availability:    container.Availability,
		Optimizer:       container.Optimizer,
		Chain:           container.Chain,
		Owners:          container.Catalog,
		Geocoder:        container.Geocoder,
		Exporter:        container.Exporter,
		Loc:             container.Loc,
		WorkDayStart:    container.WorkdayStart,
		RateLimitPerSec: cfg.RateLimitPerSec,
	})

	// Timeouts are tuned for cold-cache optimization (external API latency).
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
