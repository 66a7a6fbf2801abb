package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"tradie-schedule-service/internal/adapters/messaging"
	"tradie-schedule-service/internal/app"
	"tradie-schedule-service/internal/config"
	"tradie-schedule-service/internal/platform/obs"
)

// Expired cache rows are cleared nightly, away from the evening sweep.
const purgeCron = "30 3 * * *"

// The worker runs the scheduled travel sweep and, when NOTIFIER=amqp,
// consumes day-changed messages published by the API.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := obs.NewLogger(obs.LogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat, ServiceName: "schedule-worker"})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("worker stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	container, err := app.New(ctx, cfg, app.Options{Migrate: true, InlineNotifier: true})
	if err != nil {
		return err
	}
	defer container.Close()

	cronLogger := cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	scheduler := cron.New(
		cron.WithLocation(container.Loc),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := scheduler.AddFunc(cfg.RecalcCron, func() {
		sweepCtx := obs.WithRequestID(ctx, "")
		if _, err := container.Sweep.Run(sweepCtx); err != nil {
			slog.ErrorContext(sweepCtx, "travel sweep failed", "err", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule travel sweep %q: %w", cfg.RecalcCron, err)
	}

	if len(container.Purgers) > 0 {
		if _, err := scheduler.AddFunc(purgeCron, func() { purgeCaches(ctx, container) }); err != nil {
			return fmt.Errorf("schedule cache purge: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scheduler.Start()
		slog.Info("travel sweep scheduled", "cron", cfg.RecalcCron, "tz", container.Loc.String())
		<-ctx.Done()
		<-scheduler.Stop().Done()
		return nil
	})

	if cfg.Notifier == "amqp" {
		consumer, err := messaging.NewAMQPConsumer(messaging.AMQPConsumerConfig{
			URL:      cfg.AMQPURL,
			Location: container.Loc,
		}, container.Chain.Recalculate)
		if err != nil {
			return err
		}
		defer consumer.Close()

		g.Go(func() error {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

func purgeCaches(ctx context.Context, c *app.Container) {
	for _, p := range c.Purgers {
		n, err := p.PurgeExpired(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "cache purge failed", "cache", fmt.Sprintf("%T", p), "err", err)
			continue
		}
		slog.InfoContext(ctx, "cache purged", "cache", fmt.Sprintf("%T", p), "rows", n)
	}
}
