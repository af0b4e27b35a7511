package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/craftlinehq/craftline-backend/internal/cron"
	"github.com/craftlinehq/craftline-backend/internal/followups"
	"github.com/craftlinehq/craftline-backend/pkg/config"
	"github.com/craftlinehq/craftline-backend/pkg/db"
	"github.com/craftlinehq/craftline-backend/pkg/logger"
	"github.com/craftlinehq/craftline-backend/pkg/metrics"
	"github.com/craftlinehq/craftline-backend/pkg/migrate"
	"github.com/craftlinehq/craftline-backend/pkg/outbox"
	"github.com/craftlinehq/craftline-backend/pkg/redis"
)

const lockKeyFormat = "cl:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)

	followupsService, err := followups.NewService(followups.NewRepository(dbClient.DB()), dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create followups service", err)
		os.Exit(1)
	}

	followupJob, err := cron.NewFollowupJob(cron.FollowupJobParams{
		Logger:    logg,
		Followups: followupsService,
		Batch:     cfg.Cron.FollowupBatch,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create followup job", err)
		os.Exit(1)
	}

	jobs := []cron.Job{followupJob}
	if cfg.Cron.RetentionEnabled {
		retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
			Logger:     logg,
			Repository: outboxRepo,
			Retention:  cfg.Cron.OutboxRetention,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create outbox retention job", err)
			os.Exit(1)
		}
		jobs = append(jobs, retentionJob)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(jobs...),
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
