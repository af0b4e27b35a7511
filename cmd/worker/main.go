package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"

	"github.com/joho/godotenv"

	"github.com/craftlinehq/craftline-backend/internal/assignments"
	"github.com/craftlinehq/craftline-backend/internal/chat"
	"github.com/craftlinehq/craftline-backend/internal/notifications"
	"github.com/craftlinehq/craftline-backend/internal/payments"
	"github.com/craftlinehq/craftline-backend/pkg/config"
	"github.com/craftlinehq/craftline-backend/pkg/db"
	"github.com/craftlinehq/craftline-backend/pkg/logger"
	"github.com/craftlinehq/craftline-backend/pkg/messenger"
	"github.com/craftlinehq/craftline-backend/pkg/migrate"
	"github.com/craftlinehq/craftline-backend/pkg/outbox"
	"github.com/craftlinehq/craftline-backend/pkg/outbox/idempotency"
	"github.com/craftlinehq/craftline-backend/pkg/payprovider"
	"github.com/craftlinehq/craftline-backend/pkg/pubsub"
	"github.com/craftlinehq/craftline-backend/pkg/redis"
)

type consumer interface {
	Run(ctx context.Context) error
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	messengerClient, err := messenger.NewClient(cfg.Messenger)
	if err != nil {
		logg.Error(context.Background(), "failed to create messenger client", err)
		os.Exit(1)
	}

	dlqRepo := outbox.NewDLQRepository(dbClient.DB())

	notificationConsumer, err := notifications.NewConsumer(
		notifications.NewRepository(dbClient.DB()),
		pubsubClient.NotificationSubscription(),
		manager,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification consumer", err)
		os.Exit(1)
	}

	chatConsumer, err := chat.NewConsumer(
		chat.NewRepository(dbClient.DB()),
		pubsubClient.ChatSubscription(),
		manager,
		messengerClient,
		dlqRepo,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create chat consumer", err)
		os.Exit(1)
	}

	paymentClient, err := payprovider.NewClient(cfg.Payments)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment provider client", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	paymentsService, err := payments.NewService(payments.NewRepository(dbClient.DB()), dbClient, outboxService, paymentClient, cfg.Payments)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	paymentConsumer, err := payments.NewConsumer(
		paymentsService,
		pubsubClient.PaymentSubscription(),
		manager,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment consumer", err)
		os.Exit(1)
	}

	assignmentConsumer, err := assignments.NewConsumer(
		assignments.NewRepository(dbClient.DB()),
		pubsubClient.AssignmentSubscription(),
		manager,
		messengerClient,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create assignment consumer", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting worker")

	if err := runConsumers(ctx, notificationConsumer, chatConsumer, assignmentConsumer, paymentConsumer); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "worker shutting down gracefully")
}

// runConsumers blocks until all consumer loops exit. The first failure cancels
// the shared context so the remaining consumers drain and stop.
func runConsumers(ctx context.Context, consumers ...consumer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, len(consumers))
	for _, c := range consumers {
		wg.Add(1)
		go func(c consumer) {
			defer wg.Done()
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errs <- err
				cancel()
			}
		}(c)
	}
	wg.Wait()
	close(errs)
	return <-errs
}
