package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/craftlinehq/craftline-backend/api/routes"
	"github.com/craftlinehq/craftline-backend/internal/archive"
	"github.com/craftlinehq/craftline-backend/internal/assignments"
	"github.com/craftlinehq/craftline-backend/internal/chat"
	"github.com/craftlinehq/craftline-backend/internal/followups"
	"github.com/craftlinehq/craftline-backend/internal/ledger"
	"github.com/craftlinehq/craftline-backend/internal/notifications"
	"github.com/craftlinehq/craftline-backend/internal/payments"
	"github.com/craftlinehq/craftline-backend/pkg/config"
	"github.com/craftlinehq/craftline-backend/pkg/db"
	"github.com/craftlinehq/craftline-backend/pkg/logger"
	"github.com/craftlinehq/craftline-backend/pkg/migrate"
	"github.com/craftlinehq/craftline-backend/pkg/outbox"
	"github.com/craftlinehq/craftline-backend/pkg/payprovider"
	"github.com/craftlinehq/craftline-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	paymentClient, err := payprovider.NewClient(cfg.Payments)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment provider client", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.NewRepository(dbClient.DB()), dbClient, outboxService, paymentClient, cfg.Payments)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	chatService, err := chat.NewService(chat.NewRepository(dbClient.DB()), dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create chat service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	assignmentsService, err := assignments.NewService(assignments.NewRepository(dbClient.DB()), dbClient, outboxService, ledgerService)
	if err != nil {
		logg.Error(context.Background(), "failed to create assignments service", err)
		os.Exit(1)
	}

	followupsService, err := followups.NewService(followups.NewRepository(dbClient.DB()), dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create followups service", err)
		os.Exit(1)
	}

	archiveService, err := archive.NewService(archive.NewRepository(dbClient.DB()), dbClient, outboxService, ledgerService, followupsService, cfg.Followups)
	if err != nil {
		logg.Error(context.Background(), "failed to create archive service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			ledgerService,
			paymentsService,
			chatService,
			notificationsService,
			assignmentsService,
			archiveService,
			paymentClient,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
