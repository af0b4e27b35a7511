package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/craftlinehq/craftline-backend/api/controllers"
	webhookcontrollers "github.com/craftlinehq/craftline-backend/api/controllers/webhooks"
	"github.com/craftlinehq/craftline-backend/api/middleware"
	"github.com/craftlinehq/craftline-backend/internal/archive"
	"github.com/craftlinehq/craftline-backend/internal/assignments"
	"github.com/craftlinehq/craftline-backend/internal/chat"
	"github.com/craftlinehq/craftline-backend/internal/ledger"
	"github.com/craftlinehq/craftline-backend/internal/notifications"
	"github.com/craftlinehq/craftline-backend/internal/payments"
	"github.com/craftlinehq/craftline-backend/pkg/config"
	"github.com/craftlinehq/craftline-backend/pkg/db"
	"github.com/craftlinehq/craftline-backend/pkg/logger"
	"github.com/craftlinehq/craftline-backend/pkg/payprovider"
	"github.com/craftlinehq/craftline-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	ledgerService ledger.Service,
	paymentsService payments.Service,
	chatService chat.Service,
	notificationsService notifications.Service,
	assignmentsService assignments.Service,
	archiveService archive.Service,
	paymentClient *payprovider.Client,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, redisClient, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", webhookcontrollers.PaymentWebhook(paymentsService, paymentClient, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor())
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/{orderId}/status", controllers.TransitionOrderStatus(ledgerService, logg))
			r.Post("/{orderId}/payments", controllers.RequestMilestonePayment(paymentsService, logg))
			r.Post("/{orderId}/payments/final", controllers.RequestFinalPayment(paymentsService, logg))
			r.Post("/{orderId}/archive", controllers.ArchiveOrder(archiveService, logg))
		})

		r.Post("/assignments", controllers.AssignRep(assignmentsService, logg))

		r.Route("/chats", func(r chi.Router) {
			r.Post("/{chatId}/messages", controllers.PostChatMessage(chatService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	return r
}
