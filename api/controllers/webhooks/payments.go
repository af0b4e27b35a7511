package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/craftlinehq/craftline-backend/api/responses"
	"github.com/craftlinehq/craftline-backend/internal/payments"
	pkgerrors "github.com/craftlinehq/craftline-backend/pkg/errors"
	"github.com/craftlinehq/craftline-backend/pkg/logger"
	"github.com/craftlinehq/craftline-backend/pkg/payprovider"
)

const paymentSignatureHeader = "X-Payment-Signature"

type PaymentWebhookService interface {
	Reconcile(ctx context.Context, event payments.ProviderEvent) error
}

type paymentClient interface {
	WebhookSecret() string
}

type paymentWebhookEvent struct {
	EventID string `json:"id"`
	Type    string `json:"type"`
	Data    struct {
		IntentID      string    `json:"intent_id"`
		FailureReason *string   `json:"failure_reason,omitempty"`
		OccurredAt    time.Time `json:"occurred_at"`
	} `json:"data"`
}

// PaymentWebhook handles payment intent lifecycle events from the provider.
func PaymentWebhook(svc PaymentWebhookService, client paymentClient, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment client unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get(paymentSignatureHeader)
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment signature missing"))
			return
		}

		if !validatePaymentSignature(payload, client.WebhookSecret(), sigHeader) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid payment signature"))
			return
		}

		var event paymentWebhookEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}

		if err := svc.Reconcile(ctx, payments.ProviderEvent{
			Provider:      payprovider.ProviderName,
			EventID:       strings.TrimSpace(event.EventID),
			Type:          event.Type,
			IntentID:      strings.TrimSpace(event.Data.IntentID),
			FailureReason: event.Data.FailureReason,
			OccurredAt:    event.Data.OccurredAt,
		}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("payment event %s processed", event.EventID))
		}
		responses.WriteSuccess(w, nil)
	}
}

func validatePaymentSignature(payload []byte, secret, header string) bool {
	if header == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
