package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/pkg/enums"
)

// RequestMilestoneInput captures a request to make a milestone payable.
type RequestMilestoneInput struct {
	OrderID       uuid.UUID
	MilestoneType enums.MilestoneType
	ActorUserID   uuid.UUID
	ActorRole     string
}

// MilestoneIntent is the payable handle returned to the client. Repeating a
// request for an active milestone returns the stored intent unchanged.
type MilestoneIntent struct {
	MilestoneID   uuid.UUID             `json:"milestone_id"`
	OrderID       uuid.UUID             `json:"order_id"`
	MilestoneType enums.MilestoneType   `json:"milestone_type"`
	Status        enums.MilestoneStatus `json:"status"`
	AmountCents   int64                 `json:"amount_cents"`
	Currency      enums.Currency        `json:"currency"`
	IntentID      string                `json:"intent_id"`
	ClientSecret  string                `json:"client_secret"`
}

// Provider event types accepted by Reconcile. Anything else is rejected at
// the boundary.
const (
	ProviderEventIntentSucceeded = "payment_intent.succeeded"
	ProviderEventIntentFailed    = "payment_intent.failed"
)

// ProviderEvent is the verified webhook body handed to Reconcile.
type ProviderEvent struct {
	Provider      string
	EventID       string
	Type          string
	IntentID      string
	FailureReason *string
	OccurredAt    time.Time
}
