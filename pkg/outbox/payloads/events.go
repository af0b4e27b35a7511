package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/pkg/enums"
)

// StatusChangedEvent is emitted after every accepted ledger transition.
type StatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	Kind       enums.OrderKind   `json:"kind"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	Version    int64             `json:"version"`
	ActorID    uuid.UUID         `json:"actor_id"`
	ChangedAt  time.Time         `json:"changed_at"`
}

// MilestoneDueEvent signals that a milestone became payable after a
// transition (upfront becomes due when an order is confirmed).
type MilestoneDueEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	MilestoneType enums.MilestoneType `json:"milestone_type"`
	AmountCents   int64               `json:"amount_cents"`
	Currency      enums.Currency      `json:"currency"`
}

// PaymentRequestedEvent is emitted when a milestone charge has been created
// with the payment provider.
type PaymentRequestedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	MilestoneID   uuid.UUID           `json:"milestone_id"`
	MilestoneType enums.MilestoneType `json:"milestone_type"`
	AmountCents   int64               `json:"amount_cents"`
	Currency      enums.Currency      `json:"currency"`
	ProviderRef   string              `json:"provider_ref,omitempty"`
}

// PaymentReceivedEvent is emitted once a provider webhook settles a milestone.
type PaymentReceivedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	MilestoneID   uuid.UUID           `json:"milestone_id"`
	MilestoneType enums.MilestoneType `json:"milestone_type"`
	AmountCents   int64               `json:"amount_cents"`
	PaidAt        time.Time           `json:"paid_at"`
}

// ChatProvisioningDueEvent asks the worker to create the external thread and
// add participants for a fresh assignment.
type ChatProvisioningDueEvent struct {
	OrderID      uuid.UUID `json:"order_id"`
	AssignmentID uuid.UUID `json:"assignment_id"`
	ChatID       uuid.UUID `json:"chat_id"`
}

// MessageRecordedEvent is emitted after a message is persisted with its
// server-assigned sequence number.
type MessageRecordedEvent struct {
	ChatID    uuid.UUID           `json:"chat_id"`
	MessageID uuid.UUID           `json:"message_id"`
	OrderID   uuid.UUID           `json:"order_id"`
	Seq       int64               `json:"seq"`
	Source    enums.MessageSource `json:"source"`
	SentAt    time.Time           `json:"sent_at"`
}

// AssignmentCreatedEvent is emitted when a rep is bound to a sample order.
type AssignmentCreatedEvent struct {
	OrderID      uuid.UUID `json:"order_id"`
	AssignmentID uuid.UUID `json:"assignment_id"`
	RepID        uuid.UUID `json:"rep_id"`
	AssignedBy   uuid.UUID `json:"assigned_by"`
}

// FollowupDueEvent is emitted when the scheduler claims a due followup.
type FollowupDueEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	FollowupID uuid.UUID `json:"followup_id"`
	DueAt      time.Time `json:"due_at"`
}

// OrderArchivedEvent is emitted when an order is archived.
type OrderArchivedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	ArchivedAt time.Time `json:"archived_at"`
	FollowupAt time.Time `json:"followup_at"`
}
