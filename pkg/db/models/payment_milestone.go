package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/pkg/enums"
)

// PaymentMilestone is a single payable tranche of an order. A partial unique
// index on (order_id, milestone_type) excluding failed rows guarantees at most
// one live milestone per type.
type PaymentMilestone struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID             `gorm:"column:order_id;type:uuid;not null"`
	MilestoneType    enums.MilestoneType   `gorm:"column:milestone_type;type:text;not null"`
	Status           enums.MilestoneStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	AmountCents      int64                 `gorm:"column:amount_cents;not null"`
	Currency         enums.Currency        `gorm:"column:currency;type:text;not null;default:'USD'"`
	ProviderIntentID *string               `gorm:"column:provider_intent_id"`
	ClientSecret     *string               `gorm:"column:client_secret"`
	IdempotencyKey   *string               `gorm:"column:idempotency_key"`
	RequestedAt      time.Time             `gorm:"column:requested_at;not null"`
	PaidAt           *time.Time            `gorm:"column:paid_at"`
	FailedAt         *time.Time            `gorm:"column:failed_at"`
	FailureReason    *string               `gorm:"column:failure_reason"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name for GORM.
func (PaymentMilestone) TableName() string { return "payment_milestones" }
