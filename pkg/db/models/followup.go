package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/pkg/enums"
)

// Followup is a post-archive reminder. A partial unique index on order_id
// where status = 'pending' allows at most one open followup per order.
type Followup struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID            `gorm:"column:order_id;type:uuid;not null"`
	Status      enums.FollowupStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	DueAt       time.Time            `gorm:"column:due_at;not null"`
	Attempts    int                  `gorm:"column:attempts;not null;default:0"`
	ClaimedAt   *time.Time           `gorm:"column:claimed_at"`
	CompletedAt *time.Time           `gorm:"column:completed_at"`
	Note        *string              `gorm:"column:note"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name for GORM.
func (Followup) TableName() string { return "followups" }
