package models

import (
	"time"

	"github.com/google/uuid"
)

// GroupChat is the per-order conversation thread. ExternalThreadID links the
// chat to its messenger-provider counterpart once provisioned.
type GroupChat struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID         `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_group_chats_order_id"`
	ExternalThreadID *string           `gorm:"column:external_thread_id"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
	Participants     []ChatParticipant `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE"`
}

// TableName pins the table name for GORM.
func (GroupChat) TableName() string { return "group_chats" }
