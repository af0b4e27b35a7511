package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/pkg/enums"
)

// Notification is an in-app notification row. The unique index on
// (event_id, recipient_user_id) keeps fanout idempotent under redelivery.
type Notification struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	EventID         uuid.UUID              `gorm:"column:event_id;type:uuid;not null;uniqueIndex:idx_notifications_event_recipient"`
	RecipientUserID uuid.UUID              `gorm:"column:recipient_user_id;type:uuid;not null;uniqueIndex:idx_notifications_event_recipient"`
	Type            enums.NotificationType `gorm:"column:type;type:text;not null"`
	Title           string                 `gorm:"column:title;not null"`
	Message         string                 `gorm:"column:message;not null"`
	Link            *string                `gorm:"column:link"`
	OrderID         *uuid.UUID             `gorm:"column:order_id;type:uuid"`
	Payload         json.RawMessage        `gorm:"column:payload;type:jsonb"`
	ReadAt          *time.Time             `gorm:"column:read_at"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
}

// TableName pins the table name for GORM.
func (Notification) TableName() string { return "notifications" }
