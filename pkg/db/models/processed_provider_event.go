package models

import (
	"time"

	"github.com/google/uuid"
)

// ProcessedProviderEvent is the durable replay guard for provider webhooks.
// A unique index on (provider, event_id) makes reprocessing a no-op.
type ProcessedProviderEvent struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Provider   string    `gorm:"column:provider;not null;uniqueIndex:idx_provider_events_provider_event_id"`
	EventID    string    `gorm:"column:event_id;not null;uniqueIndex:idx_provider_events_provider_event_id"`
	ReceivedAt time.Time `gorm:"column:received_at;not null"`
}

// TableName pins the table name for GORM.
func (ProcessedProviderEvent) TableName() string { return "processed_provider_events" }
