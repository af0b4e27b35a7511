package models

import (
	"time"

	"github.com/google/uuid"
)

// ExternalContact maps a platform user to their handle on a messenger
// provider, used when adding participants to external threads.
type ExternalContact struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_external_contacts_user_provider"`
	Provider  string    `gorm:"column:provider;not null;uniqueIndex:idx_external_contacts_user_provider"`
	Handle    string    `gorm:"column:handle;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name for GORM.
func (ExternalContact) TableName() string { return "external_contacts" }
