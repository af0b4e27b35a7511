package models

import (
	"time"

	"github.com/google/uuid"
)

// Assignment binds a rep to a sample order. The provisioning step flags make
// the chat setup resumable after a partial failure.
type Assignment struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_assignments_order_id"`
	RepID             uuid.UUID `gorm:"column:rep_id;type:uuid;not null"`
	AssignedBy        uuid.UUID `gorm:"column:assigned_by;type:uuid;not null"`
	ChatCreated       bool      `gorm:"column:chat_created;not null;default:false"`
	ParticipantsAdded bool      `gorm:"column:participants_added;not null;default:false"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name for GORM.
func (Assignment) TableName() string { return "assignments" }
