package models

import (
	"time"

	"github.com/google/uuid"
)

// QualityCheck records a quality inspection window opened against an order.
// An order with a closed check cannot re-enter the quality_check status.
type QualityCheck struct {
	ID       uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID  uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	OpenedBy uuid.UUID  `gorm:"column:opened_by;type:uuid;not null"`
	OpenedAt time.Time  `gorm:"column:opened_at;not null"`
	ClosedAt *time.Time `gorm:"column:closed_at"`
	Passed   *bool      `gorm:"column:passed"`
	Notes    *string    `gorm:"column:notes"`
}

// TableName pins the table name for GORM.
func (QualityCheck) TableName() string { return "quality_checks" }
