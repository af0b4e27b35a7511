package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/pkg/enums"
)

// Order is the fulfillment aggregate. Samples share the table with full
// production orders; Kind decides which transition graph applies.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Kind             enums.OrderKind   `gorm:"column:kind;type:text;not null;default:'order'"`
	Status           enums.OrderStatus `gorm:"column:status;type:text;not null;default:'requested'"`
	Version          int64             `gorm:"column:version;not null;default:1"`
	BuyerID          uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null"`
	FactoryID        *uuid.UUID        `gorm:"column:factory_id;type:uuid"`
	RepID            *uuid.UUID        `gorm:"column:rep_id;type:uuid"`
	Title            string            `gorm:"column:title;not null"`
	Currency         enums.Currency    `gorm:"column:currency;type:text;not null;default:'USD'"`
	TotalAmountCents int64             `gorm:"column:total_amount_cents;not null;default:0"`
	CertificateURL   *string           `gorm:"column:certificate_url"`
	ArchivedAt       *time.Time        `gorm:"column:archived_at"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name for GORM.
func (Order) TableName() string { return "orders" }
