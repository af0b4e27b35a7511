package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlinehq/craftline-backend/pkg/db/models"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a ledger repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatusVersioned applies the status write guarded by the version
// the caller read. Zero rows affected means a concurrent writer won.
func (r *repository) UpdateOrderStatusVersioned(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus, expectedVersion int64, extra map[string]any) (int64, error) {
	updates := map[string]any{
		"status":     target,
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now().UTC(),
	}
	for key, value := range extra {
		updates[key] = value
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND version = ?", orderID, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) CreateQualityCheck(ctx context.Context, check *models.QualityCheck) error {
	return r.db.WithContext(ctx).Create(check).Error
}

func (r *repository) FindOpenQualityCheck(ctx context.Context, orderID uuid.UUID) (*models.QualityCheck, error) {
	var check models.QualityCheck
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND closed_at IS NULL", orderID).
		Order("opened_at DESC").
		First(&check).Error
	if err != nil {
		return nil, err
	}
	return &check, nil
}

func (r *repository) HasClosedQualityCheck(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.QualityCheck{}).
		Where("order_id = ? AND closed_at IS NOT NULL", orderID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) CloseQualityCheck(ctx context.Context, checkID uuid.UUID, closedAt time.Time, passed bool) error {
	return r.db.WithContext(ctx).
		Model(&models.QualityCheck{}).
		Where("id = ?", checkID).
		Updates(map[string]any{
			"closed_at": closedAt,
			"passed":    passed,
		}).Error
}
