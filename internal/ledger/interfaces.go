package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlinehq/craftline-backend/pkg/db/models"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
)

// Repository defines persistence operations for the transition ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	UpdateOrderStatusVersioned(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus, expectedVersion int64, extra map[string]any) (int64, error)
	CreateQualityCheck(ctx context.Context, check *models.QualityCheck) error
	FindOpenQualityCheck(ctx context.Context, orderID uuid.UUID) (*models.QualityCheck, error)
	HasClosedQualityCheck(ctx context.Context, orderID uuid.UUID) (bool, error)
	CloseQualityCheck(ctx context.Context, checkID uuid.UUID, closedAt time.Time, passed bool) error
}
