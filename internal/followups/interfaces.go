package followups

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlinehq/craftline-backend/pkg/db/models"
)

// Repository exposes persistence helpers for followups.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateFollowup(ctx context.Context, followup *models.Followup) error
	FindFollowup(ctx context.Context, followupID uuid.UUID) (*models.Followup, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Followup, error)
	ClaimFollowup(ctx context.Context, followupID uuid.UUID, now time.Time) (int64, error)
	CompleteFollowup(ctx context.Context, followupID uuid.UUID, now time.Time, note *string) (int64, error)
}
