package followups

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlinehq/craftline-backend/pkg/db/models"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
)

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a followups repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateFollowup(ctx context.Context, followup *models.Followup) error {
	return r.db.WithContext(ctx).Create(followup).Error
}

func (r *repositoryImpl) FindFollowup(ctx context.Context, followupID uuid.UUID) (*models.Followup, error) {
	var followup models.Followup
	err := r.db.WithContext(ctx).
		Where("id = ?", followupID).
		First(&followup).Error
	if err != nil {
		return nil, err
	}
	return &followup, nil
}

func (r *repositoryImpl) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Followup, error) {
	var followups []models.Followup
	err := r.db.WithContext(ctx).
		Where("status = ? AND due_at <= ?", enums.FollowupStatusPending, now).
		Order("due_at ASC").
		Limit(limit).
		Find(&followups).Error
	if err != nil {
		return nil, err
	}
	return followups, nil
}

// ClaimFollowup flips a pending row to in_progress. Zero rows means a
// competing worker already claimed it.
func (r *repositoryImpl) ClaimFollowup(ctx context.Context, followupID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Followup{}).
		Where("id = ? AND status = ?", followupID, enums.FollowupStatusPending).
		Updates(map[string]any{
			"status":     enums.FollowupStatusInProgress,
			"claimed_at": now,
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repositoryImpl) CompleteFollowup(ctx context.Context, followupID uuid.UUID, now time.Time, note *string) (int64, error) {
	updates := map[string]any{
		"status":       enums.FollowupStatusDone,
		"completed_at": now,
		"updated_at":   now,
	}
	if note != nil {
		updates["note"] = *note
	}
	result := r.db.WithContext(ctx).
		Model(&models.Followup{}).
		Where("id = ? AND status = ?", followupID, enums.FollowupStatusInProgress).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
