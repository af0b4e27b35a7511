package archive

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlinehq/craftline-backend/pkg/db/models"
)

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an archive repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) SetCertificateURL(ctx context.Context, orderID uuid.UUID, certificateURL string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"certificate_url": certificateURL,
			"updated_at":      time.Now().UTC(),
		}).Error
}
