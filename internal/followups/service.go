package followups

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/craftlinehq/craftline-backend/pkg/db"
	"github.com/craftlinehq/craftline-backend/pkg/db/models"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
	pkgerrors "github.com/craftlinehq/craftline-backend/pkg/errors"
	"github.com/craftlinehq/craftline-backend/pkg/outbox"
	"github.com/craftlinehq/craftline-backend/pkg/outbox/payloads"
)

// pendingUniqueIndex allows at most one open followup per order.
const pendingUniqueIndex = "ux_followups_order_pending"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service schedules and drains post-archive followups.
type Service interface {
	ScheduleAfterArchive(ctx context.Context, orderID uuid.UUID, delay time.Duration) error
	ScheduleAfterArchiveTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, delay time.Duration) error
	ProcessDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	CompleteFollowup(ctx context.Context, followupID uuid.UUID, note *string) error
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds the followup scheduler with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("followups repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox}, nil
}

func (s *service) ScheduleAfterArchive(ctx context.Context, orderID uuid.UUID, delay time.Duration) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.ScheduleAfterArchiveTx(ctx, tx, orderID, delay)
	})
}

// ScheduleAfterArchiveTx inserts the pending followup inside the caller's
// transaction. A pending row already on the order makes this a no-op.
func (s *service) ScheduleAfterArchiveTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, delay time.Duration) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if delay <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "followup delay must be positive")
	}

	repo := s.repo.WithTx(tx)
	followup := &models.Followup{
		ID:      uuid.New(),
		OrderID: orderID,
		Status:  enums.FollowupStatusPending,
		DueAt:   time.Now().UTC().Add(delay),
	}
	if err := repo.CreateFollowup(ctx, followup); err != nil {
		if db.IsUniqueViolation(err, pendingUniqueIndex) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create followup")
	}
	return nil
}

// ProcessDue claims due followups one row at a time and emits FollowupDue for
// each claim it wins. Rows lost to a competing worker are skipped silently; a
// row that fails to claim or emit does not block the rest of the batch.
func (s *service) ProcessDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 100
	}

	due, err := s.repo.ListDue(ctx, now, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due followups")
	}

	var claimed []uuid.UUID
	var errs []error
	for _, followup := range due {
		followup := followup
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			rows, err := repo.ClaimFollowup(ctx, followup.ID, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim followup")
			}
			if rows == 0 {
				return nil
			}

			event := outbox.DomainEvent{
				EventType:     enums.EventFollowupDue,
				AggregateType: enums.AggregateFollowup,
				AggregateID:   followup.ID,
				Version:       1,
				OccurredAt:    now,
				Data: payloads.FollowupDueEvent{
					OrderID:    followup.OrderID,
					FollowupID: followup.ID,
					DueAt:      followup.DueAt,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
			claimed = append(claimed, followup.ID)
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("followup %s: %w", followup.ID, err))
		}
	}
	return claimed, multierr.Combine(errs...)
}

func (s *service) CompleteFollowup(ctx context.Context, followupID uuid.UUID, note *string) error {
	if followupID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "followup id required")
	}

	rows, err := s.repo.CompleteFollowup(ctx, followupID, time.Now().UTC(), note)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete followup")
	}
	if rows > 0 {
		return nil
	}

	_, err = s.repo.FindFollowup(ctx, followupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "followup not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load followup")
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "followup is not in progress")
}
