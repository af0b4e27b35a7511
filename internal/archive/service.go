package archive

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlinehq/craftline-backend/internal/ledger"
	"github.com/craftlinehq/craftline-backend/pkg/config"
	"github.com/craftlinehq/craftline-backend/pkg/db/models"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
	pkgerrors "github.com/craftlinehq/craftline-backend/pkg/errors"
	"github.com/craftlinehq/craftline-backend/pkg/outbox"
	"github.com/craftlinehq/craftline-backend/pkg/outbox/payloads"
)

const defaultFollowupDelay = 720 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type transitionApplier interface {
	ApplyTransitionTx(ctx context.Context, tx *gorm.DB, input ledger.ApplyTransitionInput) (*ledger.TransitionResult, error)
}

type followupScheduler interface {
	ScheduleAfterArchiveTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, delay time.Duration) error
}

// Repository exposes the archive-owned column update.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	SetCertificateURL(ctx context.Context, orderID uuid.UUID, certificateURL string) error
}

// ArchiveInput closes out a completed order.
type ArchiveInput struct {
	OrderID        uuid.UUID
	CertificateURL string
	ActorUserID    uuid.UUID
	ActorRole      string
}

// Service retires completed orders behind a completion certificate.
type Service interface {
	Archive(ctx context.Context, input ArchiveInput) error
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	ledger    transitionApplier
	followups followupScheduler
	delay     time.Duration
}

// NewService builds the archive service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, ledger transitionApplier, followups followupScheduler, cfg config.FollowupsConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("archive repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("transition ledger required")
	}
	if followups == nil {
		return nil, fmt.Errorf("followup scheduler required")
	}
	delay := cfg.ArchiveDelay
	if delay <= 0 {
		delay = defaultFollowupDelay
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    outbox,
		ledger:    ledger,
		followups: followups,
		delay:     delay,
	}, nil
}

func (s *service) Archive(ctx context.Context, input ArchiveInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if err := validateCertificateURL(input.CertificateURL); err != nil {
		return err
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		result, err := s.ledger.ApplyTransitionTx(ctx, tx, ledger.ApplyTransitionInput{
			OrderID:     input.OrderID,
			Target:      enums.OrderStatusArchived,
			ActorUserID: input.ActorUserID,
			ActorRole:   input.ActorRole,
		})
		if err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		if err := repo.SetCertificateURL(ctx, input.OrderID, input.CertificateURL); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store certificate url")
		}

		archivedAt := archivedAtOf(result.Order)
		followupAt := archivedAt.Add(s.delay)
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderArchived,
			AggregateType: enums.AggregateOrder,
			AggregateID:   input.OrderID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole},
			OccurredAt:    archivedAt,
			Data: payloads.OrderArchivedEvent{
				OrderID:    input.OrderID,
				ArchivedAt: archivedAt,
				FollowupAt: followupAt,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		return s.followups.ScheduleAfterArchiveTx(ctx, tx, input.OrderID, s.delay)
	})
}

func validateCertificateURL(raw string) error {
	if raw == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "certificate url required")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return pkgerrors.New(pkgerrors.CodeValidation, "certificate url must be an absolute http(s) url")
	}
	return nil
}

func archivedAtOf(order *models.Order) time.Time {
	if order != nil && order.ArchivedAt != nil {
		return *order.ArchivedAt
	}
	return time.Now().UTC()
}
