package assignments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlinehq/craftline-backend/internal/ledger"
	"github.com/craftlinehq/craftline-backend/pkg/db"
	"github.com/craftlinehq/craftline-backend/pkg/db/models"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
	pkgerrors "github.com/craftlinehq/craftline-backend/pkg/errors"
	"github.com/craftlinehq/craftline-backend/pkg/outbox"
	"github.com/craftlinehq/craftline-backend/pkg/outbox/payloads"
)

// assignmentUniqueIndex guards the single assignment per order.
const assignmentUniqueIndex = "idx_assignments_order_id"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type transitionApplier interface {
	ApplyTransitionTx(ctx context.Context, tx *gorm.DB, input ledger.ApplyTransitionInput) (*ledger.TransitionResult, error)
}

// Service binds reps to orders and samples.
type Service interface {
	Assign(ctx context.Context, input AssignInput) (*AssignResult, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	ledger transitionApplier
}

// NewService builds the assignment coordinator with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, ledger transitionApplier) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("assignments repository required")
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
	return &service{repo: repo, tx: tx, outbox: outbox, ledger: ledger}, nil
}

func (s *service) Assign(ctx context.Context, input AssignInput) (*AssignResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.RepUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rep user id required")
	}
	if input.AssignedByUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var result *AssignResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.RepID != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already has a rep")
		}

		rows, err := repo.SetOrderRep(ctx, order.ID, input.RepUserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bind rep to order")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already has a rep")
		}

		now := time.Now().UTC()
		assignment := &models.Assignment{
			ID:         uuid.New(),
			OrderID:    order.ID,
			RepID:      input.RepUserID,
			AssignedBy: input.AssignedByUserID,
		}
		if err := repo.CreateAssignment(ctx, assignment); err != nil {
			if db.IsUniqueViolation(err, assignmentUniqueIndex) {
				return pkgerrors.New(pkgerrors.CodeConflict, "order already has a rep")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assignment")
		}

		// A fresh sample moves to assigned as part of the same tx.
		if order.Kind == enums.OrderKindSample && order.Status == enums.OrderStatusRequested {
			_, err := s.ledger.ApplyTransitionTx(ctx, tx, ledger.ApplyTransitionInput{
				OrderID:     order.ID,
				Target:      enums.OrderStatusAssigned,
				ActorUserID: input.AssignedByUserID,
				ActorRole:   input.ActorRole,
			})
			if err != nil {
				return err
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventAssignmentCreated,
			AggregateType: enums.AggregateAssignment,
			AggregateID:   assignment.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.AssignedByUserID, Role: input.ActorRole},
			OccurredAt:    now,
			Data: payloads.AssignmentCreatedEvent{
				OrderID:      order.ID,
				AssignmentID: assignment.ID,
				RepID:        input.RepUserID,
				AssignedBy:   input.AssignedByUserID,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		result = &AssignResult{
			AssignmentID: assignment.ID,
			OrderID:      order.ID,
			RepUserID:    input.RepUserID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
