package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlinehq/craftline-backend/pkg/db/models"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
	pkgerrors "github.com/craftlinehq/craftline-backend/pkg/errors"
	"github.com/craftlinehq/craftline-backend/pkg/money"
	"github.com/craftlinehq/craftline-backend/pkg/outbox"
	"github.com/craftlinehq/craftline-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service owns every status write for orders and samples. Callers never touch
// orders.status directly.
type Service interface {
	ApplyTransition(ctx context.Context, input ApplyTransitionInput) (*TransitionResult, error)
	ApplyTransitionTx(ctx context.Context, tx *gorm.DB, input ApplyTransitionInput) (*TransitionResult, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds the transition ledger with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox}, nil
}

var orderEdges = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusRequested:    {enums.OrderStatusConfirmed},
	enums.OrderStatusConfirmed:    {enums.OrderStatusInProduction},
	enums.OrderStatusInProduction: {enums.OrderStatusQualityCheck, enums.OrderStatusShipped},
	enums.OrderStatusQualityCheck: {enums.OrderStatusInProduction, enums.OrderStatusShipped},
	enums.OrderStatusShipped:      {enums.OrderStatusCompleted},
	enums.OrderStatusCompleted:    {enums.OrderStatusArchived},
}

var sampleEdges = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusRequested:  {enums.OrderStatusAssigned},
	enums.OrderStatusAssigned:   {enums.OrderStatusInReview},
	enums.OrderStatusInReview:   {enums.OrderStatusApproved, enums.OrderStatusRejected},
	enums.OrderStatusApproved:   {enums.OrderStatusSamplePaid},
	enums.OrderStatusSamplePaid: {enums.OrderStatusShipped},
}

// CanTransition reports whether the edge exists in the graph for the kind.
func CanTransition(kind enums.OrderKind, from, to enums.OrderStatus) bool {
	edges := orderEdges
	if kind == enums.OrderKindSample {
		edges = sampleEdges
	}
	for _, candidate := range edges[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func (s *service) ApplyTransition(ctx context.Context, input ApplyTransitionInput) (*TransitionResult, error) {
	var result *TransitionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		applied, err := s.ApplyTransitionTx(ctx, tx, input)
		if err != nil {
			return err
		}
		result = applied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApplyTransitionTx runs the transition inside the caller's transaction so
// other services can compose it with their own writes.
func (s *service) ApplyTransitionTx(ctx context.Context, tx *gorm.DB, input ApplyTransitionInput) (*TransitionResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	repo := s.repo.WithTx(tx)

	order, err := repo.FindOrder(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status == enums.OrderStatusArchived || order.ArchivedAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "archived orders are read-only")
	}
	if !CanTransition(order.Kind, order.Status, input.Target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("transition %s -> %s not allowed for %s", order.Status, input.Target, order.Kind))
	}

	now := time.Now().UTC()

	if input.Target == enums.OrderStatusQualityCheck {
		closed, err := repo.HasClosedQualityCheck(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check quality history")
		}
		if closed {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "quality check already completed for order")
		}
	}

	extra := map[string]any{}
	if input.Target == enums.OrderStatusArchived {
		extra["archived_at"] = now
	}

	rows, err := repo.UpdateOrderStatusVersioned(ctx, order.ID, input.Target, order.Version, extra)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently")
	}

	if input.Target == enums.OrderStatusQualityCheck {
		check := &models.QualityCheck{
			ID:       uuid.New(),
			OrderID:  order.ID,
			OpenedBy: input.ActorUserID,
			OpenedAt: now,
			Notes:    input.Notes,
		}
		if err := repo.CreateQualityCheck(ctx, check); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open quality check")
		}
	}

	if order.Status == enums.OrderStatusQualityCheck {
		check, err := repo.FindOpenQualityCheck(ctx, order.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open quality check")
		}
		if check != nil {
			passed := input.Target == enums.OrderStatusShipped
			if err := repo.CloseQualityCheck(ctx, check.ID, now, passed); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close quality check")
			}
		}
	}

	from := order.Status
	order.Status = input.Target
	order.Version++
	if input.Target == enums.OrderStatusArchived {
		archivedAt := now
		order.ArchivedAt = &archivedAt
	}

	actor := &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole}
	statusEvent := outbox.DomainEvent{
		EventType:     enums.EventStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         actor,
		OccurredAt:    now,
		Data: payloads.StatusChangedEvent{
			OrderID:    order.ID,
			Kind:       order.Kind,
			FromStatus: from,
			ToStatus:   order.Status,
			Version:    order.Version,
			ActorID:    input.ActorUserID,
			ChangedAt:  now,
		},
	}
	if err := s.outbox.Emit(ctx, tx, statusEvent); err != nil {
		return nil, err
	}

	if input.Target == enums.OrderStatusConfirmed {
		dueEvent := outbox.DomainEvent{
			EventType:     enums.EventMilestoneDue,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actor,
			OccurredAt:    now,
			Data: payloads.MilestoneDueEvent{
				OrderID:       order.ID,
				MilestoneType: enums.MilestoneTypeUpfront,
				AmountCents:   money.UpfrontCents(order.TotalAmountCents),
				Currency:      order.Currency,
			},
		}
		if err := s.outbox.Emit(ctx, tx, dueEvent); err != nil {
			return nil, err
		}
	}

	return &TransitionResult{Order: order, FromStatus: from, ToStatus: order.Status}, nil
}
