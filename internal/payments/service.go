package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlinehq/craftline-backend/pkg/config"
	"github.com/craftlinehq/craftline-backend/pkg/db"
	"github.com/craftlinehq/craftline-backend/pkg/db/models"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
	pkgerrors "github.com/craftlinehq/craftline-backend/pkg/errors"
	"github.com/craftlinehq/craftline-backend/pkg/money"
	"github.com/craftlinehq/craftline-backend/pkg/outbox"
	"github.com/craftlinehq/craftline-backend/pkg/outbox/payloads"
	"github.com/craftlinehq/craftline-backend/pkg/payprovider"
)

// milestoneUniqueIndex guards the single live row per (order, type).
const milestoneUniqueIndex = "ux_payment_milestones_order_type_live"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service coordinates milestone intents and provider webhook reconciliation.
type Service interface {
	RequestMilestone(ctx context.Context, input RequestMilestoneInput) (*MilestoneIntent, error)
	Reconcile(ctx context.Context, event ProviderEvent) error
}

type service struct {
	repo         Repository
	tx           txRunner
	outbox       outboxPublisher
	provider     PaymentProvider
	depositCents int64
}

// NewService builds the milestone coordinator with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, provider PaymentProvider, cfg config.PaymentsConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if provider == nil {
		return nil, fmt.Errorf("payment provider required")
	}
	depositCents := cfg.DepositAmountCents
	if depositCents <= 0 {
		depositCents = 5000
	}
	return &service{
		repo:         repo,
		tx:           tx,
		outbox:       outbox,
		provider:     provider,
		depositCents: depositCents,
	}, nil
}

func (s *service) RequestMilestone(ctx context.Context, input RequestMilestoneInput) (*MilestoneIntent, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.MilestoneType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid milestone type")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	existing, err := s.repo.FindActiveMilestone(ctx, input.OrderID, input.MilestoneType)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load milestone")
	}
	if existing != nil {
		return toMilestoneIntent(existing), nil
	}

	order, err := s.repo.FindOrder(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	amount, err := s.milestoneAmount(input.MilestoneType, order.TotalAmountCents)
	if err != nil {
		return nil, err
	}

	// Provider call happens before the tx so a slow processor never holds a
	// database transaction open.
	idempotencyKey := uuid.NewString()
	intent, err := s.provider.CreateIntent(ctx, payprovider.IntentRequest{
		OrderID:        order.ID.String(),
		MilestoneType:  string(input.MilestoneType),
		AmountCents:    amount,
		Currency:       string(order.Currency),
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row := &models.PaymentMilestone{
		ID:               uuid.New(),
		OrderID:          order.ID,
		MilestoneType:    input.MilestoneType,
		Status:           enums.MilestoneStatusPending,
		AmountCents:      amount,
		Currency:         order.Currency,
		ProviderIntentID: &intent.IntentID,
		ClientSecret:     &intent.ClientSecret,
		IdempotencyKey:   &idempotencyKey,
		RequestedAt:      now,
	}

	var result *MilestoneIntent
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateMilestone(ctx, row); err != nil {
			if db.IsUniqueViolation(err, milestoneUniqueIndex) {
				winner, findErr := repo.FindActiveMilestone(ctx, order.ID, input.MilestoneType)
				if findErr != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load winning milestone")
				}
				result = toMilestoneIntent(winner)
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create milestone")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventPaymentRequested,
			AggregateType: enums.AggregateMilestone,
			AggregateID:   row.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole},
			OccurredAt:    now,
			Data: payloads.PaymentRequestedEvent{
				OrderID:       order.ID,
				MilestoneID:   row.ID,
				MilestoneType: row.MilestoneType,
				AmountCents:   row.AmountCents,
				Currency:      row.Currency,
				ProviderRef:   intent.IntentID,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}
		result = toMilestoneIntent(row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Reconcile(ctx context.Context, event ProviderEvent) error {
	if event.EventID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "provider event id required")
	}
	if event.IntentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "provider intent reference required")
	}
	if event.Type != ProviderEventIntentSucceeded && event.Type != ProviderEventIntentFailed {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unsupported provider event type %q", event.Type))
	}
	provider := event.Provider
	if provider == "" {
		provider = payprovider.ProviderName
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		guard := &models.ProcessedProviderEvent{
			ID:         uuid.New(),
			Provider:   provider,
			EventID:    event.EventID,
			ReceivedAt: time.Now().UTC(),
		}
		if err := repo.InsertProcessedEvent(ctx, guard); err != nil {
			if db.IsUniqueViolation(err, "") {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record provider event")
		}

		milestone, err := repo.FindMilestoneByIntentID(ctx, event.IntentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "milestone not found for intent")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load milestone")
		}

		switch event.Type {
		case ProviderEventIntentSucceeded:
			return s.markPaid(ctx, tx, repo, milestone, event)
		case ProviderEventIntentFailed:
			return s.markFailed(ctx, repo, milestone, event)
		}
		return nil
	})
}

func (s *service) markPaid(ctx context.Context, tx *gorm.DB, repo Repository, milestone *models.PaymentMilestone, event ProviderEvent) error {
	if milestone.Status == enums.MilestoneStatusPaid {
		return nil
	}

	paidAt := event.OccurredAt
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}
	updates := map[string]any{
		"status":  enums.MilestoneStatusPaid,
		"paid_at": paidAt,
	}
	if err := repo.UpdateMilestone(ctx, milestone.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark milestone paid")
	}

	received := outbox.DomainEvent{
		EventType:     enums.EventPaymentReceived,
		AggregateType: enums.AggregateMilestone,
		AggregateID:   milestone.ID,
		Version:       1,
		OccurredAt:    paidAt,
		Data: payloads.PaymentReceivedEvent{
			OrderID:       milestone.OrderID,
			MilestoneID:   milestone.ID,
			MilestoneType: milestone.MilestoneType,
			AmountCents:   milestone.AmountCents,
			PaidAt:        paidAt,
		},
	}
	if err := s.outbox.Emit(ctx, tx, received); err != nil {
		return err
	}

	// A settled deposit unlocks the group chat for the order.
	if milestone.MilestoneType == enums.MilestoneTypeDeposit {
		provisioning := outbox.DomainEvent{
			EventType:     enums.EventChatProvisioningDue,
			AggregateType: enums.AggregateOrder,
			AggregateID:   milestone.OrderID,
			Version:       1,
			OccurredAt:    paidAt,
			Data: payloads.ChatProvisioningDueEvent{
				OrderID: milestone.OrderID,
			},
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, provisioning); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) markFailed(ctx context.Context, repo Repository, milestone *models.PaymentMilestone, event ProviderEvent) error {
	if milestone.Status == enums.MilestoneStatusFailed {
		return nil
	}
	if milestone.Status == enums.MilestoneStatusPaid {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "paid milestone cannot fail")
	}

	failedAt := event.OccurredAt
	if failedAt.IsZero() {
		failedAt = time.Now().UTC()
	}
	updates := map[string]any{
		"status":    enums.MilestoneStatusFailed,
		"failed_at": failedAt,
	}
	if event.FailureReason != nil {
		updates["failure_reason"] = *event.FailureReason
	}
	if err := repo.UpdateMilestone(ctx, milestone.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark milestone failed")
	}
	return nil
}

func (s *service) milestoneAmount(milestoneType enums.MilestoneType, totalCents int64) (int64, error) {
	var amount int64
	switch milestoneType {
	case enums.MilestoneTypeDeposit:
		amount = s.depositCents
	case enums.MilestoneTypeUpfront:
		amount = money.UpfrontCents(totalCents)
	case enums.MilestoneTypeFinal:
		amount = money.FinalCents(totalCents)
	}
	if amount <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "milestone amount must be positive")
	}
	return amount, nil
}

func toMilestoneIntent(milestone *models.PaymentMilestone) *MilestoneIntent {
	intent := &MilestoneIntent{
		MilestoneID:   milestone.ID,
		OrderID:       milestone.OrderID,
		MilestoneType: milestone.MilestoneType,
		Status:        milestone.Status,
		AmountCents:   milestone.AmountCents,
		Currency:      milestone.Currency,
	}
	if milestone.ProviderIntentID != nil {
		intent.IntentID = *milestone.ProviderIntentID
	}
	if milestone.ClientSecret != nil {
		intent.ClientSecret = *milestone.ClientSecret
	}
	return intent
}
