package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/internal/payments"
	"github.com/craftlinehq/craftline-backend/pkg/enums"
)

type testPaymentsService struct {
	requestFn   func(ctx context.Context, input payments.RequestMilestoneInput) (*payments.MilestoneIntent, error)
	reconcileFn func(ctx context.Context, event payments.ProviderEvent) error
}

func (s *testPaymentsService) RequestMilestone(ctx context.Context, input payments.RequestMilestoneInput) (*payments.MilestoneIntent, error) {
	if s.requestFn != nil {
		return s.requestFn(ctx, input)
	}
	return &payments.MilestoneIntent{}, nil
}

func (s *testPaymentsService) Reconcile(ctx context.Context, event payments.ProviderEvent) error {
	if s.reconcileFn != nil {
		return s.reconcileFn(ctx, event)
	}
	return nil
}

func TestRequestMilestonePaymentSuccess(t *testing.T) {
	orderID := uuid.New()
	actor := uuid.New()
	var captured payments.RequestMilestoneInput
	svc := &testPaymentsService{
		requestFn: func(ctx context.Context, input payments.RequestMilestoneInput) (*payments.MilestoneIntent, error) {
			captured = input
			return &payments.MilestoneIntent{
				MilestoneID:   uuid.New(),
				OrderID:       input.OrderID,
				MilestoneType: input.MilestoneType,
				IntentID:      "in_123",
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/payments",
		strings.NewReader(`{"milestone_type":"deposit"}`))
	req = withActor(req, actor.String())
	req = addRouteParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	RequestMilestonePayment(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d (%s)", resp.Code, resp.Body.String())
	}
	if captured.OrderID != orderID || captured.ActorUserID != actor {
		t.Fatalf("unexpected input %+v", captured)
	}
	if captured.MilestoneType != enums.MilestoneTypeDeposit {
		t.Fatalf("unexpected milestone type %s", captured.MilestoneType)
	}
}

func TestRequestMilestonePaymentRejectsFinalType(t *testing.T) {
	orderID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/payments",
		strings.NewReader(`{"milestone_type":"final"}`))
	req = withActor(req, uuid.NewString())
	req = addRouteParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	RequestMilestonePayment(&testPaymentsService{}, testControllerLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRequestFinalPaymentUsesFinalType(t *testing.T) {
	orderID := uuid.New()
	var captured payments.RequestMilestoneInput
	svc := &testPaymentsService{
		requestFn: func(ctx context.Context, input payments.RequestMilestoneInput) (*payments.MilestoneIntent, error) {
			captured = input
			return &payments.MilestoneIntent{OrderID: input.OrderID, MilestoneType: input.MilestoneType}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/payments/final", nil)
	req = withActor(req, uuid.NewString())
	req = addRouteParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	RequestFinalPayment(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d (%s)", resp.Code, resp.Body.String())
	}
	if captured.MilestoneType != enums.MilestoneTypeFinal {
		t.Fatalf("unexpected milestone type %s", captured.MilestoneType)
	}
}

func TestRequestMilestonePaymentInvalidOrderID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/not-a-uuid/payments",
		strings.NewReader(`{"milestone_type":"deposit"}`))
	req = withActor(req, uuid.NewString())
	req = addRouteParam(req, "orderId", "not-a-uuid")
	resp := httptest.NewRecorder()
	RequestMilestonePayment(&testPaymentsService{}, testControllerLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
