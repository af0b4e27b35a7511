package controllers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/internal/assignments"
)

type testAssignmentsService struct {
	assignFn func(ctx context.Context, input assignments.AssignInput) (*assignments.AssignResult, error)
}

func (s *testAssignmentsService) Assign(ctx context.Context, input assignments.AssignInput) (*assignments.AssignResult, error) {
	if s.assignFn != nil {
		return s.assignFn(ctx, input)
	}
	return &assignments.AssignResult{}, nil
}

func TestAssignRepSuccess(t *testing.T) {
	orderID := uuid.New()
	repID := uuid.New()
	actor := uuid.New()
	var captured assignments.AssignInput
	svc := &testAssignmentsService{
		assignFn: func(ctx context.Context, input assignments.AssignInput) (*assignments.AssignResult, error) {
			captured = input
			return &assignments.AssignResult{
				AssignmentID: uuid.New(),
				OrderID:      input.OrderID,
				RepUserID:    input.RepUserID,
			}, nil
		},
	}

	body := fmt.Sprintf(`{"order_id":%q,"rep_user_id":%q}`, orderID, repID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments", strings.NewReader(body))
	req = withActor(req, actor.String())
	resp := httptest.NewRecorder()
	AssignRep(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d (%s)", resp.Code, resp.Body.String())
	}
	if captured.OrderID != orderID || captured.RepUserID != repID {
		t.Fatalf("unexpected input %+v", captured)
	}
	if captured.AssignedByUserID != actor {
		t.Fatalf("expected assigner %s got %s", actor, captured.AssignedByUserID)
	}
}

func TestAssignRepRejectsMissingFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments", strings.NewReader(`{}`))
	req = withActor(req, uuid.NewString())
	resp := httptest.NewRecorder()
	AssignRep(&testAssignmentsService{}, testControllerLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAssignRepRequiresActor(t *testing.T) {
	body := fmt.Sprintf(`{"order_id":%q,"rep_user_id":%q}`, uuid.New(), uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments", strings.NewReader(body))
	resp := httptest.NewRecorder()
	AssignRep(&testAssignmentsService{}, testControllerLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
