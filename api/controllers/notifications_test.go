package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/craftlinehq/craftline-backend/api/middleware"
	"github.com/craftlinehq/craftline-backend/internal/notifications"
	"github.com/craftlinehq/craftline-backend/pkg/logger"
)

type testNotificationsService struct {
	markReadFn    func(ctx context.Context, recipientID, notificationID uuid.UUID) error
	markAllReadFn func(ctx context.Context, recipientID uuid.UUID) (int64, error)
	listFn        func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error)
}

func (s *testNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return nil, nil
}

func (s *testNotificationsService) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	if s.markReadFn != nil {
		return s.markReadFn(ctx, recipientID, notificationID)
	}
	return nil
}

func (s *testNotificationsService) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	if s.markAllReadFn != nil {
		return s.markAllReadFn(ctx, recipientID)
	}
	return 0, nil
}

func TestMarkNotificationReadSuccess(t *testing.T) {
	recipientID := uuid.New()
	notificationID := uuid.New()
	called := false
	svc := &testNotificationsService{
		markReadFn: func(ctx context.Context, rid, nid uuid.UUID) error {
			called = true
			if rid != recipientID {
				t.Fatalf("unexpected recipient %s", rid)
			}
			if nid != notificationID {
				t.Fatalf("unexpected notification %s", nid)
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/"+notificationID.String()+"/read", nil)
	req = withActor(req, recipientID.String())
	req = addRouteParam(req, "notificationId", notificationID.String())

	resp := httptest.NewRecorder()
	handler := MarkNotificationRead(svc, testControllerLogger())
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["status"] != "read" {
		t.Fatal("response missing read status")
	}
}

func TestMarkNotificationReadMissingActor(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/"+uuid.NewString()+"/read", nil)
	req = addRouteParam(req, "notificationId", uuid.NewString())
	resp := httptest.NewRecorder()
	handler := MarkNotificationRead(&testNotificationsService{}, testControllerLogger())
	handler(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestMarkNotificationReadInvalidActor(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/"+uuid.NewString()+"/read", nil)
	req = withActor(req, "bad")
	req = addRouteParam(req, "notificationId", uuid.NewString())
	resp := httptest.NewRecorder()
	handler := MarkNotificationRead(&testNotificationsService{}, testControllerLogger())
	handler(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestMarkNotificationReadInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/invalid/read", nil)
	req = withActor(req, uuid.NewString())
	req = addRouteParam(req, "notificationId", "invalid")
	resp := httptest.NewRecorder()
	handler := MarkNotificationRead(&testNotificationsService{}, testControllerLogger())
	handler(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestMarkAllNotificationsReadSuccess(t *testing.T) {
	recipientID := uuid.New()
	called := false
	svc := &testNotificationsService{
		markAllReadFn: func(ctx context.Context, rid uuid.UUID) (int64, error) {
			called = true
			if rid != recipientID {
				t.Fatalf("unexpected recipient %s", rid)
			}
			return 5, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/read-all", nil)
	req = withActor(req, recipientID.String())
	resp := httptest.NewRecorder()
	handler := MarkAllNotificationsRead(svc, testControllerLogger())
	handler(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
	var envelope struct {
		Data map[string]float64 `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["updated"] != 5 {
		t.Fatalf("expected updated=5 got %v", envelope.Data["updated"])
	}
}

func TestListNotificationsForwardsQuery(t *testing.T) {
	recipientID := uuid.New()
	var captured notifications.ListParams
	svc := &testNotificationsService{
		listFn: func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
			captured = params
			return &notifications.ListResult{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=25&cursor=abc&unreadOnly=true", nil)
	req = withActor(req, recipientID.String())
	resp := httptest.NewRecorder()
	handler := ListNotifications(svc, testControllerLogger())
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if captured.RecipientID != recipientID {
		t.Fatalf("unexpected recipient %s", captured.RecipientID)
	}
	if captured.Limit != 25 || captured.Cursor != "abc" || !captured.UnreadOnly {
		t.Fatalf("query params not forwarded: %+v", captured)
	}
}

func TestListNotificationsRejectsBadLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=zero", nil)
	req = withActor(req, uuid.NewString())
	resp := httptest.NewRecorder()
	handler := ListNotifications(&testNotificationsService{}, testControllerLogger())
	handler(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func withActor(req *http.Request, id string) *http.Request {
	return req.WithContext(middleware.WithActorID(req.Context(), id))
}

func testControllerLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}
