package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/storefront-labs/storefront-backend/internal/notifications"
	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
)

type stubNotificationsService struct {
	listFn    func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error)
	markFn    func(ctx context.Context, userID, notificationID uuid.UUID) error
	markAllFn func(ctx context.Context, userID uuid.UUID) (int64, error)
}

func (s *stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return s.listFn(ctx, params)
}

func (s *stubNotificationsService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.markFn(ctx, userID, notificationID)
}

func (s *stubNotificationsService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.markAllFn(ctx, userID)
}

func TestListNotificationsParsesQuery(t *testing.T) {
	userID := uuid.New()
	svc := &stubNotificationsService{
		listFn: func(_ context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
			if params.UserID != userID {
				t.Fatalf("expected user %s got %s", userID, params.UserID)
			}
			if params.Limit != 10 || !params.UnreadOnly {
				t.Fatalf("unexpected params %+v", params)
			}
			return &notifications.ListResult{Items: []models.Notification{}}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/notifications?limit=10&unreadOnly=true", "", userID)
	resp := httptest.NewRecorder()
	ListNotifications(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestListNotificationsRejectsBadUnreadOnly(t *testing.T) {
	userID := uuid.New()
	svc := &stubNotificationsService{}

	req := authedRequest(http.MethodGet, "/api/v1/notifications?unreadOnly=maybe", "", userID)
	resp := httptest.NewRecorder()
	ListNotifications(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestMarkNotificationRead(t *testing.T) {
	userID := uuid.New()
	notificationID := uuid.New()
	svc := &stubNotificationsService{
		markFn: func(_ context.Context, gotUser, gotNotification uuid.UUID) error {
			if gotUser != userID || gotNotification != notificationID {
				t.Fatalf("unexpected args %s %s", gotUser, gotNotification)
			}
			return nil
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/notifications/"+notificationID.String()+"/read", "", userID)
	req = withURLParam(req, "id", notificationID.String())
	resp := httptest.NewRecorder()
	MarkNotificationRead(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestMarkNotificationReadNotFound(t *testing.T) {
	userID := uuid.New()
	notificationID := uuid.New()
	svc := &stubNotificationsService{
		markFn: func(context.Context, uuid.UUID, uuid.UUID) error {
			return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/notifications/"+notificationID.String()+"/read", "", userID)
	req = withURLParam(req, "id", notificationID.String())
	resp := httptest.NewRecorder()
	MarkNotificationRead(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestMarkAllNotificationsRead(t *testing.T) {
	userID := uuid.New()
	svc := &stubNotificationsService{
		markAllFn: func(_ context.Context, gotUser uuid.UUID) (int64, error) {
			if gotUser != userID {
				t.Fatalf("expected user %s got %s", userID, gotUser)
			}
			return 4, nil
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/notifications/read-all", "", userID)
	resp := httptest.NewRecorder()
	MarkAllNotificationsRead(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	envelope := decodeEnvelope(t, resp)
	data, _ := envelope["data"].(map[string]any)
	if data["updated"] != float64(4) {
		t.Fatalf("expected 4 updated got %v", data["updated"])
	}
}
