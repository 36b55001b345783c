package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storefront-labs/storefront-backend/api/middleware"
	"github.com/storefront-labs/storefront-backend/internal/orders"
	"github.com/storefront-labs/storefront-backend/internal/pricing"
	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	"github.com/storefront-labs/storefront-backend/pkg/enums"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/pagination"
)

type stubOrdersService struct {
	placeFn  func(ctx context.Context, userID uuid.UUID, input orders.PlaceOrderInput) (*models.Order, error)
	reorder  func(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	quoteFn  func(ctx context.Context, userID uuid.UUID, couponCode string) (*pricing.Result, error)
	updateFn func(ctx context.Context, input orders.UpdateStatusInput) (*models.Order, error)
	getFn    func(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	listFn   func(ctx context.Context, userID uuid.UUID, params pagination.Params) (*orders.OrderList, error)
}

func (s *stubOrdersService) PlaceOrder(ctx context.Context, userID uuid.UUID, input orders.PlaceOrderInput) (*models.Order, error) {
	return s.placeFn(ctx, userID, input)
}

func (s *stubOrdersService) Reorder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	return s.reorder(ctx, userID, orderID)
}

func (s *stubOrdersService) Quote(ctx context.Context, userID uuid.UUID, couponCode string) (*pricing.Result, error) {
	return s.quoteFn(ctx, userID, couponCode)
}

func (s *stubOrdersService) UpdateStatus(ctx context.Context, input orders.UpdateStatusInput) (*models.Order, error) {
	return s.updateFn(ctx, input)
}

func (s *stubOrdersService) Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	return s.getFn(ctx, userID, orderID)
}

func (s *stubOrdersService) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*orders.OrderList, error) {
	return s.listFn(ctx, userID, params)
}

func authedRequest(method, target string, body string, userID uuid.UUID) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := middleware.WithUserID(req.Context(), userID.String())
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func decodeEnvelope(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope
}

func TestPlaceOrderReturnsCreated(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrdersService{
		placeFn: func(_ context.Context, gotUser uuid.UUID, input orders.PlaceOrderInput) (*models.Order, error) {
			if gotUser != userID {
				t.Fatalf("expected user %s got %s", userID, gotUser)
			}
			if input.CouponCode == nil || *input.CouponCode != "SAVE10" {
				t.Fatalf("expected coupon code SAVE10, got %v", input.CouponCode)
			}
			return &models.Order{ID: orderID, Status: enums.OrderStatusPending}, nil
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/order-place", `{"coupon_code":"SAVE10"}`, userID)
	resp := httptest.NewRecorder()
	PlaceOrder(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestPlaceOrderRequiresAuth(t *testing.T) {
	svc := &stubOrdersService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/order-place", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	PlaceOrder(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestPlaceOrderMapsEmptyCart(t *testing.T) {
	userID := uuid.New()
	svc := &stubOrdersService{
		placeFn: func(context.Context, uuid.UUID, orders.PlaceOrderInput) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/order-place", `{}`, userID)
	resp := httptest.NewRecorder()
	PlaceOrder(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	envelope := decodeEnvelope(t, resp)
	errBody, _ := envelope["error"].(map[string]any)
	if errBody["code"] != string(pkgerrors.CodeEmptyCart) {
		t.Fatalf("expected code %s got %v", pkgerrors.CodeEmptyCart, errBody["code"])
	}
}

func TestReorderParsesOrderID(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrdersService{
		reorder: func(_ context.Context, gotUser, gotOrder uuid.UUID) (*models.Order, error) {
			if gotOrder != orderID {
				t.Fatalf("expected order %s got %s", orderID, gotOrder)
			}
			return &models.Order{ID: uuid.New(), ReorderedFrom: &orderID}, nil
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/re-order/"+orderID.String(), "", userID)
	req = withURLParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	Reorder(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestReorderRejectsBadOrderID(t *testing.T) {
	userID := uuid.New()
	svc := &stubOrdersService{}

	req := authedRequest(http.MethodPost, "/api/v1/re-order/not-a-uuid", "", userID)
	req = withURLParam(req, "orderId", "not-a-uuid")
	resp := httptest.NewRecorder()
	Reorder(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListOrdersPassesPagination(t *testing.T) {
	userID := uuid.New()
	svc := &stubOrdersService{
		listFn: func(_ context.Context, _ uuid.UUID, params pagination.Params) (*orders.OrderList, error) {
			if params.Limit != 5 {
				t.Fatalf("expected limit 5 got %d", params.Limit)
			}
			if params.Cursor != "abc" {
				t.Fatalf("expected cursor abc got %s", params.Cursor)
			}
			return &orders.OrderList{}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/orders?limit=5&cursor=abc", "", userID)
	resp := httptest.NewRecorder()
	ListOrders(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestListOrdersRejectsBadLimit(t *testing.T) {
	userID := uuid.New()
	svc := &stubOrdersService{}

	req := authedRequest(http.MethodGet, "/api/v1/orders?limit=zero", "", userID)
	resp := httptest.NewRecorder()
	ListOrders(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrdersService{
		getFn: func(context.Context, uuid.UUID, uuid.UUID) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), "", userID)
	req = withURLParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	GetOrder(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestUpdateOrderStatusParsesTransition(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{
		updateFn: func(_ context.Context, input orders.UpdateStatusInput) (*models.Order, error) {
			if input.NewStatus != enums.OrderStatusConfirmed {
				t.Fatalf("expected confirmed got %s", input.NewStatus)
			}
			if input.Note == nil || *input.Note != "payment verified" {
				t.Fatalf("expected note, got %v", input.Note)
			}
			return &models.Order{ID: orderID, Status: enums.OrderStatusConfirmed}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/status",
		strings.NewReader(`{"status":"confirmed","note":"payment verified"}`))
	req = withURLParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	UpdateOrderStatus(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUpdateOrderStatusRejectsUnknownStatus(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/status",
		strings.NewReader(`{"status":"teleported"}`))
	req = withURLParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	UpdateOrderStatus(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
