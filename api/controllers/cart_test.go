package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	cartsvc "github.com/storefront-labs/storefront-backend/internal/cart"
	"github.com/storefront-labs/storefront-backend/internal/pricing"
	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/types"
)

type stubCartService struct {
	upsertFn func(ctx context.Context, userID uuid.UUID, inputs []cartsvc.ItemInput) ([]models.CartItem, error)
	listFn   func(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	removeFn func(ctx context.Context, userID, itemID uuid.UUID) error
}

func (s *stubCartService) UpsertItems(ctx context.Context, userID uuid.UUID, inputs []cartsvc.ItemInput) ([]models.CartItem, error) {
	return s.upsertFn(ctx, userID, inputs)
}

func (s *stubCartService) List(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	return s.listFn(ctx, userID)
}

func (s *stubCartService) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	return s.removeFn(ctx, userID, itemID)
}

func (s *stubCartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func TestCartListReturnsItems(t *testing.T) {
	userID := uuid.New()
	svc := &stubCartService{
		listFn: func(_ context.Context, gotUser uuid.UUID) ([]models.CartItem, error) {
			if gotUser != userID {
				t.Fatalf("expected user %s got %s", userID, gotUser)
			}
			return []models.CartItem{{ID: uuid.New(), UserID: userID, Quantity: 2}}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/cart", "", userID)
	resp := httptest.NewRecorder()
	CartList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCartUpsertForwardsItems(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	svc := &stubCartService{
		upsertFn: func(_ context.Context, _ uuid.UUID, inputs []cartsvc.ItemInput) ([]models.CartItem, error) {
			if len(inputs) != 1 {
				t.Fatalf("expected 1 input got %d", len(inputs))
			}
			if inputs[0].ProductID != productID || inputs[0].Quantity != 3 {
				t.Fatalf("unexpected input %+v", inputs[0])
			}
			return []models.CartItem{{ID: uuid.New(), ProductID: productID, Quantity: 3}}, nil
		},
	}

	body := `{"items":[{"product_id":"` + productID.String() + `","quantity":3}]}`
	req := authedRequest(http.MethodPut, "/api/v1/cart", body, userID)
	resp := httptest.NewRecorder()
	CartUpsert(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCartUpsertRejectsZeroQuantity(t *testing.T) {
	userID := uuid.New()
	svc := &stubCartService{}

	body := `{"items":[{"product_id":"` + uuid.NewString() + `","quantity":0}]}`
	req := authedRequest(http.MethodPut, "/api/v1/cart", body, userID)
	resp := httptest.NewRecorder()
	CartUpsert(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartRemoveItemNotFound(t *testing.T) {
	userID := uuid.New()
	itemID := uuid.New()
	svc := &stubCartService{
		removeFn: func(context.Context, uuid.UUID, uuid.UUID) error {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		},
	}

	req := authedRequest(http.MethodDelete, "/api/v1/cart/"+itemID.String(), "", userID)
	req = withURLParam(req, "itemId", itemID.String())
	resp := httptest.NewRecorder()
	CartRemoveItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCartApplyCouponReturnsQuote(t *testing.T) {
	userID := uuid.New()
	svc := &stubOrdersService{
		quoteFn: func(_ context.Context, _ uuid.UUID, couponCode string) (*pricing.Result, error) {
			if couponCode != "SAVE10" {
				t.Fatalf("expected SAVE10 got %s", couponCode)
			}
			return &pricing.Result{
				Subtotal:      decimal.NewFromInt(100),
				DiscountTotal: decimal.NewFromInt(10),
				Total:         decimal.NewFromInt(90),
				Applied:       types.AppliedDiscounts{{Code: "SAVE10"}},
			}, nil
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/cart/apply-coupon", `{"code":"SAVE10"}`, userID)
	resp := httptest.NewRecorder()
	CartApplyCoupon(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	envelope := decodeEnvelope(t, resp)
	data, _ := envelope["data"].(map[string]any)
	if data["total"] != "90" {
		t.Fatalf("expected total 90 got %v", data["total"])
	}
}

func TestCartApplyCouponUnknownCode(t *testing.T) {
	userID := uuid.New()
	svc := &stubOrdersService{
		quoteFn: func(context.Context, uuid.UUID, string) (*pricing.Result, error) {
			return nil, pkgerrors.New(pkgerrors.CodeCouponNotFound, "invalid or inactive coupon")
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/cart/apply-coupon", `{"code":"NOPE"}`, userID)
	resp := httptest.NewRecorder()
	CartApplyCoupon(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
