package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront-labs/storefront-backend/pkg/enums"
)

// OrderPlacedEvent signals a successfully committed order.
type OrderPlacedEvent struct {
	OrderID       uuid.UUID       `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	UserID        uuid.UUID       `json:"user_id"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	Total         decimal.Decimal `json:"total"`
	CouponCode    *string         `json:"coupon_code,omitempty"`
	ItemCount     int             `json:"item_count"`
	PlacedAt      time.Time       `json:"placed_at"`
}

// OrderReorderedEvent is emitted when a past order is replayed into a new one.
type OrderReorderedEvent struct {
	OriginalOrderID uuid.UUID `json:"original_order_id"`
	OrderID         uuid.UUID `json:"order_id"`
	UserID          uuid.UUID `json:"user_id"`
}

// OrderStatusChangedEvent records every lifecycle transition.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	UserID     uuid.UUID         `json:"user_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	Note       string            `json:"note,omitempty"`
	ChangedAt  time.Time         `json:"changed_at"`
}

// CouponDeactivatedEvent is emitted when a coupon is lazily deactivated
// after its window ends or its global usage limit is consumed.
type CouponDeactivatedEvent struct {
	CouponID uuid.UUID `json:"coupon_id"`
	Code     string    `json:"code"`
	Reason   string    `json:"reason"`
}

// InventoryRestoredEvent reports stock returned by a cancellation or return.
type InventoryRestoredEvent struct {
	OrderID   uuid.UUID  `json:"order_id"`
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity"`
}
