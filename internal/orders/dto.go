package orders

import (
	"github.com/google/uuid"

	"github.com/storefront-labs/storefront-backend/pkg/enums"
)

// PlaceOrderInput carries the optional knobs of a checkout request. The
// cart itself is read server-side; clients never post line items.
type PlaceOrderInput struct {
	CouponCode        *string
	ShippingAddressID *uuid.UUID
}

// UpdateStatusInput moves an order along its lifecycle.
type UpdateStatusInput struct {
	OrderID   uuid.UUID
	NewStatus enums.OrderStatus
	Note      *string
}
