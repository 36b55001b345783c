package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	"github.com/storefront-labs/storefront-backend/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// Calculate returns the raw discount a coupon yields against the given
// price. The result is capped at the coupon's max discount amount when
// one is set, never exceeds the price itself, and never goes below
// zero. A flat coupon worth more than the price reduces it to zero,
// not past it.
func Calculate(c models.Coupon, price decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch c.DiscountType {
	case enums.CouponDiscountPercent:
		discount = price.Mul(c.DiscountValue).Div(hundred)
	case enums.CouponDiscountFlat:
		discount = c.DiscountValue
	default:
		return decimal.Zero
	}
	if c.MaxDiscountAmount != nil && discount.GreaterThan(*c.MaxDiscountAmount) {
		discount = *c.MaxDiscountAmount
	}
	if discount.GreaterThan(price) {
		discount = price
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}
