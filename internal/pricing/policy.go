package pricing

import (
	"sort"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	"github.com/storefront-labs/storefront-backend/pkg/enums"
)

// Application priorities. Lower numbers apply first so that pre-applied
// promotions consume line value before user-entered codes, and flat
// discounts land before percent discounts.
const (
	priorityPreApplied = 10
	priorityFlat       = 40
	priorityPercent    = 60
)

// Priority returns the application order for a coupon. Pre-applied
// coupons always win regardless of their discount type.
func Priority(c models.Coupon) int {
	if c.IsPreApplied {
		return priorityPreApplied
	}
	if c.DiscountType == enums.CouponDiscountPercent {
		return priorityPercent
	}
	return priorityFlat
}

// SortByPriority orders coupons for application. The sort is stable so
// coupons with equal priority keep their incoming order.
func SortByPriority(coupons []models.Coupon) {
	sort.SliceStable(coupons, func(i, j int) bool {
		return Priority(coupons[i]) < Priority(coupons[j])
	})
}
