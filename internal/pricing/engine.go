package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	"github.com/storefront-labs/storefront-backend/pkg/enums"
	"github.com/storefront-labs/storefront-backend/pkg/types"
)

// maxLineDiscountRatio bounds the combined discount on any single line
// to 80% of its undiscounted subtotal.
var maxLineDiscountRatio = decimal.NewFromFloat(0.80)

// Line is one cart line as seen by the pricing engine. CategoryID is
// the product's primary category and drives category-scoped coupons.
type Line struct {
	ProductID  uuid.UUID
	VariantID  *uuid.UUID
	CategoryID *uuid.UUID
	UnitPrice  decimal.Decimal
	Quantity   int
}

// Subtotal is the undiscounted line amount.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineResult carries one line's priced outcome.
type LineResult struct {
	Line
	LineSubtotal decimal.Decimal
	Discount     decimal.Decimal
	LineTotal    decimal.Decimal
}

// Result is the fully priced cart.
type Result struct {
	Lines         []LineResult
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	Total         decimal.Decimal
	Applied       types.AppliedDiscounts
}

// Engine prices a set of lines against zero or more coupons.
type Engine struct{}

// NewEngine returns a pricing engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Apply prices the lines with the given coupons. Coupons are applied in
// priority order; each eligible line absorbs at most the lesser of the
// coupon's computed discount and whatever headroom the 80% cap leaves.
// The input coupon slice is not modified.
func (e *Engine) Apply(lines []Line, coupons []models.Coupon) Result {
	ordered := make([]models.Coupon, len(coupons))
	copy(ordered, coupons)
	SortByPriority(ordered)

	results := make([]LineResult, len(lines))
	subtotal := decimal.Zero
	for i, line := range lines {
		base := line.Subtotal()
		results[i] = LineResult{
			Line:         line,
			LineSubtotal: base,
			Discount:     decimal.Zero,
			LineTotal:    base,
		}
		subtotal = subtotal.Add(base)
	}

	var applied types.AppliedDiscounts
	for _, coupon := range ordered {
		contribution := decimal.Zero
		for i := range results {
			if !eligible(coupon, results[i].Line) {
				continue
			}
			base := results[i].LineSubtotal
			remaining := base.Sub(results[i].Discount)
			if !remaining.IsPositive() {
				continue
			}
			discount := Calculate(coupon, remaining)
			allowed := base.Mul(maxLineDiscountRatio).Sub(results[i].Discount)
			if discount.GreaterThan(allowed) {
				discount = allowed
			}
			if !discount.IsPositive() {
				continue
			}
			discount = discount.Round(2)
			results[i].Discount = results[i].Discount.Add(discount)
			contribution = contribution.Add(discount)
		}
		if contribution.IsPositive() {
			applied = append(applied, types.AppliedDiscount{
				CouponID: coupon.ID,
				Code:     coupon.Code,
				Type:     coupon.DiscountType.String(),
				Amount:   contribution,
			})
		}
	}

	discountTotal := decimal.Zero
	for i := range results {
		results[i].LineTotal = results[i].LineSubtotal.Sub(results[i].Discount)
		discountTotal = discountTotal.Add(results[i].Discount)
	}

	total := subtotal.Sub(discountTotal)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Result{
		Lines:         results,
		Subtotal:      subtotal,
		DiscountTotal: discountTotal,
		Total:         total,
		Applied:       applied,
	}
}

// eligible reports whether a coupon's scope covers the line.
func eligible(c models.Coupon, line Line) bool {
	switch c.Scope {
	case enums.CouponScopeCart:
		return true
	case enums.CouponScopeProduct:
		for _, p := range c.ApplicableProducts {
			if p.ProductID == line.ProductID {
				return true
			}
		}
		return false
	case enums.CouponScopeCategory:
		if line.CategoryID == nil {
			return false
		}
		for _, cat := range c.ApplicableCategories {
			if cat.CategoryID == *line.CategoryID {
				return true
			}
		}
		return false
	default:
		return false
	}
}
