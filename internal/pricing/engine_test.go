package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	"github.com/storefront-labs/storefront-backend/pkg/enums"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func percentCoupon(code string, value string) models.Coupon {
	return models.Coupon{
		ID:            uuid.New(),
		Code:          code,
		DiscountType:  enums.CouponDiscountPercent,
		DiscountValue: dec(value),
		Scope:         enums.CouponScopeCart,
	}
}

func flatCoupon(code string, value string) models.Coupon {
	return models.Coupon{
		ID:            uuid.New(),
		Code:          code,
		DiscountType:  enums.CouponDiscountFlat,
		DiscountValue: dec(value),
		Scope:         enums.CouponScopeCart,
	}
}

func TestApplyNoCoupons(t *testing.T) {
	engine := NewEngine()
	lines := []Line{
		{ProductID: uuid.New(), UnitPrice: dec("25.00"), Quantity: 2},
		{ProductID: uuid.New(), UnitPrice: dec("10.00"), Quantity: 1},
	}

	res := engine.Apply(lines, nil)

	if !res.Subtotal.Equal(dec("60.00")) {
		t.Fatalf("subtotal = %s, want 60.00", res.Subtotal)
	}
	if !res.DiscountTotal.IsZero() {
		t.Fatalf("discount = %s, want 0", res.DiscountTotal)
	}
	if !res.Total.Equal(dec("60.00")) {
		t.Fatalf("total = %s, want 60.00", res.Total)
	}
	if len(res.Applied) != 0 {
		t.Fatalf("applied = %d entries, want 0", len(res.Applied))
	}
}

func TestApplyPercentCartCoupon(t *testing.T) {
	engine := NewEngine()
	lines := []Line{
		{ProductID: uuid.New(), UnitPrice: dec("25.00"), Quantity: 2}, // 50.00
		{ProductID: uuid.New(), UnitPrice: dec("10.00"), Quantity: 3}, // 30.00
	}

	res := engine.Apply(lines, []models.Coupon{percentCoupon("SAVE10", "10")})

	if !res.DiscountTotal.Equal(dec("8.00")) {
		t.Fatalf("discount = %s, want 8.00", res.DiscountTotal)
	}
	if !res.Total.Equal(dec("72.00")) {
		t.Fatalf("total = %s, want 72.00", res.Total)
	}
	if !res.Lines[0].Discount.Equal(dec("5.00")) || !res.Lines[1].Discount.Equal(dec("3.00")) {
		t.Fatalf("line discounts = %s/%s, want 5.00/3.00", res.Lines[0].Discount, res.Lines[1].Discount)
	}
	if len(res.Applied) != 1 || res.Applied[0].Code != "SAVE10" {
		t.Fatalf("applied = %+v, want one SAVE10 entry", res.Applied)
	}
	if !res.Applied[0].Amount.Equal(dec("8.00")) {
		t.Fatalf("applied amount = %s, want 8.00", res.Applied[0].Amount)
	}
}

func TestApplyFlatCouponAppliesPerEligibleLine(t *testing.T) {
	engine := NewEngine()
	lines := []Line{
		{ProductID: uuid.New(), UnitPrice: dec("20.00"), Quantity: 1},
		{ProductID: uuid.New(), UnitPrice: dec("30.00"), Quantity: 1},
	}

	res := engine.Apply(lines, []models.Coupon{flatCoupon("FIVEOFF", "5.00")})

	if !res.DiscountTotal.Equal(dec("10.00")) {
		t.Fatalf("discount = %s, want 10.00 (5.00 per line)", res.DiscountTotal)
	}
}

func TestApplyMaxDiscountAmountCapsCoupon(t *testing.T) {
	engine := NewEngine()
	capAmount := dec("3.00")
	coupon := percentCoupon("BIGSAVE", "50")
	coupon.MaxDiscountAmount = &capAmount

	res := engine.Apply([]Line{
		{ProductID: uuid.New(), UnitPrice: dec("100.00"), Quantity: 1},
	}, []models.Coupon{coupon})

	if !res.DiscountTotal.Equal(dec("3.00")) {
		t.Fatalf("discount = %s, want 3.00", res.DiscountTotal)
	}
}

func TestApplyPerLineCapAtEightyPercent(t *testing.T) {
	engine := NewEngine()

	res := engine.Apply([]Line{
		{ProductID: uuid.New(), UnitPrice: dec("10.00"), Quantity: 1},
	}, []models.Coupon{percentCoupon("ALMOSTFREE", "95")})

	if !res.DiscountTotal.Equal(dec("8.00")) {
		t.Fatalf("discount = %s, want 8.00 (80%% of 10.00)", res.DiscountTotal)
	}
	if !res.Total.Equal(dec("2.00")) {
		t.Fatalf("total = %s, want 2.00", res.Total)
	}
}

func TestApplyStackingRespectsPerLineCap(t *testing.T) {
	engine := NewEngine()
	pre := percentCoupon("LAUNCH50", "50")
	pre.IsPreApplied = true
	user := percentCoupon("EXTRA50", "50")

	res := engine.Apply([]Line{
		{ProductID: uuid.New(), UnitPrice: dec("100.00"), Quantity: 1},
	}, []models.Coupon{user, pre})

	// Pre-applied takes 50.00 first; the user coupon computes 50% of the
	// remaining 50.00 = 25.00, which fits inside the 30.00 of headroom
	// the 80% cap leaves.
	if !res.DiscountTotal.Equal(dec("75.00")) {
		t.Fatalf("discount = %s, want 75.00", res.DiscountTotal)
	}
	if len(res.Applied) != 2 {
		t.Fatalf("applied = %d entries, want 2", len(res.Applied))
	}
	if res.Applied[0].Code != "LAUNCH50" {
		t.Fatalf("first applied = %s, want pre-applied LAUNCH50", res.Applied[0].Code)
	}
	if !res.Applied[1].Amount.Equal(dec("25.00")) {
		t.Fatalf("user coupon amount = %s, want 25.00", res.Applied[1].Amount)
	}
}

func TestApplyStackingHitsCombinedCap(t *testing.T) {
	engine := NewEngine()
	pre := percentCoupon("LAUNCH60", "60")
	pre.IsPreApplied = true
	user := percentCoupon("EXTRA80", "80")

	res := engine.Apply([]Line{
		{ProductID: uuid.New(), UnitPrice: dec("100.00"), Quantity: 1},
	}, []models.Coupon{user, pre})

	// 60.00 pre-applied leaves 20.00 of headroom under the 80.00 cap;
	// the user coupon's 32.00 is clamped to 20.00.
	if !res.DiscountTotal.Equal(dec("80.00")) {
		t.Fatalf("discount = %s, want 80.00", res.DiscountTotal)
	}
	if !res.Applied[1].Amount.Equal(dec("20.00")) {
		t.Fatalf("user coupon amount = %s, want 20.00", res.Applied[1].Amount)
	}
}

func TestApplyProductScopeMatchesOnlyListedProducts(t *testing.T) {
	engine := NewEngine()
	target := uuid.New()
	other := uuid.New()
	coupon := percentCoupon("PRODONLY", "10")
	coupon.Scope = enums.CouponScopeProduct
	coupon.ApplicableProducts = []models.CouponApplicableProduct{
		{CouponID: coupon.ID, ProductID: target},
	}

	res := engine.Apply([]Line{
		{ProductID: target, UnitPrice: dec("50.00"), Quantity: 1},
		{ProductID: other, UnitPrice: dec("50.00"), Quantity: 1},
	}, []models.Coupon{coupon})

	if !res.Lines[0].Discount.Equal(dec("5.00")) {
		t.Fatalf("target line discount = %s, want 5.00", res.Lines[0].Discount)
	}
	if !res.Lines[1].Discount.IsZero() {
		t.Fatalf("other line discount = %s, want 0", res.Lines[1].Discount)
	}
}

func TestApplyCategoryScopeMatchesPrimaryCategory(t *testing.T) {
	engine := NewEngine()
	catID := uuid.New()
	coupon := percentCoupon("CATDEAL", "20")
	coupon.Scope = enums.CouponScopeCategory
	coupon.ApplicableCategories = []models.CouponApplicableCategory{
		{CouponID: coupon.ID, CategoryID: catID},
	}

	res := engine.Apply([]Line{
		{ProductID: uuid.New(), CategoryID: &catID, UnitPrice: dec("40.00"), Quantity: 1},
		{ProductID: uuid.New(), CategoryID: nil, UnitPrice: dec("40.00"), Quantity: 1},
	}, []models.Coupon{coupon})

	if !res.Lines[0].Discount.Equal(dec("8.00")) {
		t.Fatalf("category line discount = %s, want 8.00", res.Lines[0].Discount)
	}
	if !res.Lines[1].Discount.IsZero() {
		t.Fatalf("uncategorized line discount = %s, want 0", res.Lines[1].Discount)
	}
}

func TestApplyFlatBeforePercent(t *testing.T) {
	engine := NewEngine()
	flat := flatCoupon("FLAT10", "10.00")
	flat.IsPreApplied = true
	pct := percentCoupon("PCT10", "10")

	res := engine.Apply([]Line{
		{ProductID: uuid.New(), UnitPrice: dec("100.00"), Quantity: 1},
	}, []models.Coupon{pct, flat})

	// Flat pre-applied first: 10.00 off, leaving 90.00. Percent then
	// takes 10% of the remaining 90.00 = 9.00.
	if !res.Applied[1].Amount.Equal(dec("9.00")) {
		t.Fatalf("percent amount = %s, want 9.00", res.Applied[1].Amount)
	}
	if !res.DiscountTotal.Equal(dec("19.00")) {
		t.Fatalf("discount = %s, want 19.00", res.DiscountTotal)
	}
}

func TestPriorityOrdering(t *testing.T) {
	pre := flatCoupon("A", "1")
	pre.IsPreApplied = true
	flat := flatCoupon("B", "1")
	pct := percentCoupon("C", "1")

	if Priority(pre) != 10 || Priority(flat) != 40 || Priority(pct) != 60 {
		t.Fatalf("priorities = %d/%d/%d, want 10/40/60", Priority(pre), Priority(flat), Priority(pct))
	}

	coupons := []models.Coupon{pct, flat, pre}
	SortByPriority(coupons)
	if coupons[0].Code != "A" || coupons[1].Code != "B" || coupons[2].Code != "C" {
		t.Fatalf("sorted order = %s,%s,%s, want A,B,C", coupons[0].Code, coupons[1].Code, coupons[2].Code)
	}
}

func TestCalculateClampsAtPrice(t *testing.T) {
	flat := flatCoupon("BIGFLAT", "150.00")
	if got := Calculate(flat, dec("100.00")); !got.Equal(dec("100.00")) {
		t.Fatalf("flat discount = %s, want 100.00", got)
	}

	pct := percentCoupon("OVERPCT", "250")
	if got := Calculate(pct, dec("40.00")); !got.Equal(dec("40.00")) {
		t.Fatalf("percent discount = %s, want 40.00", got)
	}
}

func TestCalculateFloorsNegativeAtZero(t *testing.T) {
	coupon := flatCoupon("NEG", "0")
	coupon.DiscountValue = dec("-5.00")

	if got := Calculate(coupon, dec("10.00")); !got.IsZero() {
		t.Fatalf("discount = %s, want 0", got)
	}
}
