package enums

import "fmt"

// CouponDiscountType distinguishes percentage from flat-amount coupons.
type CouponDiscountType string

const (
	CouponDiscountPercent CouponDiscountType = "percent"
	CouponDiscountFlat    CouponDiscountType = "flat"
)

var validCouponDiscountTypes = []CouponDiscountType{
	CouponDiscountPercent,
	CouponDiscountFlat,
}

// String implements fmt.Stringer.
func (c CouponDiscountType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CouponDiscountType.
func (c CouponDiscountType) IsValid() bool {
	for _, candidate := range validCouponDiscountTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCouponDiscountType converts raw input into a CouponDiscountType.
func ParseCouponDiscountType(value string) (CouponDiscountType, error) {
	for _, candidate := range validCouponDiscountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coupon discount type %q", value)
}

// CouponScope restricts which cart lines a coupon may discount.
type CouponScope string

const (
	CouponScopeCart     CouponScope = "cart"
	CouponScopeProduct  CouponScope = "product"
	CouponScopeCategory CouponScope = "category"
)

var validCouponScopes = []CouponScope{
	CouponScopeCart,
	CouponScopeProduct,
	CouponScopeCategory,
}

// String implements fmt.Stringer.
func (c CouponScope) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CouponScope.
func (c CouponScope) IsValid() bool {
	for _, candidate := range validCouponScopes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCouponScope converts raw input into a CouponScope.
func ParseCouponScope(value string) (CouponScope, error) {
	for _, candidate := range validCouponScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coupon scope %q", value)
}
