package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront-labs/storefront-backend/pkg/enums"
)

// Coupon is a discount definition. Nil limits mean unlimited.
type Coupon struct {
	ID                uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code              string                   `gorm:"column:code;not null;uniqueIndex"`
	DiscountType      enums.CouponDiscountType `gorm:"column:discount_type;type:coupon_discount_type;not null"`
	DiscountValue     decimal.Decimal          `gorm:"column:discount_value;type:numeric(10,2);not null"`
	MaxDiscountAmount *decimal.Decimal         `gorm:"column:max_discount_amount;type:numeric(10,2)"`
	MinOrderAmount    decimal.Decimal          `gorm:"column:min_order_amount;type:numeric(10,2);not null;default:0"`
	UsageLimitPerUser int                      `gorm:"column:usage_limit_per_user;not null;default:1"`
	TotalUserLimit    *int                     `gorm:"column:total_user_limit"`
	Scope             enums.CouponScope        `gorm:"column:scope;type:coupon_scope;not null;default:'cart'"`
	Active            bool                     `gorm:"column:active;not null;default:true"`
	IsPreApplied      bool                     `gorm:"column:is_pre_applied;not null;default:false"`
	StartDate         time.Time                `gorm:"column:start_date;not null"`
	EndDate           time.Time                `gorm:"column:end_date;not null"`

	ApplicableProducts   []CouponApplicableProduct  `gorm:"foreignKey:CouponID;constraint:OnDelete:CASCADE"`
	ApplicableCategories []CouponApplicableCategory `gorm:"foreignKey:CouponID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsWithinDate reports whether now falls inside the coupon's validity window.
func (c Coupon) IsWithinDate(now time.Time) bool {
	return !now.Before(c.StartDate) && !now.After(c.EndDate)
}

// CouponApplicableProduct restricts a product-scoped coupon to listed products.
type CouponApplicableProduct struct {
	CouponID  uuid.UUID `gorm:"column:coupon_id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
}

// CouponApplicableCategory restricts a category-scoped coupon to listed categories.
type CouponApplicableCategory struct {
	CouponID   uuid.UUID `gorm:"column:coupon_id;type:uuid;primaryKey"`
	CategoryID uuid.UUID `gorm:"column:category_id;type:uuid;primaryKey"`
}

// CouponUsage counts redemptions of one coupon by one user. times_used is
// incremented atomically and never decremented, refunds included.
type CouponUsage struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CouponID  uuid.UUID `gorm:"column:coupon_id;type:uuid;not null;uniqueIndex:idx_coupon_usage_coupon_user"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_coupon_usage_coupon_user"`
	TimesUsed int       `gorm:"column:times_used;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
