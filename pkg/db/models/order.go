package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront-labs/storefront-backend/pkg/enums"
	"github.com/storefront-labs/storefront-backend/pkg/types"
)

// Order is the placed-order aggregate root. Monetary fields and the
// discount breakdown are snapshots taken at placement and never recomputed.
type Order struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber       string                 `gorm:"column:order_number;not null;uniqueIndex"`
	UserID            uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Status            enums.OrderStatus      `gorm:"column:status;type:order_status;not null;default:'pending'"`
	Subtotal          decimal.Decimal        `gorm:"column:subtotal;type:numeric(10,2);not null"`
	DiscountAmount    decimal.Decimal        `gorm:"column:discount_amount;type:numeric(10,2);not null;default:0"`
	TotalAmount       decimal.Decimal        `gorm:"column:total_amount;type:numeric(10,2);not null"`
	CouponID          *uuid.UUID             `gorm:"column:coupon_id;type:uuid"`
	CouponCode        *string                `gorm:"column:coupon_code"`
	Discounts         types.AppliedDiscounts `gorm:"column:discounts;type:jsonb;serializer:json"`
	ShippingAddressID *uuid.UUID             `gorm:"column:shipping_address_id;type:uuid"`
	ReorderedFrom     *uuid.UUID             `gorm:"column:reordered_from;type:uuid"`
	Items             []OrderItem            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Tracking          []OrderTracking        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PlacedAt          time.Time              `gorm:"column:placed_at;not null"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is one purchased line with its price snapshot.
type OrderItem struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VariantID      *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	ProductName    string          `gorm:"column:product_name;not null"`
	VariantName    *string         `gorm:"column:variant_name"`
	UnitPrice      decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	Quantity       int             `gorm:"column:quantity;not null"`
	LineSubtotal   decimal.Decimal `gorm:"column:line_subtotal;type:numeric(10,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(10,2);not null;default:0"`
	LineTotal      decimal.Decimal `gorm:"column:line_total;type:numeric(10,2);not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// OrderTracking is an append-only status history entry.
type OrderTracking struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;type:order_status;not null"`
	Note      *string           `gorm:"column:note"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

// TableName keeps gorm on the singular table the migration creates.
func (OrderTracking) TableName() string { return "order_tracking" }
