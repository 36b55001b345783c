package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents the canonical catalog listing for a store.
type Product struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID           uuid.UUID        `gorm:"column:store_id;type:uuid;not null;index"`
	PrimaryCategoryID *uuid.UUID       `gorm:"column:primary_category_id;type:uuid"`
	Name              string           `gorm:"column:name;not null"`
	Slug              string           `gorm:"column:slug;not null;uniqueIndex"`
	Description       *string          `gorm:"column:description"`
	Price             decimal.Decimal  `gorm:"column:price;type:numeric(10,2);not null"`
	IsActive          bool             `gorm:"column:is_active;not null;default:true"`
	PrimaryCategory   *ProductCategory `gorm:"foreignKey:PrimaryCategoryID"`
	Variants          []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductCategory groups products for coupon scoping and browsing.
type ProductCategory struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID   uuid.UUID `gorm:"column:store_id;type:uuid;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	Slug      string    `gorm:"column:slug;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// ProductVariant is a sellable variation of a product. A nil Price means
// the variant sells at the parent product's price.
type ProductVariant struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index"`
	Name      string           `gorm:"column:name;not null"`
	SKU       *string          `gorm:"column:sku;uniqueIndex"`
	Price     *decimal.Decimal `gorm:"column:price;type:numeric(10,2)"`
	IsActive  bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
