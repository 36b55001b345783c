package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one line in a user's active cart. Prices are not stored on
// the cart; they resolve from the catalog at placement time.
type CartItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_cart_user_product_variant"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_user_product_variant"`
	VariantID *uuid.UUID      `gorm:"column:variant_id;type:uuid;uniqueIndex:idx_cart_user_product_variant"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Product   *Product        `gorm:"foreignKey:ProductID"`
	Variant   *ProductVariant `gorm:"foreignKey:VariantID"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
