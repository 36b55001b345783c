package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryRecord tracks on-hand stock per store/product or store/variant.
// At most one row exists per (store_id, product_id, variant_id) triple; a
// NULL variant_id row covers the product itself.
type InventoryRecord struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID   uuid.UUID  `gorm:"column:store_id;type:uuid;not null;uniqueIndex:idx_inventory_store_product_variant"`
	ProductID uuid.UUID  `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_inventory_store_product_variant"`
	VariantID *uuid.UUID `gorm:"column:variant_id;type:uuid;uniqueIndex:idx_inventory_store_product_variant"`
	Quantity  int        `gorm:"column:quantity;not null;default:0"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
