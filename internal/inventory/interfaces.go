package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	"github.com/storefront-labs/storefront-backend/pkg/pagination"
)

// ItemKey identifies one stock row. A nil VariantID addresses the
// product-level record.
type ItemKey struct {
	StoreID   uuid.UUID
	ProductID uuid.UUID
	VariantID *uuid.UUID
}

// Repository defines persistence operations for stock records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindForUpdate(ctx context.Context, key ItemKey) (*models.InventoryRecord, error)
	Find(ctx context.Context, key ItemKey) (*models.InventoryRecord, error)
	Decrement(ctx context.Context, key ItemKey, qty int) (int64, error)
	Increment(ctx context.Context, key ItemKey, qty int) (int64, error)
	Create(ctx context.Context, record *models.InventoryRecord) (*models.InventoryRecord, error)
	SetQuantity(ctx context.Context, key ItemKey, qty int) (int64, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) (*RecordList, error)
}

// RecordList wraps paginated stock records plus the next page cursor.
type RecordList struct {
	Records    []models.InventoryRecord `json:"records"`
	NextCursor string                   `json:"next_cursor,omitempty"`
}
