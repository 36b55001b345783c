package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	"github.com/storefront-labs/storefront-backend/pkg/pagination"
)

// Repository defines read/write access to the product catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	FindVariant(ctx context.Context, variantID uuid.UUID) (*models.ProductVariant, error)
	FindCategory(ctx context.Context, categoryID uuid.UUID) (*models.ProductCategory, error)
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	CreateVariant(ctx context.Context, variant *models.ProductVariant) (*models.ProductVariant, error)
	CreateCategory(ctx context.Context, category *models.ProductCategory) (*models.ProductCategory, error)
	ListActiveProducts(ctx context.Context, storeID uuid.UUID, params pagination.Params) (*ProductList, error)
}

// ProductList wraps paginated products plus the next page cursor.
type ProductList struct {
	Products   []models.Product `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}
