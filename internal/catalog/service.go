package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/storefront-labs/storefront-backend/internal/inventory"
	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ResolveUnitPrice returns the effective selling price for a cart line:
// the variant's own price when set, the parent product's price otherwise.
func ResolveUnitPrice(product *models.Product, variant *models.ProductVariant) decimal.Decimal {
	if variant != nil && variant.Price != nil {
		return *variant.Price
	}
	return product.Price
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	StoreID           uuid.UUID
	PrimaryCategoryID *uuid.UUID
	Name              string
	Slug              string
	Description       *string
	Price             decimal.Decimal
	IsActive          bool
	InitialStock      int
}

// CreateVariantInput holds the validated payload to create a variant.
type CreateVariantInput struct {
	ProductID    uuid.UUID
	Name         string
	SKU          *string
	Price        *decimal.Decimal
	IsActive     bool
	InitialStock int
}

// CreateCategoryInput holds the validated payload to create a category.
type CreateCategoryInput struct {
	StoreID uuid.UUID
	Name    string
	Slug    string
}

// Service exposes catalog reads plus the back-office write operations.
// Every created product or variant gets a stock record in the same
// transaction so checkout never meets a listed item without one.
type Service interface {
	UnitPrice(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (decimal.Decimal, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, storeID uuid.UUID, params pagination.Params) (*ProductList, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	CreateVariant(ctx context.Context, input CreateVariantInput) (*models.ProductVariant, error)
	CreateCategory(ctx context.Context, input CreateCategoryInput) (*models.ProductCategory, error)
}

type service struct {
	repo  Repository
	tx    txRunner
	stock inventory.Store
}

// NewService builds the catalog service.
func NewService(repo Repository, tx txRunner, stock inventory.Store) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if stock == nil {
		return nil, fmt.Errorf("inventory store is required")
	}
	return &service{repo: repo, tx: tx, stock: stock}, nil
}

func (s *service) UnitPrice(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (decimal.Decimal, error) {
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}
	if product == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	var variant *models.ProductVariant
	if variantID != nil {
		variant, err = s.repo.FindVariant(ctx, *variantID)
		if err != nil {
			return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading variant")
		}
		if variant == nil || variant.ProductID != product.ID {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
	}
	return ResolveUnitPrice(product, variant), nil
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, storeID uuid.UUID, params pagination.Params) (*ProductList, error) {
	list, err := s.repo.ListActiveProducts(ctx, storeID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing products")
	}
	return list, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price cannot be negative")
	}
	product := &models.Product{
		StoreID:           input.StoreID,
		PrimaryCategoryID: input.PrimaryCategoryID,
		Name:              input.Name,
		Slug:              input.Slug,
		Description:       input.Description,
		Price:             input.Price,
		IsActive:          input.IsActive,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.repo.WithTx(tx).CreateProduct(ctx, product)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating product")
		}
		key := inventory.ItemKey{StoreID: created.StoreID, ProductID: created.ID}
		return s.stock.EnsureRecord(ctx, tx, key, input.InitialStock)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) CreateVariant(ctx context.Context, input CreateVariantInput) (*models.ProductVariant, error) {
	if input.Price != nil && input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant price cannot be negative")
	}
	product, err := s.repo.FindProduct(ctx, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	variant := &models.ProductVariant{
		ProductID: input.ProductID,
		Name:      input.Name,
		SKU:       input.SKU,
		Price:     input.Price,
		IsActive:  input.IsActive,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.repo.WithTx(tx).CreateVariant(ctx, variant)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating variant")
		}
		key := inventory.ItemKey{
			StoreID:   product.StoreID,
			ProductID: product.ID,
			VariantID: &created.ID,
		}
		return s.stock.EnsureRecord(ctx, tx, key, input.InitialStock)
	})
	if err != nil {
		return nil, err
	}
	return variant, nil
}

func (s *service) CreateCategory(ctx context.Context, input CreateCategoryInput) (*models.ProductCategory, error) {
	category := &models.ProductCategory{
		StoreID: input.StoreID,
		Name:    input.Name,
		Slug:    input.Slug,
	}
	created, err := s.repo.CreateCategory(ctx, category)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating category")
	}
	return created, nil
}
