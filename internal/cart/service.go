package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
)

type productLoader interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
}

// ItemInput is one line of a bulk cart write. Re-adding an existing
// product/variant replaces its quantity rather than stacking.
type ItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// Service exposes cart operations for the storefront.
type Service interface {
	UpsertItems(ctx context.Context, userID uuid.UUID, inputs []ItemInput) ([]models.CartItem, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	Remove(ctx context.Context, userID, itemID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo    Repository
	catalog productLoader
}

// NewService builds the cart service.
func NewService(repo Repository, catalog productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog loader is required")
	}
	return &service{repo: repo, catalog: catalog}, nil
}

func (s *service) UpsertItems(ctx context.Context, userID uuid.UUID, inputs []ItemInput) ([]models.CartItem, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no cart items provided")
	}

	items := make([]models.CartItem, 0, len(inputs))
	for _, input := range inputs {
		if input.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
		product, err := s.catalog.GetProduct(ctx, input.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available").
				WithDetails(map[string]any{"product_id": input.ProductID})
		}
		if input.VariantID != nil && !variantBelongs(product, *input.VariantID) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found").
				WithDetails(map[string]any{"variant_id": *input.VariantID})
		}

		item := &models.CartItem{
			UserID:    userID,
			ProductID: input.ProductID,
			VariantID: input.VariantID,
			Quantity:  input.Quantity,
		}
		saved, err := s.repo.Upsert(ctx, item)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving cart item")
		}
		items = append(items, *saved)
	}
	return items, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing cart items")
	}
	return items, nil
}

func (s *service) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	affected, err := s.repo.Remove(ctx, userID, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing cart item")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart")
	}
	return nil
}

func variantBelongs(product *models.Product, variantID uuid.UUID) bool {
	for _, v := range product.Variants {
		if v.ID == variantID && v.IsActive {
			return true
		}
	}
	return false
}
