package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/storefront-labs/storefront-backend/pkg/db"
	"github.com/storefront-labs/storefront-backend/pkg/db/models"
)

// Repository exposes persistence helpers for cart lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	Find(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (int64, error)
	Remove(ctx context.Context, userID, itemID uuid.UUID) (int64, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Upsert inserts the line or replaces the quantity of the existing line
// for the same user/product/variant triple. A concurrent insert hitting
// the unique index resolves by updating the surviving row.
func (r *repository) Upsert(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	existing, err := r.findByTriple(ctx, item.UserID, item.ProductID, item.VariantID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return r.setQuantity(ctx, existing, item.Quantity)
	}

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "idx_cart_user_product_variant") {
			existing, findErr := r.findByTriple(ctx, item.UserID, item.ProductID, item.VariantID)
			if findErr != nil {
				return nil, findErr
			}
			if existing != nil {
				return r.setQuantity(ctx, existing, item.Quantity)
			}
		}
		return nil, err
	}
	return item, nil
}

func (r *repository) setQuantity(ctx context.Context, item *models.CartItem, quantity int) (*models.CartItem, error) {
	err := r.db.WithContext(ctx).
		Model(item).
		Update("quantity", quantity).Error
	if err != nil {
		return nil, err
	}
	item.Quantity = quantity
	return item, nil
}

func (r *repository) findByTriple(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID) (*models.CartItem, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID)
	if variantID == nil {
		query = query.Where("variant_id IS NULL")
	} else {
		query = query.Where("variant_id = ?", *variantID)
	}
	var item models.CartItem
	if err := query.First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Variant").
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Find(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND user_id = ?", itemID, userID).
		Update("quantity", quantity)
	return res.RowsAffected, res.Error
}

func (r *repository) Remove(ctx context.Context, userID, itemID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

func (r *repository) Clear(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
}
