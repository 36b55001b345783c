package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/storefront-labs/storefront-backend/pkg/db"
	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/pagination"
)

// Store exposes stock operations. Every product offered for sale has a
// stock row; a missing row during checkout is a data integrity fault,
// not an out-of-stock condition, and surfaces as its own error code.
type Store interface {
	GetLocked(ctx context.Context, tx *gorm.DB, key ItemKey) (*models.InventoryRecord, error)
	Deduct(ctx context.Context, tx *gorm.DB, key ItemKey, qty int) error
	Restore(ctx context.Context, tx *gorm.DB, key ItemKey, qty int) error
	EnsureRecord(ctx context.Context, tx *gorm.DB, key ItemKey, initialQty int) error
	AdjustQuantity(ctx context.Context, key ItemKey, qty int) error
	Report(ctx context.Context, storeID uuid.UUID, params pagination.Params) (*RecordList, error)
}

type store struct {
	repo Repository
}

// NewStore builds the inventory store.
func NewStore(repo Repository) (Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository is required")
	}
	return &store{repo: repo}, nil
}

// GetLocked loads one stock row under FOR UPDATE inside the caller's
// transaction.
func (s *store) GetLocked(ctx context.Context, tx *gorm.DB, key ItemKey) (*models.InventoryRecord, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	record, err := s.repo.WithTx(tx).FindForUpdate(ctx, key)
	if err != nil {
		if dbpkg.IsLockTimeout(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeLockTimeout, err, "stock row is busy")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading stock record")
	}
	if record == nil {
		return nil, pkgerrors.New(pkgerrors.CodeMissingInventoryRecord, "stock record missing for item")
	}
	return record, nil
}

// Deduct removes qty from stock. The guarded update fails closed: zero
// affected rows means either no record exists or quantity would go
// negative, and the two map to different error codes.
func (s *store) Deduct(ctx context.Context, tx *gorm.DB, key ItemKey, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "deduction quantity must be positive")
	}
	repo := s.repo.WithTx(tx)
	affected, err := repo.Decrement(ctx, key, qty)
	if err != nil {
		if dbpkg.IsLockTimeout(err) {
			return pkgerrors.Wrap(pkgerrors.CodeLockTimeout, err, "stock row is busy")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deducting stock")
	}
	if affected > 0 {
		return nil
	}
	record, err := repo.Find(ctx, key)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking stock record")
	}
	if record == nil {
		return pkgerrors.New(pkgerrors.CodeMissingInventoryRecord, "stock record missing for item")
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for item").
		WithDetails(map[string]any{
			"product_id": key.ProductID,
			"available":  record.Quantity,
			"requested":  qty,
		})
}

// Restore returns qty to stock after a cancellation or return.
func (s *store) Restore(ctx context.Context, tx *gorm.DB, key ItemKey, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "restore quantity must be positive")
	}
	affected, err := s.repo.WithTx(tx).Increment(ctx, key, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restoring stock")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeMissingInventoryRecord, "stock record missing for item")
	}
	return nil
}

// EnsureRecord creates the stock row for a newly listed item. Racing
// creators are tolerated via the unique key.
func (s *store) EnsureRecord(ctx context.Context, tx *gorm.DB, key ItemKey, initialQty int) error {
	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}
	existing, err := repo.Find(ctx, key)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking stock record")
	}
	if existing != nil {
		return nil
	}
	record := &models.InventoryRecord{
		StoreID:   key.StoreID,
		ProductID: key.ProductID,
		VariantID: key.VariantID,
		Quantity:  initialQty,
	}
	if _, err := repo.Create(ctx, record); err != nil {
		if dbpkg.IsUniqueViolation(err, "idx_inventory_store_product_variant") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating stock record")
	}
	return nil
}

// AdjustQuantity sets an absolute stock level from the back office.
func (s *store) AdjustQuantity(ctx context.Context, key ItemKey, qty int) error {
	if qty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
	}
	affected, err := s.repo.SetQuantity(ctx, key, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjusting stock")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeMissingInventoryRecord, "stock record missing for item")
	}
	return nil
}

// Report lists a store's stock records.
func (s *store) Report(ctx context.Context, storeID uuid.UUID, params pagination.Params) (*RecordList, error) {
	list, err := s.repo.ListByStore(ctx, storeID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing stock records")
	}
	return list, nil
}
