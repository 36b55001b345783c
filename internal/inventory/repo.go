package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	"github.com/storefront-labs/storefront-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// keyScope narrows a query to one stock row. Product-level rows carry a
// NULL variant_id, which equality would never match.
func keyScope(db *gorm.DB, key ItemKey) *gorm.DB {
	db = db.Where("store_id = ? AND product_id = ?", key.StoreID, key.ProductID)
	if key.VariantID == nil {
		return db.Where("variant_id IS NULL")
	}
	return db.Where("variant_id = ?", *key.VariantID)
}

func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func (r *repository) FindForUpdate(ctx context.Context, key ItemKey) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	err := keyScope(lockForUpdate(r.db.WithContext(ctx)), key).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) Find(ctx context.Context, key ItemKey) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	err := keyScope(r.db.WithContext(ctx), key).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Decrement subtracts qty guarded by a quantity floor so concurrent
// writers can never drive stock negative. Returns rows affected; zero
// means the row is missing or short on stock.
func (r *repository) Decrement(ctx context.Context, key ItemKey, qty int) (int64, error) {
	res := keyScope(r.db.WithContext(ctx).Model(&models.InventoryRecord{}), key).
		Where("quantity >= ?", qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	return res.RowsAffected, res.Error
}

func (r *repository) Increment(ctx context.Context, key ItemKey, qty int) (int64, error) {
	res := keyScope(r.db.WithContext(ctx).Model(&models.InventoryRecord{}), key).
		Update("quantity", gorm.Expr("quantity + ?", qty))
	return res.RowsAffected, res.Error
}

func (r *repository) Create(ctx context.Context, record *models.InventoryRecord) (*models.InventoryRecord, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *repository) SetQuantity(ctx context.Context, key ItemKey, qty int) (int64, error) {
	res := keyScope(r.db.WithContext(ctx).Model(&models.InventoryRecord{}), key).
		Update("quantity", qty)
	return res.RowsAffected, res.Error
}

func (r *repository) ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) (*RecordList, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.InventoryRecord{}).Where("store_id = ?", storeID)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var records []models.InventoryRecord
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}

	list := &RecordList{Records: records}
	if len(records) > normalized {
		next := records[normalized]
		list.Records = records[:normalized]
		list.NextCursor = pagination.NextFrom(next.CreatedAt, next.ID)
	}
	return list, nil
}
