package coupons

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a coupons repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// lockForUpdate adds FOR UPDATE on dialects that support it. The sqlite
// driver used in tests does not, and row locks are a no-op there anyway.
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func (r *repository) FindActiveByCodeForUpdate(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := lockForUpdate(r.db.WithContext(ctx)).
		Preload("ApplicableProducts").
		Preload("ApplicableCategories").
		Where("code = ? AND active = ?", code, true).
		First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) FindActiveByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Preload("ApplicableProducts").
		Preload("ApplicableCategories").
		Where("code = ? AND active = ?", code, true).
		First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) ListPreApplied(ctx context.Context, now time.Time) ([]models.Coupon, error) {
	var coupons []models.Coupon
	err := r.db.WithContext(ctx).
		Preload("ApplicableProducts").
		Preload("ApplicableCategories").
		Where("is_pre_applied = ? AND active = ? AND start_date <= ? AND end_date >= ?", true, true, now, now).
		Find(&coupons).Error
	if err != nil {
		return nil, err
	}
	return coupons, nil
}

func (r *repository) Deactivate(ctx context.Context, couponID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ?", couponID).
		Update("active", false).Error
}

func (r *repository) CountDistinctUsers(ctx context.Context, couponID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CouponUsage{}).
		Where("coupon_id = ?", couponID).
		Distinct("user_id").
		Count(&count).Error
	return count, err
}

func (r *repository) GetOrCreateUsage(ctx context.Context, couponID, userID uuid.UUID) (*models.CouponUsage, error) {
	var usage models.CouponUsage
	err := r.db.WithContext(ctx).
		Where(models.CouponUsage{CouponID: couponID, UserID: userID}).
		Attrs(models.CouponUsage{ID: uuid.New()}).
		FirstOrCreate(&usage).Error
	if err != nil {
		return nil, err
	}
	return &usage, nil
}

func (r *repository) IncrementUsage(ctx context.Context, couponID, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.CouponUsage{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Update("times_used", gorm.Expr("times_used + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("coupon usage row missing")
	}
	return nil
}
