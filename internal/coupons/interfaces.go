package coupons

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
)

// Repository defines persistence operations for coupons and their usage
// counters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveByCodeForUpdate(ctx context.Context, code string) (*models.Coupon, error)
	FindActiveByCode(ctx context.Context, code string) (*models.Coupon, error)
	ListPreApplied(ctx context.Context, now time.Time) ([]models.Coupon, error)
	Deactivate(ctx context.Context, couponID uuid.UUID) error
	CountDistinctUsers(ctx context.Context, couponID uuid.UUID) (int64, error)
	GetOrCreateUsage(ctx context.Context, couponID, userID uuid.UUID) (*models.CouponUsage, error)
	IncrementUsage(ctx context.Context, couponID, userID uuid.UUID) error
}
