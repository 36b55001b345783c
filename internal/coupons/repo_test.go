package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	"github.com/storefront-labs/storefront-backend/pkg/enums"
)

func setupCouponsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	coupons := `
CREATE TABLE coupons (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  discount_type TEXT NOT NULL,
  discount_value NUMERIC NOT NULL,
  max_discount_amount NUMERIC,
  min_order_amount NUMERIC NOT NULL DEFAULT 0,
  usage_limit_per_user INTEGER NOT NULL DEFAULT 1,
  total_user_limit INTEGER,
  scope TEXT NOT NULL DEFAULT 'cart',
  active INTEGER NOT NULL DEFAULT 1,
  is_pre_applied INTEGER NOT NULL DEFAULT 0,
  start_date DATETIME NOT NULL,
  end_date DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	applicableProducts := `
CREATE TABLE coupon_applicable_products (
  coupon_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  PRIMARY KEY (coupon_id, product_id)
);`
	applicableCategories := `
CREATE TABLE coupon_applicable_categories (
  coupon_id TEXT NOT NULL,
  category_id TEXT NOT NULL,
  PRIMARY KEY (coupon_id, category_id)
);`
	usages := `
CREATE TABLE coupon_usages (
  id TEXT PRIMARY KEY,
  coupon_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  times_used INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (coupon_id, user_id)
);`
	require.NoError(t, db.Exec(coupons).Error)
	require.NoError(t, db.Exec(applicableProducts).Error)
	require.NoError(t, db.Exec(applicableCategories).Error)
	require.NoError(t, db.Exec(usages).Error)

	return db
}

func seedCoupon(t *testing.T, db *gorm.DB, mutate func(*models.Coupon)) models.Coupon {
	t.Helper()

	now := time.Now().UTC()
	coupon := models.Coupon{
		ID:                uuid.New(),
		Code:              "SAVE10",
		DiscountType:      enums.CouponDiscountPercent,
		DiscountValue:     decimal.NewFromInt(10),
		UsageLimitPerUser: 1,
		Scope:             enums.CouponScopeCart,
		Active:            true,
		StartDate:         now.Add(-time.Hour),
		EndDate:           now.Add(time.Hour),
	}
	if mutate != nil {
		mutate(&coupon)
	}
	require.NoError(t, db.Create(&coupon).Error)
	return coupon
}

func TestFindActiveByCodeForUpdate(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seeded := seedCoupon(t, db, nil)

	found, err := repo.FindActiveByCodeForUpdate(ctx, "SAVE10")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, seeded.ID, found.ID)

	missing, err := repo.FindActiveByCodeForUpdate(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFindActiveByCodeForUpdateSkipsInactive(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedCoupon(t, db, func(c *models.Coupon) { c.Active = false })

	found, err := repo.FindActiveByCodeForUpdate(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestDeactivate(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	coupon := seedCoupon(t, db, nil)
	require.NoError(t, repo.Deactivate(ctx, coupon.ID))

	found, err := repo.FindActiveByCodeForUpdate(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestGetOrCreateUsageIsIdempotent(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	coupon := seedCoupon(t, db, nil)
	userID := uuid.New()

	first, err := repo.GetOrCreateUsage(ctx, coupon.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, first.TimesUsed)

	second, err := repo.GetOrCreateUsage(ctx, coupon.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.CouponUsage{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIncrementUsage(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	coupon := seedCoupon(t, db, nil)
	userID := uuid.New()

	_, err := repo.GetOrCreateUsage(ctx, coupon.ID, userID)
	require.NoError(t, err)

	require.NoError(t, repo.IncrementUsage(ctx, coupon.ID, userID))
	require.NoError(t, repo.IncrementUsage(ctx, coupon.ID, userID))

	usage, err := repo.GetOrCreateUsage(ctx, coupon.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, usage.TimesUsed)
}

func TestIncrementUsageWithoutRowFails(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)

	err := repo.IncrementUsage(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
}

func TestCountDistinctUsers(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	coupon := seedCoupon(t, db, nil)

	userA := uuid.New()
	userB := uuid.New()
	_, err := repo.GetOrCreateUsage(ctx, coupon.ID, userA)
	require.NoError(t, err)
	_, err = repo.GetOrCreateUsage(ctx, coupon.ID, userB)
	require.NoError(t, err)
	require.NoError(t, repo.IncrementUsage(ctx, coupon.ID, userA))
	require.NoError(t, repo.IncrementUsage(ctx, coupon.ID, userA))

	count, err := repo.CountDistinctUsers(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestListPreApplied(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	seedCoupon(t, db, func(c *models.Coupon) {
		c.Code = "LAUNCH"
		c.IsPreApplied = true
	})
	seedCoupon(t, db, func(c *models.Coupon) {
		c.Code = "ENDED"
		c.IsPreApplied = true
		c.StartDate = now.Add(-48 * time.Hour)
		c.EndDate = now.Add(-24 * time.Hour)
	})
	seedCoupon(t, db, func(c *models.Coupon) {
		c.Code = "MANUAL"
	})

	active, err := repo.ListPreApplied(ctx, now)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "LAUNCH", active[0].Code)
}
