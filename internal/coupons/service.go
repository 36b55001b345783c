package coupons

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/storefront-labs/storefront-backend/internal/pricing"
	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	"github.com/storefront-labs/storefront-backend/pkg/enums"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/outbox"
	"github.com/storefront-labs/storefront-backend/pkg/outbox/payloads"
)

// Deactivation reasons recorded on coupon_deactivated events.
const (
	DeactivateReasonExpired          = "expired"
	DeactivateReasonUserLimitReached = "user_limit_reached"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ValidationResult carries the locked coupon plus the cart-level discount
// it would yield against the validated subtotal. The discount here is
// indicative; placement prices line by line.
type ValidationResult struct {
	Coupon   *models.Coupon
	Discount decimal.Decimal
}

// Service validates coupon redemptions and tracks usage. Validate never
// increments usage; callers record usage separately once the order commits.
type Service interface {
	Validate(ctx context.Context, tx *gorm.DB, code string, userID uuid.UUID, subtotal decimal.Decimal, now time.Time) (*ValidationResult, error)
	ValidateCode(ctx context.Context, code string, userID uuid.UUID, subtotal decimal.Decimal) (*ValidationResult, error)
	RecordUsage(ctx context.Context, tx *gorm.DB, couponID, userID uuid.UUID) error
	GetActive(ctx context.Context, code string) (*models.Coupon, error)
	ListPreApplied(ctx context.Context, now time.Time) ([]models.Coupon, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds the coupon service.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupons repository is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher is required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc}, nil
}

// Validate runs the full redemption check inside the caller's transaction,
// holding a row lock on the coupon until the transaction ends. A coupon
// that is past its window or out of global capacity is deactivated in the
// same transaction so later lookups skip it entirely.
func (s *service) Validate(ctx context.Context, tx *gorm.DB, code string, userID uuid.UUID, subtotal decimal.Decimal, now time.Time) (*ValidationResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := s.repo.WithTx(tx)

	coupon, err := repo.FindActiveByCodeForUpdate(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading coupon")
	}
	if coupon == nil {
		return nil, pkgerrors.New(pkgerrors.CodeCouponNotFound, "invalid or inactive coupon")
	}

	if !coupon.IsWithinDate(now) {
		if err := s.deactivate(ctx, tx, repo, coupon, DeactivateReasonExpired); err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeCouponExpired, "coupon expired")
	}

	if subtotal.LessThan(coupon.MinOrderAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeOrderBelowMinimum, "order amount too low for this coupon")
	}

	if coupon.TotalUserLimit != nil {
		users, err := repo.CountDistinctUsers(ctx, coupon.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting coupon users")
		}
		if users >= int64(*coupon.TotalUserLimit) {
			if err := s.deactivate(ctx, tx, repo, coupon, DeactivateReasonUserLimitReached); err != nil {
				return nil, err
			}
			return nil, pkgerrors.New(pkgerrors.CodeCouponExhausted, "coupon usage limit reached")
		}
	}

	usage, err := repo.GetOrCreateUsage(ctx, coupon.ID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading coupon usage")
	}
	if coupon.UsageLimitPerUser > 0 && usage.TimesUsed >= coupon.UsageLimitPerUser {
		return nil, pkgerrors.New(pkgerrors.CodePerUserLimitExceeded, "you have already used this coupon the maximum number of times")
	}

	return &ValidationResult{
		Coupon:   coupon,
		Discount: pricing.Calculate(*coupon, subtotal),
	}, nil
}

// ValidateCode wraps Validate in its own transaction for preview flows.
func (s *service) ValidateCode(ctx context.Context, code string, userID uuid.UUID, subtotal decimal.Decimal) (*ValidationResult, error) {
	var result *ValidationResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var vErr error
		result, vErr = s.Validate(ctx, tx, code, userID, subtotal, time.Now().UTC())
		return vErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecordUsage bumps the per-user counter. The counter only ever goes up;
// refunds and cancellations do not return redemptions.
func (s *service) RecordUsage(ctx context.Context, tx *gorm.DB, couponID, userID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if err := s.repo.WithTx(tx).IncrementUsage(ctx, couponID, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording coupon usage")
	}
	return nil
}

// GetActive loads an active coupon without locking it. Preview flows use
// this; redemption always goes through Validate.
func (s *service) GetActive(ctx context.Context, code string) (*models.Coupon, error) {
	coupon, err := s.repo.FindActiveByCode(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading coupon")
	}
	if coupon == nil {
		return nil, pkgerrors.New(pkgerrors.CodeCouponNotFound, "invalid or inactive coupon")
	}
	return coupon, nil
}

// ListPreApplied returns promotions the pricing engine applies to every cart.
func (s *service) ListPreApplied(ctx context.Context, now time.Time) ([]models.Coupon, error) {
	coupons, err := s.repo.ListPreApplied(ctx, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing pre-applied coupons")
	}
	return coupons, nil
}

func (s *service) deactivate(ctx context.Context, tx *gorm.DB, repo Repository, coupon *models.Coupon, reason string) error {
	if err := repo.Deactivate(ctx, coupon.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivating coupon")
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventCouponDeactivated,
		AggregateType: enums.AggregateCoupon,
		AggregateID:   coupon.ID,
		Data: payloads.CouponDeactivatedEvent{
			CouponID: coupon.ID,
			Code:     coupon.Code,
			Reason:   reason,
		},
		Version: 1,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queueing coupon deactivation event")
	}
	return nil
}
