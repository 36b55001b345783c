package orders

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/storefront-labs/storefront-backend/internal/cart"
	"github.com/storefront-labs/storefront-backend/internal/catalog"
	"github.com/storefront-labs/storefront-backend/internal/coupons"
	"github.com/storefront-labs/storefront-backend/internal/inventory"
	"github.com/storefront-labs/storefront-backend/internal/pricing"
	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	"github.com/storefront-labs/storefront-backend/pkg/enums"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/metrics"
	"github.com/storefront-labs/storefront-backend/pkg/outbox"
	"github.com/storefront-labs/storefront-backend/pkg/outbox/payloads"
	"github.com/storefront-labs/storefront-backend/pkg/pagination"
	"github.com/storefront-labs/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type productLoader interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
}

// Service orchestrates checkout: placement, reorder, pricing previews,
// and lifecycle transitions.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*models.Order, error)
	Reorder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	Quote(ctx context.Context, userID uuid.UUID, couponCode string) (*pricing.Result, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
}

type service struct {
	repo        Repository
	cart        cart.Repository
	coupons     coupons.Service
	stock       inventory.Store
	catalog     productLoader
	pricer      *pricing.Engine
	tx          txRunner
	outbox      outboxPublisher
	metrics     *metrics.CheckoutMetrics
	lockTimeout time.Duration
}

// NewService wires the checkout orchestrator. The metrics handle may be
// nil; every other dependency is required.
func NewService(
	repo Repository,
	cartRepo cart.Repository,
	couponSvc coupons.Service,
	stock inventory.Store,
	catalog productLoader,
	pricer *pricing.Engine,
	tx txRunner,
	outboxSvc outboxPublisher,
	checkoutMetrics *metrics.CheckoutMetrics,
	lockTimeout time.Duration,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders: repository is required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("orders: cart repository is required")
	}
	if couponSvc == nil {
		return nil, fmt.Errorf("orders: coupon service is required")
	}
	if stock == nil {
		return nil, fmt.Errorf("orders: inventory store is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("orders: product loader is required")
	}
	if pricer == nil {
		return nil, fmt.Errorf("orders: pricing engine is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("orders: transaction runner is required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("orders: outbox publisher is required")
	}
	return &service{
		repo:        repo,
		cart:        cartRepo,
		coupons:     couponSvc,
		stock:       stock,
		catalog:     catalog,
		pricer:      pricer,
		tx:          tx,
		outbox:      outboxSvc,
		metrics:     checkoutMetrics,
		lockTimeout: lockTimeout,
	}, nil
}

// checkoutLine is a priced cart line with everything placement needs:
// the inventory key to lock, the snapshot names, and the unit price.
type checkoutLine struct {
	key         inventory.ItemKey
	productName string
	variantName *string
	categoryID  *uuid.UUID
	unitPrice   decimal.Decimal
	quantity    int
}

func (l checkoutLine) subtotal() decimal.Decimal {
	return l.unitPrice.Mul(decimal.NewFromInt(int64(l.quantity)))
}

// PlaceOrder turns the user's cart into a pending order inside a single
// transaction: verify and deduct stock under row locks, redeem the
// optional coupon, snapshot prices, clear the cart, and stage the
// order_placed event. Any failure rolls the whole placement back.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*models.Order, error) {
	start := time.Now()
	var placed *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		cartRepo := s.cart.WithTx(tx)

		items, err := cartRepo.ListByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}

		lines, err := linesFromCart(items)
		if err != nil {
			return err
		}
		sortLines(lines)

		applyLockTimeout(tx, s.lockTimeout)
		if err := s.verifyStock(ctx, tx, lines); err != nil {
			return err
		}

		subtotal := decimal.Zero
		for _, line := range lines {
			subtotal = subtotal.Add(line.subtotal())
		}

		var (
			coupon   *models.Coupon
			discount = decimal.Zero
			applied  types.AppliedDiscounts
		)
		if input.CouponCode != nil && *input.CouponCode != "" {
			result, err := s.coupons.Validate(ctx, tx, *input.CouponCode, userID, subtotal, now)
			if err != nil {
				s.metrics.IncCouponRejection(rejectionReason(err))
				return err
			}
			coupon = result.Coupon
			discount = result.Discount
			applied = types.AppliedDiscounts{{
				CouponID: coupon.ID,
				Code:     coupon.Code,
				Type:     string(coupon.DiscountType),
				Amount:   discount,
			}}
		}

		total := subtotal.Sub(discount)
		if total.IsNegative() {
			total = decimal.Zero
		}

		order := &models.Order{
			ID:                uuid.New(),
			OrderNumber:       newOrderNumber(now),
			UserID:            userID,
			Status:            enums.OrderStatusPending,
			Subtotal:          subtotal,
			DiscountAmount:    discount,
			TotalAmount:       total,
			Discounts:         applied,
			ShippingAddressID: input.ShippingAddressID,
			PlacedAt:          now,
		}
		if coupon != nil {
			order.CouponID = &coupon.ID
			code := coupon.Code
			order.CouponCode = &code
		}

		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order")
		}

		orderItems := buildOrderItems(order.ID, lines)
		if err := repo.CreateItems(ctx, orderItems); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order items")
		}

		for _, line := range lines {
			if err := s.stock.Deduct(ctx, tx, line.key, line.quantity); err != nil {
				return err
			}
		}

		if coupon != nil {
			if err := s.coupons.RecordUsage(ctx, tx, coupon.ID, userID); err != nil {
				return err
			}
		}

		note := "Order placed"
		if err := repo.AppendTracking(ctx, &models.OrderTracking{
			OrderID: order.ID,
			Status:  enums.OrderStatusPending,
			Note:    &note,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording order tracking")
		}

		if err := cartRepo.Clear(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderPlacedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        userID,
				Subtotal:      subtotal,
				DiscountTotal: discount,
				Total:         total,
				CouponCode:    order.CouponCode,
				ItemCount:     len(orderItems),
				PlacedAt:      now,
			},
			OccurredAt: now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "staging order_placed event")
		}

		order.Items = orderItems
		placed = order
		return nil
	})

	s.metrics.ObservePlacement(outcomeLabel(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// Reorder replays a past order into a new pending one at today's
// catalog prices. Stock is re-verified and deducted; the original
// coupon does not carry over.
func (s *service) Reorder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	var placed *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		repo := s.repo.WithTx(tx)

		prior, err := repo.FindByIDForUser(ctx, userID, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
		}
		if prior == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if len(prior.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "nothing to reorder")
		}

		lines, err := s.linesFromOrderItems(ctx, prior.Items)
		if err != nil {
			return err
		}
		sortLines(lines)

		applyLockTimeout(tx, s.lockTimeout)
		if err := s.verifyStock(ctx, tx, lines); err != nil {
			return err
		}

		subtotal := decimal.Zero
		for _, line := range lines {
			subtotal = subtotal.Add(line.subtotal())
		}

		order := &models.Order{
			ID:             uuid.New(),
			OrderNumber:    newOrderNumber(now),
			UserID:         userID,
			Status:         enums.OrderStatusPending,
			Subtotal:       subtotal,
			DiscountAmount: decimal.Zero,
			TotalAmount:    subtotal,
			ReorderedFrom:  &prior.ID,
			PlacedAt:       now,
		}
		if _, err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order")
		}

		orderItems := buildOrderItems(order.ID, lines)
		if err := repo.CreateItems(ctx, orderItems); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order items")
		}

		for _, line := range lines {
			if err := s.stock.Deduct(ctx, tx, line.key, line.quantity); err != nil {
				return err
			}
		}

		note := "Reordered with current availability (no coupon applied)"
		if err := repo.AppendTracking(ctx, &models.OrderTracking{
			OrderID: order.ID,
			Status:  enums.OrderStatusPending,
			Note:    &note,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording order tracking")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderReordered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderReorderedEvent{
				OriginalOrderID: prior.ID,
				OrderID:         order.ID,
				UserID:          userID,
			},
			OccurredAt: now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "staging order_reordered event")
		}

		order.Items = orderItems
		placed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// Quote prices the user's current cart without placing anything. It
// stacks the active pre-applied promotions with the optional coupon
// code, so the response shows the same per-line discounts placement
// would produce under the stacking rules.
func (s *service) Quote(ctx context.Context, userID uuid.UUID, couponCode string) (*pricing.Result, error) {
	items, err := s.cart.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	lines, err := linesFromCart(items)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	applicable, err := s.coupons.ListPreApplied(ctx, now)
	if err != nil {
		return nil, err
	}
	if couponCode != "" {
		coupon, err := s.coupons.GetActive(ctx, couponCode)
		if err != nil {
			return nil, err
		}
		applicable = append(applicable, *coupon)
	}

	result := s.pricer.Apply(pricingLines(lines), applicable)
	return &result, nil
}

// UpdateStatus moves an order along the lifecycle state machine. Moving
// into cancelled or returned restores the deducted stock in the same
// transaction.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	var updated *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if !CanTransition(order.Status, input.NewStatus) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, input.NewStatus)).
				WithDetails(map[string]any{
					"order_id":    order.ID,
					"from_status": order.Status,
					"to_status":   input.NewStatus,
				})
		}

		affected, err := repo.UpdateStatus(ctx, order.ID, order.Status, input.NewStatus)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating order status")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently").
				WithDetails(map[string]any{
					"order_id":  order.ID,
					"to_status": input.NewStatus,
				})
		}

		if err := repo.AppendTracking(ctx, &models.OrderTracking{
			OrderID: order.ID,
			Status:  input.NewStatus,
			Note:    input.Note,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording order tracking")
		}

		if restoresStock(input.NewStatus) {
			if err := s.restoreOrderStock(ctx, tx, order); err != nil {
				return err
			}
		}

		note := ""
		if input.Note != nil {
			note = *input.Note
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:    order.ID,
				UserID:     order.UserID,
				FromStatus: order.Status,
				ToStatus:   input.NewStatus,
				Note:       note,
				ChangedAt:  now,
			},
			OccurredAt: now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "staging order_status_changed event")
		}

		order.Status = input.NewStatus
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByIDForUser(ctx, userID, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	list, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing orders")
	}
	return list, nil
}

// verifyStock acquires each line's inventory row lock and checks the
// available quantity before anything is deducted. Lines must already be
// in canonical lock order.
func (s *service) verifyStock(ctx context.Context, tx *gorm.DB, lines []checkoutLine) error {
	for _, line := range lines {
		record, err := s.stock.GetLocked(ctx, tx, line.key)
		if err != nil {
			if code := pkgerrors.As(err); code != nil && code.Code() == pkgerrors.CodeLockTimeout {
				s.metrics.IncStockConflict("lock_timeout")
			}
			return err
		}
		if record.Quantity < line.quantity {
			s.metrics.IncStockConflict("insufficient_stock")
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for item").
				WithDetails(map[string]any{
					"product_id": line.key.ProductID,
					"available":  record.Quantity,
					"requested":  line.quantity,
				})
		}
	}
	return nil
}

// restoreOrderStock returns every line's quantity to inventory and
// stages an inventory_restored event per line.
func (s *service) restoreOrderStock(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	for _, item := range order.Items {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return err
		}
		key := inventory.ItemKey{
			StoreID:   product.StoreID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
		}
		if err := s.stock.Restore(ctx, tx, key, item.Quantity); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInventoryRestored,
			AggregateType: enums.AggregateInventory,
			AggregateID:   item.ProductID,
			Data: payloads.InventoryRestoredEvent{
				OrderID:   order.ID,
				ProductID: item.ProductID,
				VariantID: item.VariantID,
				Quantity:  item.Quantity,
			},
			OccurredAt: time.Now().UTC(),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "staging inventory_restored event")
		}
	}
	return nil
}

// linesFromCart resolves each cart item against its preloaded product
// and variant, rejecting anything that is no longer sellable.
func linesFromCart(items []models.CartItem) ([]checkoutLine, error) {
	lines := make([]checkoutLine, 0, len(items))
	for _, item := range items {
		if item.Product == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart item has no product").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		if !item.Product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is no longer available").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		var variant *models.ProductVariant
		if item.VariantID != nil {
			variant = item.Variant
			if variant == nil || !variant.IsActive {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant is no longer available").
					WithDetails(map[string]any{"variant_id": item.VariantID})
			}
		}
		lines = append(lines, checkoutLine{
			key: inventory.ItemKey{
				StoreID:   item.Product.StoreID,
				ProductID: item.ProductID,
				VariantID: item.VariantID,
			},
			productName: item.Product.Name,
			variantName: variantName(variant),
			categoryID:  item.Product.PrimaryCategoryID,
			unitPrice:   catalog.ResolveUnitPrice(item.Product, variant),
			quantity:    item.Quantity,
		})
	}
	return lines, nil
}

// linesFromOrderItems rebuilds checkout lines from a past order at the
// catalog's current prices.
func (s *service) linesFromOrderItems(ctx context.Context, items []models.OrderItem) ([]checkoutLine, error) {
	lines := make([]checkoutLine, 0, len(items))
	for _, item := range items {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is no longer available").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		var variant *models.ProductVariant
		if item.VariantID != nil {
			for i := range product.Variants {
				if product.Variants[i].ID == *item.VariantID {
					variant = &product.Variants[i]
					break
				}
			}
			if variant == nil || !variant.IsActive {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant is no longer available").
					WithDetails(map[string]any{"variant_id": item.VariantID})
			}
		}
		lines = append(lines, checkoutLine{
			key: inventory.ItemKey{
				StoreID:   product.StoreID,
				ProductID: item.ProductID,
				VariantID: item.VariantID,
			},
			productName: product.Name,
			variantName: variantName(variant),
			categoryID:  product.PrimaryCategoryID,
			unitPrice:   catalog.ResolveUnitPrice(product, variant),
			quantity:    item.Quantity,
		})
	}
	return lines, nil
}

func buildOrderItems(orderID uuid.UUID, lines []checkoutLine) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		lineSubtotal := line.subtotal()
		items = append(items, models.OrderItem{
			ID:             uuid.New(),
			OrderID:        orderID,
			ProductID:      line.key.ProductID,
			VariantID:      line.key.VariantID,
			ProductName:    line.productName,
			VariantName:    line.variantName,
			UnitPrice:      line.unitPrice,
			Quantity:       line.quantity,
			LineSubtotal:   lineSubtotal,
			DiscountAmount: decimal.Zero,
			LineTotal:      lineSubtotal,
		})
	}
	return items
}

func pricingLines(lines []checkoutLine) []pricing.Line {
	out := make([]pricing.Line, 0, len(lines))
	for _, line := range lines {
		out = append(out, pricing.Line{
			ProductID:  line.key.ProductID,
			VariantID:  line.key.VariantID,
			CategoryID: line.categoryID,
			UnitPrice:  line.unitPrice,
			Quantity:   line.quantity,
		})
	}
	return out
}

// sortLines fixes the lock acquisition order so concurrent placements
// touching the same items never deadlock.
func sortLines(lines []checkoutLine) {
	sort.Slice(lines, func(i, j int) bool {
		a, b := lines[i].key, lines[j].key
		if a.ProductID != b.ProductID {
			return a.ProductID.String() < b.ProductID.String()
		}
		return variantSortKey(a.VariantID) < variantSortKey(b.VariantID)
	})
}

func variantSortKey(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// applyLockTimeout bounds how long the placement waits on inventory row
// locks. SET LOCAL scopes the setting to the surrounding transaction.
func applyLockTimeout(tx *gorm.DB, timeout time.Duration) {
	if timeout <= 0 || tx.Dialector.Name() != "postgres" {
		return
	}
	tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds()))
}

func variantName(variant *models.ProductVariant) *string {
	if variant == nil {
		return nil
	}
	name := variant.Name
	return &name
}

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("SF-%s-%s", now.Format("20060102"), suffix)
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	if coded := pkgerrors.As(err); coded != nil {
		return strings.ToLower(string(coded.Code()))
	}
	return "error"
}

func rejectionReason(err error) string {
	if coded := pkgerrors.As(err); coded != nil {
		return strings.ToLower(string(coded.Code()))
	}
	return "error"
}
