package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records the outcome and latency of order placement.
type CheckoutMetrics struct {
	placements     *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	stockConflicts *prometheus.CounterVec
	couponRejects  *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	placements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_placements_total",
		Help: "Order placement attempts by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_placement_duration_seconds",
		Help:    "Duration of the order placement transaction in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	stockConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_stock_conflicts_total",
		Help: "Placements rejected by stock checks.",
	}, []string{"reason"})
	couponRejects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coupon_rejections_total",
		Help: "Coupon validations that failed, by reason.",
	}, []string{"reason"})
	reg.MustRegister(placements, duration, stockConflicts, couponRejects)
	return &CheckoutMetrics{
		placements:     placements,
		duration:       duration,
		stockConflicts: stockConflicts,
		couponRejects:  couponRejects,
	}
}

// ObservePlacement records one placement attempt with its outcome and latency.
func (c *CheckoutMetrics) ObservePlacement(outcome string, elapsed time.Duration) {
	if c == nil || c.placements == nil {
		return
	}
	label := normalizeLabel(outcome)
	c.placements.WithLabelValues(label).Inc()
	c.duration.WithLabelValues(label).Observe(elapsed.Seconds())
}

// IncStockConflict counts a placement rejected by the inventory check.
func (c *CheckoutMetrics) IncStockConflict(reason string) {
	if c == nil || c.stockConflicts == nil {
		return
	}
	c.stockConflicts.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncCouponRejection counts a failed coupon validation.
func (c *CheckoutMetrics) IncCouponRejection(reason string) {
	if c == nil || c.couponRejects == nil {
		return
	}
	c.couponRejects.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
