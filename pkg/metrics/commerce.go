package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CommerceMetrics records checkout pipeline outcomes.
type CommerceMetrics struct {
	ordersCreated  *prometheus.CounterVec
	checkoutFailed *prometheus.CounterVec
	bonusesAwarded prometheus.Counter
	bonusAmount    prometheus.Counter
}

// NewCommerceMetrics registers the checkout metrics on the provided registerer.
func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders successfully created from carts.",
	}, []string{"promo", "wallet"})
	checkoutFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failed_total",
		Help: "Checkout attempts rejected before an order was persisted.",
	}, []string{"reason"})
	bonusesAwarded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_bonuses_awarded_total",
		Help: "Delivery bonuses credited to wallets.",
	})
	bonusAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_bonus_amount_total",
		Help: "Sum of delivery bonus amounts credited, in currency units.",
	})
	reg.MustRegister(ordersCreated, checkoutFailed, bonusesAwarded, bonusAmount)
	return &CommerceMetrics{
		ordersCreated:  ordersCreated,
		checkoutFailed: checkoutFailed,
		bonusesAwarded: bonusesAwarded,
		bonusAmount:    bonusAmount,
	}
}

// IncOrderCreated records a completed checkout.
func (c *CommerceMetrics) IncOrderCreated(usedPromo, usedWallet bool) {
	if c == nil || c.ordersCreated == nil {
		return
	}
	c.ordersCreated.WithLabelValues(boolLabel(usedPromo), boolLabel(usedWallet)).Inc()
}

// IncCheckoutFailed records a rejected checkout with the given reason label.
func (c *CommerceMetrics) IncCheckoutFailed(reason string) {
	if c == nil || c.checkoutFailed == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	c.checkoutFailed.WithLabelValues(reason).Inc()
}

// ObserveBonus records one awarded bonus and its amount.
func (c *CommerceMetrics) ObserveBonus(amount float64) {
	if c == nil || c.bonusesAwarded == nil {
		return
	}
	c.bonusesAwarded.Inc()
	if amount > 0 {
		c.bonusAmount.Add(amount)
	}
}

func boolLabel(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
