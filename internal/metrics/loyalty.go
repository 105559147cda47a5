// Package metrics exposes the Prometheus collectors of the loyalty service.
// Every recorder is nil-safe so components can run without a registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "levelup"

// Loyalty records checkout, points and discount activity.
type Loyalty struct {
	checkouts        *prometheus.CounterVec
	checkoutStates   *prometheus.CounterVec
	checkoutDuration prometheus.Histogram
	pointsAwarded    *prometheus.CounterVec
	levelUps         prometheus.Counter
	discounts        *prometheus.CounterVec
	referrals        *prometheus.CounterVec
}

// NewLoyalty registers the loyalty collectors on reg. A nil reg yields a no-op recorder.
func NewLoyalty(reg prometheus.Registerer) *Loyalty {
	if reg == nil {
		return &Loyalty{}
	}

	m := &Loyalty{
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkouts by final outcome.",
		}, []string{"outcome"}),
		checkoutStates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_state_transitions_total",
			Help:      "Checkout state machine transitions by target state.",
		}, []string{"state"}),
		checkoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_duration_seconds",
			Help:      "Wall time of checkouts, payment delay included.",
			Buckets:   prometheus.DefBuckets,
		}),
		pointsAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_awarded_total",
			Help:      "Loyalty points credited by source.",
		}, []string{"source"}),
		levelUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "level_ups_total",
			Help:      "Point mutations that crossed a level threshold.",
		}),
		discounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discounts_total",
			Help:      "Discount grant events by result.",
		}, []string{"result"}),
		referrals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "referrals_total",
			Help:      "Referral registrations by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.checkouts,
		m.checkoutStates,
		m.checkoutDuration,
		m.pointsAwarded,
		m.levelUps,
		m.discounts,
		m.referrals,
	)

	return m
}

// CheckoutFinished records the outcome and duration of a checkout.
func (m *Loyalty) CheckoutFinished(outcome string, d time.Duration) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(label(outcome)).Inc()
	m.checkoutDuration.Observe(d.Seconds())
}

// CheckoutState counts a transition into state.
func (m *Loyalty) CheckoutState(state string) {
	if m == nil || m.checkoutStates == nil {
		return
	}
	m.checkoutStates.WithLabelValues(label(state)).Inc()
}

// PointsAwarded adds n credited points under source. Non-positive n is ignored.
func (m *Loyalty) PointsAwarded(source string, n int) {
	if m == nil || m.pointsAwarded == nil || n <= 0 {
		return
	}
	m.pointsAwarded.WithLabelValues(label(source)).Add(float64(n))
}

// LevelUp counts one level threshold crossing.
func (m *Loyalty) LevelUp() {
	if m == nil || m.levelUps == nil {
		return
	}
	m.levelUps.Inc()
}

// Discount counts a discount event such as redeemed, duplicate, used or purged.
func (m *Loyalty) Discount(result string, n int) {
	if m == nil || m.discounts == nil || n <= 0 {
		return
	}
	m.discounts.WithLabelValues(label(result)).Add(float64(n))
}

// Referral counts a referral registration attempt.
func (m *Loyalty) Referral(result string) {
	if m == nil || m.referrals == nil {
		return
	}
	m.referrals.WithLabelValues(label(result)).Inc()
}

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
