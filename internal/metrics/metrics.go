// Package metrics holds the Prometheus collectors exported on the
// health endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricehound_fetch_total",
			Help: "Marketplace fetch attempts by outcome",
		},
		[]string{"marketplace", "outcome"}, // outcome: "ok", "error"
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricehound_cycle_duration_seconds",
			Help:    "Duration of watch check cycles",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	CyclesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricehound_cycles_skipped_total",
			Help: "Ticks skipped because the previous cycle was still running",
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricehound_notifications_total",
			Help: "Price drop notifications by delivery outcome",
		},
		[]string{"outcome"}, // "ok", "error"
	)

	ActiveSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pricehound_active_subscriptions",
			Help: "Active subscriptions seen by the last cycle",
		},
	)
)
