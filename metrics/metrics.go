// Package metrics holds the Prometheus instruments for the sync jobs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsProcessed counts upsert outcomes per record.
	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nbsync_records_total",
			Help: "Total number of records handled, by outcome",
		},
		[]string{"job", "resource", "outcome"},
	)

	CycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nbsync_cycle_duration_seconds",
			Help:    "Duration of a full paginate-map-upsert cycle",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"job"},
	)

	CyclesCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nbsync_cycles_total",
			Help: "Total number of cycles, by status",
		},
		[]string{"job", "status"}, // "success", "failure"
	)

	PageFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nbsync_page_fetches_total",
			Help: "Total number of page fetches against a remote",
		},
		[]string{"source", "status"},
	)

	RateLimitPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nbsync_ratelimit_pauses_total",
			Help: "Total number of pauses caused by a low remaining rate-limit quota",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nbsync_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)
