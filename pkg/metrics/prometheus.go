// Package metrics provides Prometheus metrics for the knapsack service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Solve outcomes used as the "outcome" label.
const (
	OutcomeOK                = "ok"
	OutcomeInvalidCapacity   = "invalid_capacity"
	OutcomeInvalidWeight     = "invalid_weight"
	OutcomeMismatchedInput   = "mismatched_input"
	OutcomeOverflow          = "overflow"
	OutcomeResourceExhausted = "resource_exhausted"
	OutcomeError             = "error"
)

// Manager owns the service metrics and the registry they live on.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	solves        *prometheus.CounterVec
	solveLatency  prometheus.Histogram
	tableCells    prometheus.Histogram
	selectedItems prometheus.Histogram

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// defaultLatencyBuckets spans 0.1 ms to about 3.3 s. Latencies are observed
// in milliseconds, so the seconds-based prometheus.DefBuckets do not fit.
func defaultLatencyBuckets() []float64 {
	return prometheus.ExponentialBuckets(0.1, 2, 16)
}

// NewManager creates a metrics manager. Without WithRegistry a fresh registry is used,
// so several managers can coexist in tests.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "knapsack",
		subsystem:        "solver",
		histogramBuckets: defaultLatencyBuckets(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.solves = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "solves_total",
			Help:      "Total number of solve attempts by outcome",
		},
		[]string{"outcome"},
	)

	m.solveLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "solve_latency_milliseconds",
		Help:      "Histogram of solver latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.tableCells = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "table_cells",
		Help:      "Number of value table cells allocated per solve",
		Buckets:   prometheus.ExponentialBuckets(16, 4, 12),
	})

	m.selectedItems = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "selected_items",
		Help:      "Number of items in each returned selection",
		Buckets:   prometheus.LinearBuckets(0, 5, 10),
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: "http",
			Name:      "request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// RecordSolve records one solve attempt.
func (m *Manager) RecordSolve(outcome string, latency time.Duration) {
	m.solves.WithLabelValues(outcome).Inc()
	m.solveLatency.Observe(float64(latency) / float64(time.Millisecond))
}

// RecordTableCells records the size of an allocated value table.
func (m *Manager) RecordTableCells(cells int64) {
	m.tableCells.Observe(float64(cells))
}

// RecordSelection records how many items a solve selected.
func (m *Manager) RecordSelection(count int) {
	m.selectedItems.Observe(float64(count))
}

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, duration time.Duration) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(float64(duration) / float64(time.Millisecond))
}

// Registry returns the registry backing this manager.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
