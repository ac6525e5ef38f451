// Package metrics exposes Prometheus metrics for the category service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	categoryOps         *prometheus.CounterVec
	moveDecisions       *prometheus.CounterVec
	treeCacheLookups    *prometheus.CounterVec
}

// New creates a fresh Metrics registry with HTTP and category metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facility",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "facility",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	categoryOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facility",
		Name:      "category_ops_total",
		Help:      "Category tree mutations by kind, operation and result",
	}, []string{"kind", "op", "result"})

	moveDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facility",
		Name:      "category_move_decisions_total",
		Help:      "Drag-and-drop move decisions",
	}, []string{"decision"})

	treeCacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facility",
		Name:      "category_tree_cache_lookups_total",
		Help:      "Category tree cache lookups by result",
	}, []string{"result"})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		categoryOps,
		moveDecisions,
		treeCacheLookups,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		categoryOps:         categoryOps,
		moveDecisions:       moveDecisions,
		treeCacheLookups:    treeCacheLookups,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveCategoryOp counts one category mutation. result is "ok" or a
// short failure class such as "invalid" or "error".
func (m *Metrics) ObserveCategoryOp(kind, op, result string) {
	if m == nil {
		return
	}
	m.categoryOps.WithLabelValues(kind, op, result).Inc()
}

// ObserveMoveDecision counts a move validation outcome.
func (m *Metrics) ObserveMoveDecision(decision string) {
	if m == nil {
		return
	}
	m.moveDecisions.WithLabelValues(decision).Inc()
}

// ObserveTreeCache counts a tree cache hit or miss.
func (m *Metrics) ObserveTreeCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.treeCacheLookups.WithLabelValues(result).Inc()
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
