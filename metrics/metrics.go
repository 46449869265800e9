// Package metrics exposes Prometheus metrics for the engine and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warp/stock-engine/inventory"
)

// Metrics collects engine and HTTP metrics on its own registry.
type Metrics struct {
	registry          *prometheus.Registry
	handler           http.Handler
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	conflictRetries   *prometheus.CounterVec
	requestsTotal     *prometheus.CounterVec
	lowStock          prometheus.Gauge
}

// New initializes the registry and registers every metric.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_engine_operations_total",
		Help: "Engine operations by operation and outcome.",
	}, []string{"op", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stock_engine_operation_duration_seconds",
		Help:    "Engine operation latency, retries included.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_engine_conflict_retries_total",
		Help: "Operations re-run after an optimistic concurrency conflict.",
	}, []string{"op"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_engine_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	lowStock := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stock_engine_low_stock_products",
		Help: "Stocked products below the low-stock threshold at the last check.",
	})
	registry.MustRegister(operations, duration, retries, requests, lowStock)

	return &Metrics{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		operationsTotal:   operations,
		operationDuration: duration,
		conflictRetries:   retries,
		requestsTotal:     requests,
		lowStock:          lowStock,
	}
}

// OperationFinished implements inventory.Observer.
func (m *Metrics) OperationFinished(op, outcome string, elapsed time.Duration) {
	m.operationsTotal.WithLabelValues(op, outcome).Inc()
	m.operationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ConflictRetried implements inventory.Observer.
func (m *Metrics) ConflictRetried(op string) {
	m.conflictRetries.WithLabelValues(op).Inc()
}

// SetLowStock records how many products are under the threshold.
func (m *Metrics) SetLowStock(n int) {
	if m == nil {
		return
	}
	m.lowStock.Set(float64(n))
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware counts every HTTP request by chi route pattern and status.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		m.requestsTotal.WithLabelValues(routePattern(r), strconv.Itoa(recorder.status)).Inc()
	})
}

// Registerer exposes the registry for custom metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}

var _ inventory.Observer = (*Metrics)(nil)
