package observability

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Decision outcomes recorded per request
const (
	OutcomeRedirect      = "redirect"
	OutcomePassthrough   = "passthrough"
	OutcomeNotFound      = "not_found"
	OutcomeNotHTTPS      = "not_https"
	OutcomeOriginFailure = "origin_failure"
)

// Zone store lookup results
const (
	LookupHit         = "hit"
	LookupMiss        = "miss"
	LookupError       = "error"
	LookupUndecodable = "undecodable"
)

// MetricsConfig holds configuration for Prometheus metrics
type MetricsConfig struct {
	// Logger for structured logging
	Logger *slog.Logger

	// Namespace for metrics (e.g., "edge_redirects")
	Namespace string

	// Buckets for response time histogram
	Buckets []float64

	// Registry the collectors are registered with. A fresh registry with Go
	// and process collectors is created when nil.
	Registry *prometheus.Registry
}

// Metrics holds the Prometheus collectors of the redirect engine
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeRequests  prometheus.Gauge

	decisions         *prometheus.CounterVec
	storeLookups      *prometheus.CounterVec
	invalidRules      *prometheus.CounterVec
	originFetchErrors prometheus.Counter
}

// DefaultMetricsConfig returns a default metrics configuration
func DefaultMetricsConfig(namespace string) *MetricsConfig {
	return &MetricsConfig{
		Logger:    nil,
		Namespace: namespace,
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}
}

// NewMetrics creates and registers the engine's collectors
func NewMetrics(config *MetricsConfig) *Metrics {
	if config == nil {
		config = DefaultMetricsConfig("edge_redirects")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := config.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	logger.Info("initializing prometheus metrics", "namespace", config.Namespace)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		// Paths are not used as labels: every path on the edge is attacker-chosen.
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   config.Buckets,
			},
			[]string{"method", "status"},
		),
		activeRequests: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Subsystem: "http",
				Name:      "requests_active",
				Help:      "Number of active HTTP requests",
			},
		),
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "decisions_total",
				Help:      "Requests by routing decision",
			},
			[]string{"outcome"},
		),
		storeLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: "store",
				Name:      "lookups_total",
				Help:      "Zone store lookups by result",
			},
			[]string{"result"},
		),
		invalidRules: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "invalid_rules_total",
				Help:      "Rules skipped during matching because they can never match",
			},
			[]string{"reason"},
		),
		originFetchErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: "origin",
				Name:      "fetch_errors_total",
				Help:      "Pass-through requests that failed to reach the origin",
			},
		),
	}
}

// Registry returns the registry backing these metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics registry
// Endpoint: GET /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordDecision counts one routing decision. Safe on a nil receiver.
func (m *Metrics) RecordDecision(outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(outcome).Inc()
}

// RecordStoreLookup counts one zone store lookup
func (m *Metrics) RecordStoreLookup(result string) {
	if m == nil {
		return
	}
	m.storeLookups.WithLabelValues(result).Inc()
}

// RecordInvalidRule counts a rule skipped during matching
func (m *Metrics) RecordInvalidRule(reason string) {
	if m == nil {
		return
	}
	m.invalidRules.WithLabelValues(reason).Inc()
}

// RecordOriginError counts a failed pass-through fetch
func (m *Metrics) RecordOriginError() {
	if m == nil {
		return
	}
	m.originFetchErrors.Inc()
}

// Middleware returns an HTTP metrics middleware
func (m *Metrics) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.activeRequests.Inc()
			defer m.activeRequests.Dec()

			start := time.Now()
			rw := &metricsResponseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			status := strconv.Itoa(rw.statusCode)
			m.requestsTotal.WithLabelValues(r.Method, status).Inc()
			m.requestDuration.WithLabelValues(r.Method, status).Observe(time.Since(start).Seconds())
		})
	}
}

// metricsResponseWriter wraps http.ResponseWriter to capture the status code
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *metricsResponseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
