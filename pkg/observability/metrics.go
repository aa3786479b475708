package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/platinummonkey/vdjaccounts/pkg/httputil"
)

const namespace = "vdjaccounts"

// brokerStates lists every state the broker session reports, so the gauge
// exposes a zero for the inactive ones
var brokerStates = []string{"unauthenticated", "acquiring", "authenticated", "refreshing", "failed"}

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Token broker metrics
	BrokerRequestsTotal   *prometheus.CounterVec
	BrokerRequestDuration *prometheus.HistogramVec
	BrokerState           *prometheus.GaugeVec

	// Account metrics
	AccountOperationsTotal *prometheus.CounterVec
	AuthCacheTotal         *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "route"},
		),

		BrokerRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "broker_requests_total",
				Help:      "Total number of token broker requests",
			},
			[]string{"operation", "outcome"},
		),
		BrokerRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "broker_request_duration_seconds",
				Help:      "Token broker request duration in seconds, retries included",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),
		BrokerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "broker_session_state",
				Help:      "1 for the current token broker session state",
			},
			[]string{"state"},
		),

		AccountOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "account_operations_total",
				Help:      "Total number of account operations",
			},
			[]string{"operation", "outcome"},
		),
		AuthCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_cache_lookups_total",
				Help:      "Authentication cache lookups by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.BrokerRequestsTotal,
		m.BrokerRequestDuration,
		m.BrokerState,
		m.AccountOperationsTotal,
		m.AuthCacheTotal,
	)

	m.RecordBrokerState("unauthenticated")
	return m
}

// RegisterDBStats exports connection pool statistics for db
func (m *Metrics) RegisterDBStats(db *sql.DB, name string) error {
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

// RecordBrokerRequest records one token broker call
func (m *Metrics) RecordBrokerRequest(operation, outcome string, duration time.Duration) {
	m.BrokerRequestsTotal.WithLabelValues(operation, outcome).Inc()
	m.BrokerRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordBrokerState marks state as the current broker session state
func (m *Metrics) RecordBrokerState(state string) {
	for _, s := range brokerStates {
		value := 0.0
		if s == state {
			value = 1
		}
		m.BrokerState.WithLabelValues(s).Set(value)
	}
}

// RecordAccountOperation records one account service call
func (m *Metrics) RecordAccountOperation(operation, outcome string) {
	m.AccountOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordAuthCache records an authentication cache lookup
func (m *Metrics) RecordAuthCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.AuthCacheTotal.WithLabelValues(result).Inc()
}

// countingWriter tracks bytes written on top of the status recorder
type countingWriter struct {
	*httputil.StatusRecorder
	bytesWritten int
}

func (rw *countingWriter) Write(b []byte) (int, error) {
	n, err := rw.StatusRecorder.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// It must run inside the router so the matched route template is known.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &countingWriter{StatusRecorder: httputil.NewStatusRecorder(w)}

			next.ServeHTTP(rw, r)

			route := routeTemplate(r)
			status := strconv.Itoa(rw.Status())

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			metrics.HTTPResponseSize.WithLabelValues(r.Method, route).Observe(float64(rw.bytesWritten))
		})
	}
}

// routeTemplate keeps label cardinality bounded for unmatched paths
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
