package billetera

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/billetera/billetera-api/jwks"
)

// Metrics records what the service does.
type Metrics interface {
	// ObserveAuth records one authentication attempt; code is "OK" on success.
	ObserveAuth(code string, d time.Duration)
	// ObserveKeyRefresh records one key set refresh attempt.
	ObserveKeyRefresh(reason string, err error)
	// ObserveRequest records one served HTTP request.
	ObserveRequest(method, route string, status int, d time.Duration)
}

// NoopMetrics is a default metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) ObserveAuth(string, time.Duration)                  {}
func (NoopMetrics) ObserveKeyRefresh(string, error)                    {}
func (NoopMetrics) ObserveRequest(string, string, int, time.Duration) {}

// Key refresh outcomes.
const (
	RefreshOutcomeOK     = "ok"
	RefreshOutcomeError  = "error"
	RefreshOutcomeDenied = "denied"
)

// PrometheusMetrics implements Metrics on a dedicated registry.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	authAttempts *prometheus.CounterVec
	authDuration prometheus.Histogram
	keyRefreshes *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewPrometheusMetrics registers the service collectors, plus the Go runtime
// and process collectors, on a fresh registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billetera_auth_attempts_total",
			Help: "Authentication attempts by result code.",
		}, []string{"code"}),
		authDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "billetera_auth_duration_seconds",
			Help:    "Time spent authenticating a request.",
			Buckets: prometheus.DefBuckets,
		}),
		keyRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billetera_jwks_refresh_total",
			Help: "Signing key set refresh attempts by reason and outcome.",
		}, []string{"reason", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billetera_http_requests_total",
			Help: "Served HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "billetera_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		m.authAttempts,
		m.authDuration,
		m.keyRefreshes,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *PrometheusMetrics) ObserveAuth(code string, d time.Duration) {
	m.authAttempts.WithLabelValues(code).Inc()
	m.authDuration.Observe(d.Seconds())
}

func (m *PrometheusMetrics) ObserveKeyRefresh(reason string, err error) {
	outcome := RefreshOutcomeOK
	switch {
	case errors.Is(err, jwks.ErrRefreshDenied):
		outcome = RefreshOutcomeDenied
	case err != nil:
		outcome = RefreshOutcomeError
	}
	m.keyRefreshes.WithLabelValues(reason, outcome).Inc()
}

func (m *PrometheusMetrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Registry returns the registry holding every collector.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
