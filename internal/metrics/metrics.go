package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the Rosterd API.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics.
	AuthFailuresTotal  *prometheus.CounterVec
	AuthSuccessesTotal prometheus.Counter

	// Refused time-sensitive writes.
	LockRefusalsTotal *prometheus.CounterVec

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rosterd_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rosterd_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		AuthFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rosterd_auth_failures_total",
			Help: "Total number of authentication failures.",
		}, []string{"reason"}),

		AuthSuccessesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rosterd_auth_successes_total",
			Help: "Total number of successful authentications.",
		}),

		LockRefusalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rosterd_lock_refusals_total",
			Help: "Total number of writes refused by the session lock or RSVP window.",
		}, []string{"gate"}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rosterd_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthFailuresTotal,
		m.AuthSuccessesTotal,
		m.LockRefusalsTotal,
		m.ServerStartTime,
	)

	m.ServerStartTime.Set(float64(time.Now().Unix()))

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDBPoolCollector registers a custom DB pool stats collector.
func (m *Metrics) RegisterDBPoolCollector(statFunc DBPoolStatFunc) {
	m.registry.MustRegister(NewDBPoolCollector(statFunc))
}

// ObserveRequest records one dispatched request. Satisfies the
// dispatcher's observer contract.
func (m *Metrics) ObserveRequest(method, pattern string, status int, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, pattern, fmt.Sprintf("%d", status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pattern).Observe(seconds)
}

// IncAuthFailure increments the auth failure counter for the given reason.
func (m *Metrics) IncAuthFailure(reason string) {
	m.AuthFailuresTotal.WithLabelValues(reason).Inc()
}

// IncAuthSuccess increments the auth success counter.
func (m *Metrics) IncAuthSuccess() {
	m.AuthSuccessesTotal.Inc()
}

// IncLockRefusal increments the refused-write counter for the given gate.
func (m *Metrics) IncLockRefusal(gate string) {
	m.LockRefusalsTotal.WithLabelValues(gate).Inc()
}
