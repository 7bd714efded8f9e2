package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the slotcal server.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Reservation metrics.
	ReservationsTotal *prometheus.CounterVec

	// Rate limiting metrics.
	RateLimitRejectionsTotal prometheus.Counter

	// Auth metrics.
	AuthFailuresTotal  *prometheus.CounterVec
	AuthSuccessesTotal *prometheus.CounterVec

	// Session metrics.
	SessionsLive       prometheus.Gauge
	SessionsSweptTotal prometheus.Counter

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slotcal_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "slotcal_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		ReservationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slotcal_reservations_total",
			Help: "Total number of reservation attempts by outcome.",
		}, []string{"outcome"}),

		RateLimitRejectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slotcal_ratelimit_rejections_total",
			Help: "Total number of rate limit rejections.",
		}),

		AuthFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slotcal_auth_failures_total",
			Help: "Total number of authentication failures.",
		}, []string{"auth_type"}),

		AuthSuccessesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slotcal_auth_successes_total",
			Help: "Total number of successful authentications.",
		}, []string{"auth_type"}),

		SessionsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "slotcal_sessions_live",
			Help: "Number of live refresh-token sessions.",
		}),

		SessionsSweptTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slotcal_sessions_swept_total",
			Help: "Total number of expired sessions removed by the sweeper.",
		}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "slotcal_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReservationsTotal,
		m.RateLimitRejectionsTotal,
		m.AuthFailuresTotal,
		m.AuthSuccessesTotal,
		m.SessionsLive,
		m.SessionsSweptTotal,
		m.ServerStartTime,
	)

	m.ServerStartTime.Set(float64(time.Now().Unix()))

	// Register Go runtime and process collectors.
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

// ObserveHTTPRequest records one completed request.
func (m *Metrics) ObserveHTTPRequest(method, pathPattern string, statusCode int, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(seconds)
}

// IncReservation increments the reservation counter for the given outcome
// (reserved, rejected_capacity, rejected_duplicate, unreserved).
func (m *Metrics) IncReservation(outcome string) {
	m.ReservationsTotal.WithLabelValues(outcome).Inc()
}

// IncRateLimitRejection increments the rate limit rejection counter.
func (m *Metrics) IncRateLimitRejection() {
	m.RateLimitRejectionsTotal.Inc()
}

// IncAuthFailure increments the auth failure counter for the given auth type.
func (m *Metrics) IncAuthFailure(authType string) {
	m.AuthFailuresTotal.WithLabelValues(authType).Inc()
}

// IncAuthSuccess increments the auth success counter for the given auth type.
func (m *Metrics) IncAuthSuccess(authType string) {
	m.AuthSuccessesTotal.WithLabelValues(authType).Inc()
}

// SetSessionsLive sets the live sessions gauge.
func (m *Metrics) SetSessionsLive(n int) {
	m.SessionsLive.Set(float64(n))
}

// AddSessionsSwept adds n to the swept sessions counter.
func (m *Metrics) AddSessionsSwept(n int) {
	m.SessionsSweptTotal.Add(float64(n))
}
