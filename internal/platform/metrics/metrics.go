// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hnms"

// Metrics owns a private registry so tests can create as many as they like.
// All recording methods are safe on a nil receiver, which disables them.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	authAttempts        *prometheus.CounterVec
	phiAccess           *prometheus.CounterVec
	schedulingConflicts prometheus.Counter
	appointmentEvents   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		authAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_attempts_total",
				Help:      "Total number of login attempts by outcome",
			},
			[]string{"outcome"},
		),
		phiAccess: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "phi_access_total",
				Help:      "Total number of patient data accesses",
			},
			[]string{"role", "resource_type", "action", "status_class"},
		),
		schedulingConflicts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduling_conflicts_total",
				Help:      "Appointment writes rejected because the doctor slot was taken",
			},
		),
		appointmentEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "appointment_events_total",
				Help:      "Appointment lifecycle events by type and publish result",
			},
			[]string{"type", "result"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.authAttempts,
		m.phiAccess,
		m.schedulingConflicts,
		m.appointmentEvents,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterPoolGauges exports connection pool gauges read from stat on every scrape.
func (m *Metrics) RegisterPoolGauges(stat func() (total, idle, acquired int32)) {
	if m == nil {
		return
	}
	gauge := func(name, help string, pick func(t, i, a int32) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 {
			t, i, a := stat()
			return float64(pick(t, i, a))
		})
	}
	m.registry.MustRegister(
		gauge("total_conns", "Total connections in the pool", func(t, _, _ int32) int32 { return t }),
		gauge("idle_conns", "Idle connections in the pool", func(_, i, _ int32) int32 { return i }),
		gauge("acquired_conns", "Connections currently checked out", func(_, _, a int32) int32 { return a }),
	)
}

func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(seconds)
}

// AuthAttempt records a login outcome: success, invalid_credentials, disabled.
func (m *Metrics) AuthAttempt(outcome string) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PHIAccess(role, resourceType, action, statusClass string) {
	if m == nil {
		return
	}
	m.phiAccess.WithLabelValues(role, resourceType, action, statusClass).Inc()
}

func (m *Metrics) SchedulingConflict() {
	if m == nil {
		return
	}
	m.schedulingConflicts.Inc()
}

func (m *Metrics) AppointmentEvent(eventType string, published bool) {
	if m == nil {
		return
	}
	result := "published"
	if !published {
		result = "failed"
	}
	m.appointmentEvents.WithLabelValues(eventType, result).Inc()
}
