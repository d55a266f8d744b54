// Package metrics provides Prometheus metrics for the coaching API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors on a private registry, so several instances
// (one per test) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	OracleCallsTotal   *prometheus.CounterVec
	OracleCallDuration *prometheus.HistogramVec

	ConsultationTurnsTotal    *prometheus.CounterVec
	ConsultationsStartedTotal prometheus.Counter
	ConsultationsEndedTotal   *prometheus.CounterVec
	PlansGeneratedTotal       *prometheus.CounterVec
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitcoach_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fitcoach_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		OracleCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitcoach_oracle_calls_total",
				Help: "Total number of text generation calls",
			},
			[]string{"operation", "status"},
		),
		OracleCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fitcoach_oracle_call_duration_seconds",
				Help:    "Duration of text generation calls in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
			},
			[]string{"operation"},
		),
		ConsultationTurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitcoach_consultation_turns_total",
				Help: "Total number of consultation turns by outcome",
			},
			[]string{"outcome"},
		),
		ConsultationsStartedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fitcoach_consultations_started_total",
				Help: "Total number of consultations started",
			},
		),
		ConsultationsEndedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitcoach_consultations_ended_total",
				Help: "Total number of consultations ended by reason. Sessions that expire are not counted",
			},
			[]string{"reason"},
		),
		PlansGeneratedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitcoach_plans_generated_total",
				Help: "Total number of generated workout plans by persistence outcome",
			},
			[]string{"status"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveOracleCall records one oracle call. Safe on a nil receiver.
func (m *Metrics) ObserveOracleCall(operation, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.OracleCallsTotal.WithLabelValues(operation, status).Inc()
	m.OracleCallDuration.WithLabelValues(operation).Observe(took.Seconds())
}

// ObserveTurn records a consultation turn outcome. Safe on a nil receiver.
func (m *Metrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.ConsultationTurnsTotal.WithLabelValues(outcome).Inc()
}

// SessionStarted and SessionEnded count consultation lifecycles. Safe on a
// nil receiver.
func (m *Metrics) SessionStarted() {
	if m != nil {
		m.ConsultationsStartedTotal.Inc()
	}
}

func (m *Metrics) SessionEnded(reason string) {
	if m != nil {
		m.ConsultationsEndedTotal.WithLabelValues(reason).Inc()
	}
}

// ObservePlan records a generated plan. Safe on a nil receiver.
func (m *Metrics) ObservePlan(status string) {
	if m == nil {
		return
	}
	m.PlansGeneratedTotal.WithLabelValues(status).Inc()
}

// ObserveHTTP records one served request. Safe on a nil receiver.
func (m *Metrics) ObserveHTTP(method, route, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(took.Seconds())
}
