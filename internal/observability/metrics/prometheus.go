// Package metrics provides Prometheus metrics for the adherence service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	ScheduleFallbacks *prometheus.CounterVec
	DoseUpdates       *prometheus.CounterVec
	DosesGenerated    prometheus.Counter
	ComplianceQueries *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates all metrics and registers them with reg. A nil reg uses the
// default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		ScheduleFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adherence_schedule_fallbacks_total",
			Help: "Custom intervals that fell back to a default because they were missing or unreadable",
		}, []string{"reason"}),
		DoseUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adherence_dose_updates_total",
			Help: "Dose status writes by resulting status",
		}, []string{"status"}),
		DosesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adherence_doses_generated_total",
			Help: "Dose records materialized by explicit generation",
		}),
		ComplianceQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adherence_compliance_queries_total",
			Help: "Compliance summaries computed, by counting mode",
		}, []string{"mode"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adherence_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "adherence_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.ScheduleFallbacks,
		m.DoseUpdates,
		m.DosesGenerated,
		m.ComplianceQueries,
		m.HTTPRequests,
		m.HTTPDuration,
	)

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}

	return m
}

// Handler returns the Prometheus HTTP handler for the registry the metrics live in
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
