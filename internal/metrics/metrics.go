// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// Metrics is a private registry and the collectors BuildWatch records to.
type Metrics struct {
	registry *prometheus.Registry

	fetches      *prometheus.CounterVec
	projects     prometheus.Gauge
	transitions  *prometheus.CounterVec
	requests     *prometheus.CounterVec
	requestTimes *prometheus.HistogramVec
}

// New registers BuildWatch collectors plus the Go and process collectors on
// a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "buildwatch",
			Name:      "source_fetches_total",
			Help:      "Project source fetches by serving source and outcome.",
		}, []string{"source", "outcome"}),
		projects: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "buildwatch",
			Name:      "projects",
			Help:      "Projects in the last refreshed batch.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "buildwatch",
			Name:      "phase_transitions_total",
			Help:      "Phase status changes seen during refresh.",
		}, []string{"phase", "status"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "buildwatch",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		requestTimes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "buildwatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	m.registry.MustRegister(
		m.fetches,
		m.projects,
		m.transitions,
		m.requests,
		m.requestTimes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveFetch counts a fetch served by source.
func (m *Metrics) ObserveFetch(source, outcome string, projects int) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(source, outcome).Inc()
	if outcome != OutcomeError {
		m.projects.Set(float64(projects))
	}
}

// ObserveTransition counts a phase entering status.
func (m *Metrics) ObserveTransition(phase, status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(phase, status).Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.requestTimes.WithLabelValues(route).Observe(elapsed.Seconds())
}
