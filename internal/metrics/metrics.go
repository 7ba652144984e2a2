// Package metrics exposes Prometheus counters for requests, mutations and
// saves.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeUnsaved  = "unsaved"
)

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	mutationsTotal  *prometheus.CounterVec
	saveFailures    *prometheus.CounterVec
	loginsTotal     *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keepsake_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keepsake_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		mutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keepsake_mutations_total",
				Help: "Collection mutations by resource, operation and outcome",
			},
			[]string{"resource", "op", "outcome"},
		),
		saveFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keepsake_save_failures_total",
				Help: "Document writes that failed and left changes in memory only",
			},
			[]string{"document"},
		),
		loginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keepsake_logins_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestsTotal,
		m.requestDuration,
		m.mutationsTotal,
		m.saveFailures,
		m.loginsTotal,
	)
	return m
}

// Mutation counts one collection mutation.
func (m *Metrics) Mutation(resource, op, outcome string) {
	m.mutationsTotal.WithLabelValues(resource, op, outcome).Inc()
}

// SaveFailed counts a failed write of the named document.
func (m *Metrics) SaveFailed(document string) {
	m.saveFailures.WithLabelValues(document).Inc()
}

// Login counts a login attempt.
func (m *Metrics) Login(ok bool) {
	outcome := OutcomeOK
	if !ok {
		outcome = OutcomeRejected
	}
	m.loginsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRequest records a finished HTTP request. route is the matched
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
