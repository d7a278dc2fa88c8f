package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors, registered on one registry
type Metrics struct {
	registry *prometheus.Registry

	// RequestCounter counts all HTTP requests with labels
	RequestCounter *prometheus.CounterVec
	// RequestDuration records request duration in seconds
	RequestDuration *prometheus.HistogramVec

	Logins       *prometheus.CounterVec
	SSOTokens    *prometheus.CounterVec
	AccessChecks *prometheus.CounterVec
}

// New creates and registers the collectors on a fresh registry
func New(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		registry: reg,
		RequestCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "Duration of HTTP requests in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "logins_total",
			Help:        "Login attempts by outcome",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		SSOTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "sso_tokens_total",
			Help:        "SSO token operations by outcome",
			ConstLabels: constLabels,
		}, []string{"operation", "outcome"}),
		AccessChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "access_checks_total",
			Help:        "Product access resolutions by outcome",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestCounter,
		m.RequestDuration,
		m.Logins,
		m.SSOTokens,
		m.AccessChecks,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Login counts a login attempt. Safe on a nil receiver.
func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SSOToken(operation, outcome string) {
	if m == nil {
		return
	}
	m.SSOTokens.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) AccessCheck(outcome string) {
	if m == nil {
		return
	}
	m.AccessChecks.WithLabelValues(outcome).Inc()
}
