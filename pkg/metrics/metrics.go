// Package metrics exposes Prometheus instrumentation for the SDK.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeApproved    = "approved"
	OutcomeDenied      = "denied"
	OutcomeCancelled   = "cancelled"
	OutcomeBypassed    = "bypassed"
	OutcomeUnavailable = "unavailable"
)

// Metrics contains all Prometheus metrics of one SDK instance.
type Metrics struct {
	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Session metrics
	Logins        *prometheus.CounterVec
	TokenRefresh  *prometheus.CounterVec
	Approvals     *prometheus.CounterVec
	SurfacesOpen  *prometheus.GaugeVec
	GatingRejects *prometheus.CounterVec
}

// NewMetrics registers the metrics with the default registerer.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(nil)
}

// NewMetricsWithRegistry registers the metrics with registry, or with the
// default registerer when registry is nil.
func NewMetricsWithRegistry(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mirrorworld_http_requests_total",
			Help: "The total number of backend HTTP requests",
		}, []string{"service", "method", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mirrorworld_http_request_duration_seconds",
			Help:    "Latency of backend HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"}),
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mirrorworld_logins_total",
			Help: "The total number of login attempts by outcome",
		}, []string{"outcome"}),
		TokenRefresh: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mirrorworld_token_refresh_total",
			Help: "The total number of session restores from a refresh token by outcome",
		}, []string{"outcome"}),
		Approvals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mirrorworld_approvals_total",
			Help: "The total number of action approval requests by outcome",
		}, []string{"outcome"}),
		SurfacesOpen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mirrorworld_surface_open",
			Help: "Whether a wallet surface is currently open, by mode",
		}, []string{"mode"}),
		GatingRejects: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mirrorworld_gating_rejections_total",
			Help: "The total number of calls rejected for the active chain config",
		}, []string{"method"}),
	}
}

// ObserveHTTP records one backend request.
func (m *Metrics) ObserveHTTP(service, method, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(service, method, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(service).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordRefresh(outcome string) {
	if m == nil {
		return
	}
	m.TokenRefresh.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordApproval(outcome string) {
	if m == nil {
		return
	}
	m.Approvals.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetSurfaceOpen(mode string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.SurfacesOpen.WithLabelValues(mode).Set(v)
}

func (m *Metrics) RecordGatingReject(method string) {
	if m == nil {
		return
	}
	m.GatingRejects.WithLabelValues(method).Inc()
}
