package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the prometheus collectors used by the portal and the gateway client.
type Metrics struct {
	Registry *prometheus.Registry

	requests        *prometheus.CounterVec
	errors          *prometheus.CounterVec
	gatewayCalls    *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
	guardDecisions  *prometheus.CounterVec
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "http_requests_total",
			Help:      "Portal HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "http_errors_total",
			Help:      "Portal HTTP errors by route, method and error code.",
		}, []string{"path", "method", "code"}),
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "requests_total",
			Help:      "Outbound gateway requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		gatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Outbound gateway request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guard",
			Name:      "decisions_total",
			Help:      "Route guard outcomes.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.errors,
		m.gatewayCalls,
		m.gatewayDuration,
		m.guardDecisions,
	)
	return m
}

// RecordRequest increments counters for portal requests.
func (m *Metrics) RecordRequest(path, method string, status int, _ time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordGatewayCall tracks one outbound round trip. Status 0 means transport failure.
func (m *Metrics) RecordGatewayCall(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.gatewayDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordGuardDecision counts a settled route guard mount.
func (m *Metrics) RecordGuardDecision(outcome string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(outcome).Inc()
}
