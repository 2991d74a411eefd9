// Package metrics provides Prometheus collectors for server health and performance.
// file: internal/metrics/server_metrics.go.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "weather_mcp"

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Collector owns a private Prometheus registry and the server's collectors.
// All methods are safe on a nil *Collector, which records nothing.
type Collector struct {
	registry *prometheus.Registry

	toolCalls        *prometheus.CounterVec
	toolDuration     *prometheus.HistogramVec
	resourceReads    *prometheus.CounterVec
	activeBindings   prometheus.Gauge
	bindingsTotal    prometheus.Counter
	upstreamRequests *prometheus.CounterVec
	upstreamDuration prometheus.Histogram
}

// NewCollector creates a collector with Go runtime and process metrics registered.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		toolCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool invocations by tool name and outcome category.",
		}, []string{"tool", "outcome"}),
		toolDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Tool invocation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		resourceReads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resource_reads_total",
			Help:      "Resource reads by resource name and outcome.",
		}, []string{"resource", "outcome"}),
		activeBindings: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transport_bindings_active",
			Help:      "Per-request transport bindings currently open.",
		}),
		bindingsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_bindings_total",
			Help:      "Per-request transport bindings created.",
		}),
		upstreamRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_upstream_requests_total",
			Help:      "Outbound weather API requests by HTTP status (\"error\" for transport failures).",
		}, []string{"status"}),
		upstreamDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weather_upstream_duration_seconds",
			Help:      "Outbound weather API latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the collected metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordToolCall records one tool invocation. outcome is OutcomeOK or an
// error category.
func (c *Collector) RecordToolCall(tool, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.toolCalls.WithLabelValues(tool, outcome).Inc()
	c.toolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// RecordResourceRead records one resource read.
func (c *Collector) RecordResourceRead(resource, outcome string) {
	if c == nil {
		return
	}
	c.resourceReads.WithLabelValues(resource, outcome).Inc()
}

// BindingOpened records a new transport binding.
func (c *Collector) BindingOpened() {
	if c == nil {
		return
	}
	c.bindingsTotal.Inc()
	c.activeBindings.Inc()
}

// BindingClosed records a binding release.
func (c *Collector) BindingClosed() {
	if c == nil {
		return
	}
	c.activeBindings.Dec()
}

// RecordUpstream records an outbound weather request. status is 0 when the
// request failed before a response arrived.
func (c *Collector) RecordUpstream(status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	label := OutcomeError
	if status > 0 {
		label = strconv.Itoa(status)
	}
	c.upstreamRequests.WithLabelValues(label).Inc()
	c.upstreamDuration.Observe(elapsed.Seconds())
}
