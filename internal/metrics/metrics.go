// Package metrics holds the Prometheus collectors for the editor.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector bundles the editor's metrics on a private registry so tests can
// create as many instances as they like. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry *prometheus.Registry

	NodesCreated    prometheus.Counter
	NodeFlushes     *prometheus.CounterVec
	ImagesGenerated prometheus.Counter
	ProviderErrors  prometheus.Counter
	LayoutDuration  prometheus.Histogram
	HTTPRequests    *prometheus.CounterVec
}

// NewCollector creates and registers all collectors under the namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		NodesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_created_total",
			Help:      "Total number of story nodes created",
		}),
		NodeFlushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_flushes_total",
			Help:      "Total number of node persistence flushes",
		}, []string{"result"}),
		ImagesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_generated_total",
			Help:      "Total number of images produced by the fill workflow",
		}),
		ProviderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Total number of failed image provider calls",
		}),
		LayoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_duration_seconds",
			Help:      "Full graph layout computation duration",
			Buckets:   prometheus.DefBuckets,
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of editor API requests",
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(
		c.NodesCreated,
		c.NodeFlushes,
		c.ImagesGenerated,
		c.ProviderErrors,
		c.LayoutDuration,
		c.HTTPRequests,
	)
	return c
}

// Registry exposes the backing registry for the /metrics handler.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return prometheus.NewRegistry()
	}
	return c.registry
}

// ObserveLayout records one layout run. Nil-safe.
func (c *Collector) ObserveLayout(d time.Duration) {
	if c == nil {
		return
	}
	c.LayoutDuration.Observe(d.Seconds())
}

// CountFlush records a flush outcome. Nil-safe.
func (c *Collector) CountFlush(ok bool) {
	if c == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	c.NodeFlushes.WithLabelValues(result).Inc()
}

// CountNodeCreated records a node creation. Nil-safe.
func (c *Collector) CountNodeCreated() {
	if c == nil {
		return
	}
	c.NodesCreated.Inc()
}

// CountImage records one generated image. Nil-safe.
func (c *Collector) CountImage() {
	if c == nil {
		return
	}
	c.ImagesGenerated.Inc()
}

// CountProviderError records one failed provider call. Nil-safe.
func (c *Collector) CountProviderError() {
	if c == nil {
		return
	}
	c.ProviderErrors.Inc()
}
