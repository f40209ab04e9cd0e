// Package metrics provides Prometheus metrics export for the retrieval
// pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records retrieval pipeline metrics.
type Collector struct {
	registry *prometheus.Registry

	retrievalLatency     *prometheus.HistogramVec
	retrievalRequests    *prometheus.CounterVec
	namespaceQueryErrors *prometheus.CounterVec
	memoriesStored       *prometheus.CounterVec
	memoriesReturned     *prometheus.HistogramVec
}

// NewCollector creates a collector registered on its own registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{registry: registry}

	c.retrievalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mrwhite",
			Subsystem: "retrieval",
			Name:      "latency_seconds",
			Help:      "Retrieval pipeline latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"mode"},
	)

	c.retrievalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mrwhite",
			Subsystem: "retrieval",
			Name:      "requests_total",
			Help:      "Total number of retrieval requests",
		},
		[]string{"mode", "status"},
	)

	c.namespaceQueryErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mrwhite",
			Subsystem: "retrieval",
			Name:      "namespace_query_errors_total",
			Help:      "Namespace queries that failed and were skipped",
		},
		[]string{"kind"},
	)

	c.memoriesStored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mrwhite",
			Subsystem: "memory",
			Name:      "stored_total",
			Help:      "Memory vectors written, by kind and status",
		},
		[]string{"kind", "status"},
	)

	c.memoriesReturned = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mrwhite",
			Subsystem: "retrieval",
			Name:      "memories_returned",
			Help:      "Number of memories returned per retrieval",
			Buckets:   []float64{0, 1, 3, 5, 10, 15, 20, 30},
		},
		[]string{"mode"},
	)

	registry.MustRegister(
		c.retrievalLatency,
		c.retrievalRequests,
		c.namespaceQueryErrors,
		c.memoriesStored,
		c.memoriesReturned,
	)

	return c
}

// ObserveRetrieval records one completed retrieval call.
func (c *Collector) ObserveRetrieval(mode string, status string, returned int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.retrievalLatency.WithLabelValues(mode).Observe(elapsed.Seconds())
	c.retrievalRequests.WithLabelValues(mode, status).Inc()
	c.memoriesReturned.WithLabelValues(mode).Observe(float64(returned))
}

// ObserveNamespaceQueryError counts a failed (and skipped) namespace query.
func (c *Collector) ObserveNamespaceQueryError(kind string) {
	if c == nil {
		return
	}
	c.namespaceQueryErrors.WithLabelValues(kind).Inc()
}

// ObserveMemoryStored counts one memory write attempt.
func (c *Collector) ObserveMemoryStored(kind string, ok bool) {
	if c == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	c.memoriesStored.WithLabelValues(kind, status).Inc()
}

// Handler returns the HTTP handler exposing the metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
