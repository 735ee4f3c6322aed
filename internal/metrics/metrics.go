// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is the metrics surface used by middleware and services.
type Recorder interface {
	RecordHTTPRequest(method, route string, status int, latency time.Duration)
	RecordEnrichmentSuccess()
	RecordEnrichmentFailure(reason string)
	RecordEnrichmentCacheHit()
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	httpRequests       *prometheus.CounterVec
	httpLatency        *prometheus.HistogramVec
	enrichmentSuccess  prometheus.Counter
	enrichmentFail     *prometheus.CounterVec
	enrichmentCacheHit prometheus.Counter
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		enrichmentSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_enrichment_success_total",
			Help: "Successful provider enrichment lookups.",
		}),
		enrichmentFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_enrichment_fail_total",
			Help: "Failed provider enrichment lookups by reason.",
		}, []string{"reason"}),
		enrichmentCacheHit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_enrichment_cache_hits_total",
			Help: "Enrichment lookups served from the cache.",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.enrichmentSuccess,
		c.enrichmentFail,
		c.enrichmentCacheHit,
	)

	return c
}

// RecordHTTPRequest counts a finished request and observes its latency.
func (c *Collector) RecordHTTPRequest(method, route string, status int, latency time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(route).Observe(latency.Seconds())
}

// RecordEnrichmentSuccess counts a successful provider lookup.
func (c *Collector) RecordEnrichmentSuccess() {
	c.enrichmentSuccess.Inc()
}

// RecordEnrichmentFailure counts a failed provider lookup.
func (c *Collector) RecordEnrichmentFailure(reason string) {
	c.enrichmentFail.WithLabelValues(reason).Inc()
}

// RecordEnrichmentCacheHit counts a lookup served from the cache.
func (c *Collector) RecordEnrichmentCacheHit() {
	c.enrichmentCacheHit.Inc()
}
