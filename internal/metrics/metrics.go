// Package metrics exposes Prometheus metrics for the HTTP API and BOM operations.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec

	BomOperationsTotal *prometheus.CounterVec
	ProducedUnitsTotal prometheus.Counter
	SnapshotCacheTotal *prometheus.CounterVec
	DataAnomaliesTotal *prometheus.CounterVec
}

// New registers every metric under prefix on a dedicated registry.
func New(prefix string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HttpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HttpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		BomOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_bom_operations_total",
				Help: "Total number of BOM mutations by operation",
			},
			[]string{"operation"},
		),
		ProducedUnitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_bom_produced_builds_total",
				Help: "Total number of BOM builds produced",
			},
		),
		SnapshotCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_bom_snapshot_cache_total",
				Help: "BOM snapshot cache lookups by result",
			},
			[]string{"result"},
		),
		DataAnomaliesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_bom_data_anomalies_total",
				Help: "Line items or PCBs skipped or corrected by the producibility calculators",
			},
			[]string{"kind"},
		),
	}
	reg.MustRegister(
		m.HttpRequestsTotal,
		m.HttpRequestDuration,
		m.BomOperationsTotal,
		m.ProducedUnitsTotal,
		m.SnapshotCacheTotal,
		m.DataAnomaliesTotal,
	)
	return m
}

// Middleware records request count and duration by route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.HttpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.HttpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordOperation increments the counter for a BOM mutation.
func (m *Metrics) RecordOperation(operation string) {
	if m == nil {
		return
	}
	m.BomOperationsTotal.WithLabelValues(operation).Inc()
}

// RecordProduced adds produced BOM builds.
func (m *Metrics) RecordProduced(builds int64) {
	if m == nil {
		return
	}
	m.ProducedUnitsTotal.Add(float64(builds))
}

// RecordCache counts a snapshot cache hit or miss.
func (m *Metrics) RecordCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.SnapshotCacheTotal.WithLabelValues(result).Inc()
}

// RecordAnomaly counts a data anomaly.
func (m *Metrics) RecordAnomaly(kind string) {
	if m == nil {
		return
	}
	m.DataAnomaliesTotal.WithLabelValues(kind).Inc()
}
