package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors for the HTTP API.
type Metrics struct {
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	PartialResults  prometheus.Counter
	DeniedReads     prometheus.Counter
}

// NewMetrics creates the API metrics and registers them with the registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		PartialResults: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_shared_display_partials_total",
				Help: "Shared-view aggregations that completed with failed owners.",
			},
		),
		DeniedReads: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_denied_reads_total",
				Help: "Cross-account reads rejected for missing or revoked grants.",
			},
		),
	}

	registry.MustRegister(
		m.RequestCount,
		m.RequestDuration,
		m.PartialResults,
		m.DeniedReads,
	)
	return m
}

// Middleware records request count and duration per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.RequestCount.WithLabelValues(c.Request.Method, path, status).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the metrics endpoint for the registry.
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
