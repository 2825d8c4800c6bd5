// Package middleware – HTTP metrics
//
// This file exposes Prometheus instrumentation for HTTP traffic: request
// counts and latencies labelled by method, route and status, the number of
// requests in flight, and webhook updates dropped as duplicates. Unmatched
// routes share a single path label to keep cardinality bounded.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anonbot_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		},
		[]string{"method", "path", "status"},
	)

	// Status is left out to keep the histogram small.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anonbot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "anonbot_http_requests_inflight",
			Help: "HTTP requests currently being served.",
		},
	)

	dedupedUpdates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "anonbot_webhook_duplicates_total",
			Help: "Webhook deliveries dropped because the update id was already claimed.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, dedupedUpdates)
}

// Metrics instruments requests. The path label is the route template
// (/webhook/:secret), so secrets never become label values; unmatched
// requests share the "unmatched" label.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
