// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the Prometheus HTTP metrics. Labels stay bounded: the
// route label is the registered Gin template ("/api/v1/orders/:phone"), or
// "unmatched", never the raw URL with its phone numbers.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "orderbot"
	metricsSubsystem = "http"
	unmatchedPath    = "unmatched"
)

// Rejection reasons for the rejected counter.
const (
	rejectRateLimited = "rate_limited"
	rejectBadKey      = "bad_idempotency_key"
)

var (
	httpReqs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpLat = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	httpInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "requests_in_flight",
		Help:      "HTTP requests being served.",
	})

	// Replies are small JSON pages; 256B to 1MiB covers them.
	httpRespSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "response_size_bytes",
		Help:      "HTTP response body size.",
		Buckets:   prometheus.ExponentialBuckets(256, 4, 7),
	}, []string{"method", "route"})

	httpRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "rejected_total",
		Help:      "Requests turned away by middleware before reaching a handler.",
	}, []string{"reason"})
)

// MetricsOptions lists routes (e.g. "/metrics", "/health") that are not
// recorded.
type MetricsOptions struct {
	SkipPaths []string
}

// Metrics records count, latency, in-flight requests and response size per
// route.
func Metrics(opts MetricsOptions) gin.HandlerFunc {
	skip := make(map[string]bool, len(opts.SkipPaths))
	for _, p := range opts.SkipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.FullPath()] {
			c.Next()
			return
		}

		httpInflight.Inc()
		defer httpInflight.Dec()
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedPath
		}
		m := c.Request.Method
		httpReqs.WithLabelValues(m, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(m, route).Observe(time.Since(start).Seconds())
		if n := c.Writer.Size(); n >= 0 { // -1 when hijacked
			httpRespSize.WithLabelValues(m, route).Observe(float64(n))
		}
	}
}
