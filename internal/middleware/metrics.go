package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// httpRequests counts requests by route template and status.
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cee_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	// httpDuration tracks request duration by route template.
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cee_http_request_duration_seconds",
		Help:    "HTTP request duration by method and route",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"method", "route"})
)

// Metrics records per-route request counts and durations. Labels use the
// route template, not the raw path; unmatched paths share one label so
// probing cannot inflate series cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
