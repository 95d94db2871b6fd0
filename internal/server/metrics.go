package server

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
	walksSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "walks_submitted_total",
			Help: "Total number of walk sessions submitted",
		},
	)
	scheduleMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_mutations_total",
			Help: "Total number of schedule create/update/join/leave calls",
		},
		[]string{"op"},
	)
)

var registerMetricsOnce sync.Once

func registerMetrics() {
	registerMetricsOnce.Do(func() {
		prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, walksSubmitted, scheduleMutations)
	})
}

// metricsMiddleware records per-route counters and latency. The route
// pattern is used instead of the raw path so ids do not explode the label
// cardinality.
func metricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		path := c.Route().Path
		httpRequestsTotal.WithLabelValues(path, c.Method(), strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(path, c.Method()).Observe(time.Since(start).Seconds())

		switch {
		case c.Method() == fiber.MethodPost && path == "/walks/":
			if status < 300 {
				walksSubmitted.Inc()
			}
		case path == "/schedules/" && c.Method() == fiber.MethodPost:
			scheduleMutations.WithLabelValues("create").Inc()
		case path == "/schedules/:id" && c.Method() == fiber.MethodPut:
			scheduleMutations.WithLabelValues("update").Inc()
		case path == "/schedules/:id/join":
			scheduleMutations.WithLabelValues("join").Inc()
		case path == "/schedules/:id/leave":
			scheduleMutations.WithLabelValues("leave").Inc()
		}
		return err
	}
}
