package middleware

import (
	"strconv"
	"time"

	"github.com/caleidoscopio-ian/caleidoscopio-manager-sub000/pkg/metrics"
	"github.com/gofiber/fiber/v2"
)

// MetricsMiddleware records request count and latency per route pattern
func MetricsMiddleware(m *metrics.Metrics) fiber.Handler {
	if m == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		// route patterns keep label cardinality bounded
		path := c.Route().Path
		if path == "" || path == "/" {
			path = "unmatched"
		}
		labels := []string{c.Method(), path, strconv.Itoa(status)}
		m.RequestCounter.WithLabelValues(labels...).Inc()
		m.RequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		return err
	}
}
