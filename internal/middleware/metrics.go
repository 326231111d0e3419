package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletledger/internal/metrics"
)

// HTTPMetrics counts requests and observes latency per route pattern.
func HTTPMetrics(m *metrics.Prometheus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		if route == "" {
			route = c.Path()
		}
		status := strconv.Itoa(statusOf(c, err))
		m.RequestsTotal.WithLabelValues(route, c.Method(), status).Inc()
		m.RequestLatency.WithLabelValues(route, c.Method(), status).Observe(time.Since(start).Seconds())
		return err
	}
}

// statusOf reports the status the error handler will write. Fiber applies
// returned errors after the middleware chain unwinds.
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}
