package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// requestObserver lo implementa *metrics.Prometheus.
type requestObserver interface {
	ObserveHTTP(method, route string, status int, d time.Duration)
}

// RequestMetrics mide cada petición etiquetada por el patrón de ruta (no la URL, para acotar cardinalidad).
func RequestMetrics(obs requestObserver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		obs.ObserveHTTP(c.Method(), c.Route().Path, status, time.Since(start))
		return err
	}
}
