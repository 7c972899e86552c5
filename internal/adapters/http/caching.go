package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Handlers that set their own header win.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.Get(fiber.HeaderCacheControl); existing != "" {
			return err
		}
		// Errors and auth-dependent responses are never cached.
		if c.Response().StatusCode() >= 400 {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		case path == "/v1/stations" || path == "/v1/stations/clusters":
			ttl = "public, max-age=30" // viewports move constantly

		case strings.HasPrefix(path, "/v1/stations/"):
			ttl = "public, max-age=600"

		case strings.HasPrefix(path, "/v1/places/"):
			ttl = "public, max-age=3600" // geocoder results are stable

		case path == "/v1/route":
			ttl = "private, max-age=60"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=60"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
