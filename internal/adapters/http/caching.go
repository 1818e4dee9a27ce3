package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on
// endpoint. Adds sensible defaults if not already set by the handler.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != "GET" {
			return err
		}
		if existing := c.Get("Cache-Control"); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10" // Very short for system checks

		case path == "/metrics":
			ttl = "no-cache" // Metrics are real-time

		case path == "/graphql":
			ttl = "private, max-age=0"

		case strings.HasPrefix(path, "/v1/tracking"):
			ttl = "no-store" // Live tracking state must never be cached

		case strings.HasPrefix(path, "/v1/patients") || strings.HasPrefix(path, "/v1/caregivers"):
			ttl = "private, max-age=60" // Care records are per-team data

		case strings.HasPrefix(path, "/v1/devices"):
			ttl = "private, max-age=300" // Device registry changes rarely

		case strings.HasPrefix(path, "/v1/"):
			ttl = "private, max-age=30"
		}

		if ttl != "" {
			c.Set("Cache-Control", ttl)
		}
		return err
	}
}
