package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/stationmap/internal/pkg/metrics"
)

// RequestTimeout bounds every REST handler.
const RequestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID, then a request-scoped logger and span that carry it
	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		Next: func(c *fiber.Ctx) bool {
			// Viewport traffic of a live session goes over its socket.
			return websocket.IsWebSocketUpgrade(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/stations", withTimeout(ListStationsHandler(deps)))
	v1.Get("/stations/nearby", withTimeout(NearbyStationsHandler(deps)))
	v1.Get("/stations/clusters", withTimeout(StationClustersHandler(deps)))
	v1.Get("/stations/:id", withTimeout(GetStationHandler(deps)))
	if deps.Auth != nil {
		v1.Post("/stations", deps.Auth.Middleware(), withTimeout(CreateStationHandler(deps)))
	} else {
		v1.Post("/stations", withTimeout(CreateStationHandler(deps)))
	}

	v1.Get("/places/search", withTimeout(SearchPlacesHandler(deps)))
	v1.Get("/places/:id", withTimeout(GetPlaceHandler(deps)))
	v1.Get("/geocode/reverse", withTimeout(ReverseGeocodeHandler(deps)))
	v1.Get("/route", withTimeout(RouteHandler(deps)))

	// GraphQL
	app.Post("/graphql", withTimeout(GraphQLHandler(deps)))

	// API documentation (Swagger UI)
	SetupDocs(app, DefaultSpecPath)

	// Map sessions
	if deps.Sessions != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws/session", websocket.New(SessionSocketHandler(deps.Sessions)))
	}
}

func withTimeout(h fiber.Handler) fiber.Handler {
	return timeout.NewWithContext(h, RequestTimeout)
}
