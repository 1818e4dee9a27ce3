package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samudrap/carelink/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// The pre-assignment tracking endpoint moved under /v1/tracking.
	app.Use(DeprecationMiddleware([]DeprecatedRoute{
		{
			Path:        "/v1/distance",
			SunsetDate:  time.Date(2027, time.March, 1, 0, 0, 0, 0, time.UTC),
			Alternative: "/v1/tracking/current",
		},
	}))

	// Health & readiness (no timeout — fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1 — 15s per-request timeout
	v1 := app.Group("/v1")

	v1.Post("/caregivers", timeout.NewWithContext(CreateCaregiverHandler(deps), 15*time.Second))
	v1.Get("/caregivers", timeout.NewWithContext(ListCaregiversHandler(deps), 15*time.Second))
	v1.Get("/caregivers/:id", timeout.NewWithContext(GetCaregiverHandler(deps), 15*time.Second))
	v1.Put("/caregivers/:id", timeout.NewWithContext(UpdateCaregiverHandler(deps), 15*time.Second))
	v1.Delete("/caregivers/:id", timeout.NewWithContext(DeleteCaregiverHandler(deps), 15*time.Second))
	v1.Get("/caregivers/:id/schedules", timeout.NewWithContext(CaregiverSchedulesHandler(deps), 15*time.Second))
	v1.Get("/caregivers/:id/notifications", timeout.NewWithContext(CaregiverNotificationsHandler(deps), 15*time.Second))

	v1.Post("/patients", timeout.NewWithContext(CreatePatientHandler(deps), 15*time.Second))
	v1.Get("/patients", timeout.NewWithContext(ListPatientsHandler(deps), 15*time.Second))
	v1.Get("/patients/:id", timeout.NewWithContext(GetPatientHandler(deps), 15*time.Second))
	v1.Put("/patients/:id", timeout.NewWithContext(UpdatePatientHandler(deps), 15*time.Second))
	v1.Delete("/patients/:id", timeout.NewWithContext(DeletePatientHandler(deps), 15*time.Second))
	v1.Get("/patients/:id/assignments", timeout.NewWithContext(PatientAssignmentsHandler(deps), 15*time.Second))

	v1.Post("/devices", timeout.NewWithContext(RegisterDeviceHandler(deps), 15*time.Second))
	v1.Get("/devices", timeout.NewWithContext(ListDevicesHandler(deps), 15*time.Second))
	v1.Get("/devices/:id", timeout.NewWithContext(GetDeviceHandler(deps), 15*time.Second))
	v1.Delete("/devices/:id", timeout.NewWithContext(DeleteDeviceHandler(deps), 15*time.Second))

	v1.Post("/assignments", timeout.NewWithContext(CreateAssignmentHandler(deps), 15*time.Second))
	v1.Post("/assignments/:id/release", timeout.NewWithContext(ReleaseAssignmentHandler(deps), 15*time.Second))

	v1.Post("/schedules", timeout.NewWithContext(CreateScheduleHandler(deps), 15*time.Second))
	v1.Delete("/schedules/:id", timeout.NewWithContext(DeleteScheduleHandler(deps), 15*time.Second))

	v1.Post("/notifications/:id/read", timeout.NewWithContext(MarkNotificationReadHandler(deps), 15*time.Second))

	// Live tracking state + history
	v1.Get("/tracking/current", TrackingStateHandler(deps))
	v1.Get("/tracking/:subjectID/distance-log", timeout.NewWithContext(DistanceLogHandler(deps), 15*time.Second))

	// Deprecated alias kept for early clients
	v1.Get("/distance", TrackingStateHandler(deps))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
