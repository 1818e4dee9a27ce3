package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samudrap/carelink/internal/adapters/http"
	natsadapter "github.com/samudrap/carelink/internal/adapters/nats"
	"github.com/samudrap/carelink/internal/adapters/postgres"
	valkeyadapter "github.com/samudrap/carelink/internal/adapters/valkey"
	"github.com/samudrap/carelink/internal/core/ports"
	"github.com/samudrap/carelink/internal/core/usecases"
	"github.com/samudrap/carelink/internal/pkg/config"
	"github.com/samudrap/carelink/internal/pkg/logging"
	"github.com/samudrap/carelink/internal/pkg/metrics"
	"github.com/samudrap/carelink/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("carelink-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("carelink-api", logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Valkey: cache-aside for REST reads, durable KV for tracking state
	var cache *valkeyadapter.Cache
	var store *valkeyadapter.Store
	vk, err := valkeyadapter.Connect(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vk.Close()
		cache = valkeyadapter.NewCache(vk, "api")
		store = valkeyadapter.NewStore(vk)
	}

	// Raw NATS connection for the WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer natsConn.Drain()
	}

	// Repos
	caregiverRepo := postgres.NewCaregiverRepo(db)
	patientRepo := postgres.NewPatientRepo(db)
	deviceRepo := postgres.NewDeviceRepo(db)
	assignmentRepo := postgres.NewAssignmentRepo(db)
	scheduleRepo := postgres.NewScheduleRepo(db)
	notificationRepo := postgres.NewNotificationRepo(db)
	distanceLogRepo := postgres.NewDistanceLogRepo(db)

	// Tracking state, hydrated from Valkey. The API serves reads only;
	// the monitor process owns writes.
	subjectID := cfg.Tracking.SubjectID
	if subjectID == "" {
		subjectID = "BRC-001"
	}
	var tracking *usecases.TrackStateService
	if store != nil {
		tracking = usecases.NewTrackStateService(subjectID, store, nil)
		tracking.Load(ctx)
	} else {
		tracking = usecases.NewTrackStateService(subjectID, nil, nil)
	}

	deps := &http.Dependencies{
		Caregivers:    usecases.NewCaregiverService(caregiverRepo, cacheOrNil(cache)),
		Patients:      usecases.NewPatientService(patientRepo, cacheOrNil(cache)),
		Devices:       usecases.NewDeviceService(deviceRepo, assignmentRepo),
		Schedules:     usecases.NewScheduleService(scheduleRepo),
		Notifications: usecases.NewNotificationService(notificationRepo, nil),
		Tracking:      tracking,
		DistanceLog:   distanceLogRepo,
		NATS:          natsConn,
		DB:            db,
		Cache:         cache,
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "CareLink API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// DB pool gauge refresh
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Stat())
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// cacheOrNil avoids handing services a typed-nil interface value.
func cacheOrNil(c *valkeyadapter.Cache) ports.CacheService {
	if c == nil {
		return nil
	}
	return c
}
