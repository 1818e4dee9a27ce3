package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samudrap/carelink/internal/adapters/bracelet"
	"github.com/samudrap/carelink/internal/adapters/geolocation"
	"github.com/samudrap/carelink/internal/adapters/memstore"
	natsadapter "github.com/samudrap/carelink/internal/adapters/nats"
	"github.com/samudrap/carelink/internal/adapters/postgres"
	valkeyadapter "github.com/samudrap/carelink/internal/adapters/valkey"
	"github.com/samudrap/carelink/internal/core/domain"
	"github.com/samudrap/carelink/internal/core/ports"
	"github.com/samudrap/carelink/internal/core/usecases"
	"github.com/samudrap/carelink/internal/pkg/config"
	"github.com/samudrap/carelink/internal/pkg/logging"
	"github.com/samudrap/carelink/internal/pkg/metrics"
	"github.com/samudrap/carelink/internal/pkg/telemetry"
)

// The monitor owns the proximity pipeline: it subscribes to the bracelet
// telemetry stream, watches the observer position, computes distances, and
// persists + publishes every accepted update.
func main() {
	cfg, err := config.Load("carelink-monitor")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("carelink-monitor", logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	subjectID := cfg.Tracking.SubjectID
	if subjectID == "" {
		subjectID = "BRC-001"
	}

	// Durable state store. Valkey when reachable, in-memory otherwise so the
	// pipeline still runs (state just won't survive a restart).
	var kv ports.KeyValueStore
	vk, err := valkeyadapter.Connect(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, tracking state is in-memory only", "error", err)
		kv = memstore.New()
	} else {
		defer vk.Close()
		kv = valkeyadapter.NewStore(vk)
	}

	// Event publisher (JetStream)
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, tracking events will not be published", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Distance history sink
	var distanceLog ports.DistanceLogRepository
	var deviceRepo *postgres.DeviceRepo
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		slog.Warn("database unavailable, distance history disabled", "error", err)
	} else {
		defer db.Close()
		distanceLog = postgres.NewDistanceLogRepo(db)
		deviceRepo = postgres.NewDeviceRepo(db)
	}

	// Tracking state, rehydrated from the KV store across restarts
	track := usecases.NewTrackStateService(subjectID, kv, publisher)
	track.Load(ctx)

	prox := usecases.NewProximityService(subjectID, track, distanceLog, usecases.ProximityOptions{
		EmitThreshold: cfg.Tracking.EmitThresholdM,
		AlertRadius:   cfg.Tracking.AlertRadiusM,
	})
	prox.OnAlert(func(subject string, meters float64) {
		if publisher == nil {
			slog.Warn("proximity alert dropped, no publisher", "subject", subject, "meters", meters)
			return
		}
		data, _ := json.Marshal(natsadapter.Alert{
			SubjectID: subject,
			Meters:    meters,
			At:        time.Now(),
		})
		if err := publisher.PublishAlert(ctx, subject, data); err != nil {
			slog.Error("publish alert failed", "subject", subject, "error", err)
		}
	})

	// Observer position
	watcher := geolocation.NewWatcher(buildProvider(cfg), geolocation.Options{
		MovementThreshold: cfg.Position.MovementMinM,
		FirstFixTimeout:   time.Duration(cfg.Position.FirstFixTimeout) * time.Second,
		MaxStaleness:      time.Duration(cfg.Position.MaxStalenessSec) * time.Second,
		Fallback:          domain.GeoPoint{Lat: cfg.Position.FallbackLat, Lon: cfg.Position.FallbackLon},
	})
	watcher.OnSample(func(pt domain.GeoPoint) {
		prox.UpdateLocalPosition(ctx, pt)
	})
	watcher.OnDegraded(func(err error) {
		slog.Warn("position provider degraded, using fallback point", "error", err)
	})
	if err := watcher.Start(ctx); err != nil {
		log.Fatalf("position watcher: %v", err)
	}
	defer watcher.Close()

	// Bracelet stream
	client := bracelet.NewClient(cfg.Bracelet.StreamURL,
		bracelet.WithTransport(bracelet.NewWebSocketTransport(time.Duration(cfg.Bracelet.DialTimeout)*time.Second)),
		bracelet.WithBackoff(
			time.Duration(cfg.Bracelet.BackoffInitialMS)*time.Millisecond,
			time.Duration(cfg.Bracelet.BackoffMaxMS)*time.Millisecond,
		),
		bracelet.WithMaxRetries(cfg.Bracelet.MaxRetries),
		bracelet.WithDialTimeout(time.Duration(cfg.Bracelet.DialTimeout)*time.Second),
	)
	client.OnRecord(func(rec *domain.TelemetryRecord) {
		metrics.TelemetryRecords.WithLabelValues(subjectID).Inc()
		if deviceRepo != nil && rec.DeviceID != "" {
			if err := deviceRepo.TouchLastSeen(ctx, rec.DeviceID, rec.ReceivedAt); err != nil {
				slog.Debug("touch last seen failed", "device", rec.DeviceID, "error", err)
			}
		}
		prox.UpdateTelemetry(ctx, rec)
	})
	client.OnStateChange(func(state domain.ConnectivityState) {
		switch state {
		case domain.ConnConnected:
			metrics.StreamConnectivity.WithLabelValues(subjectID).Set(1)
		case domain.ConnConnecting:
			metrics.StreamReconnects.WithLabelValues(subjectID).Inc()
			metrics.StreamConnectivity.WithLabelValues(subjectID).Set(0)
		default:
			metrics.StreamConnectivity.WithLabelValues(subjectID).Set(0)
		}
		track.SaveConnectivity(ctx, state)
	})
	client.OnDecodeFailure(func(raw string, err error) {
		metrics.DecodeFailures.WithLabelValues(subjectID).Inc()
		slog.Warn("undecodable telemetry frame", "error", err, "raw", raw)
	})

	if err := client.Start(); err != nil {
		log.Fatalf("bracelet client: %v", err)
	}

	slog.Info("monitor started",
		"subject", subjectID,
		"stream", cfg.Bracelet.StreamURL,
		"emit_threshold_m", cfg.Tracking.EmitThresholdM,
		"alert_radius_m", cfg.Tracking.AlertRadiusM,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	client.Stop()
	cancel()
	slog.Info("monitor stopped")
}

func buildProvider(cfg *config.Config) ports.PositionProvider {
	fallback := domain.GeoPoint{Lat: cfg.Position.FallbackLat, Lon: cfg.Position.FallbackLon}
	if cfg.Position.Provider == "http" {
		return &geolocation.HTTPProvider{
			URL:      cfg.Position.URL,
			Interval: time.Duration(cfg.Position.PollIntervalSec) * time.Second,
		}
	}
	return &geolocation.FixedProvider{Point: fallback}
}
