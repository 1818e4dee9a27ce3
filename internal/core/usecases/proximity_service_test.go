package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/samudrap/carelink/internal/core/domain"
)

type memDistanceLog struct {
	entries []domain.DistanceLogEntry
}

func (m *memDistanceLog) Insert(ctx context.Context, e *domain.DistanceLogEntry) error {
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memDistanceLog) ListBySubject(ctx context.Context, subjectID string, from, to time.Time, limit int) ([]domain.DistanceLogEntry, error) {
	return m.entries, nil
}

func telemetryAt(deviceID string, lat, lon float64) *domain.TelemetryRecord {
	return &domain.TelemetryRecord{
		DeviceID:   deviceID,
		Position:   &domain.GeoPoint{Lat: lat, Lon: lon},
		ReceivedAt: time.Now(),
	}
}

func TestProximity_WaitsForBothSides(t *testing.T) {
	p := NewProximityService("BRC-001", nil, nil, ProximityOptions{})
	var emitted []domain.DistanceSample
	p.Subscribe(func(d domain.DistanceSample) { emitted = append(emitted, d) })

	p.UpdateTelemetry(context.Background(), telemetryAt("BRC-001", -6.2088, 106.8456))
	if len(emitted) != 0 {
		t.Fatal("distance emitted without a local position")
	}

	p.UpdateLocalPosition(context.Background(), domain.GeoPoint{Lat: -6.2088, Lon: 106.8456})
	if len(emitted) != 1 {
		t.Fatalf("emitted %d samples once both sides known, want 1", len(emitted))
	}
	if emitted[0].Meters != 0 {
		t.Errorf("co-located pair distance = %v", emitted[0].Meters)
	}
}

func TestProximity_EmitThreshold(t *testing.T) {
	p := NewProximityService("BRC-001", nil, nil, ProximityOptions{EmitThreshold: 0.5})
	var emitted []float64
	p.Subscribe(func(d domain.DistanceSample) { emitted = append(emitted, d.Meters) })

	p.UpdateLocalPosition(context.Background(), domain.GeoPoint{Lat: 0, Lon: 0})
	p.UpdateTelemetry(context.Background(), telemetryAt("BRC-001", 0, 0.000090)) // ~10.0 m
	if len(emitted) != 1 {
		t.Fatalf("first distance not emitted: %v", emitted)
	}

	// ~0.3 m further: inside the threshold, suppressed.
	p.UpdateTelemetry(context.Background(), telemetryAt("BRC-001", 0, 0.0000927))
	if len(emitted) != 1 {
		t.Fatalf("sub-threshold change emitted: %v", emitted)
	}

	// ~1 m further: outside the threshold, emitted.
	p.UpdateTelemetry(context.Background(), telemetryAt("BRC-001", 0, 0.000099))
	if len(emitted) != 2 {
		t.Fatalf("supra-threshold change suppressed: %v", emitted)
	}
}

func TestProximity_IgnoresOtherDevices(t *testing.T) {
	p := NewProximityService("BRC-001", nil, nil, ProximityOptions{})
	var emitted []domain.DistanceSample
	p.Subscribe(func(d domain.DistanceSample) { emitted = append(emitted, d) })

	p.UpdateLocalPosition(context.Background(), domain.GeoPoint{Lat: 0, Lon: 0})
	p.UpdateTelemetry(context.Background(), telemetryAt("BRC-999", 1, 1))
	if len(emitted) != 0 {
		t.Fatalf("foreign device moved the distance: %v", emitted)
	}

	// An empty device id is accepted; not every bracelet frame carries one.
	p.UpdateTelemetry(context.Background(), telemetryAt("", 0, 0.001))
	if len(emitted) != 1 {
		t.Fatalf("anonymous frame dropped: %v", emitted)
	}
}

func TestProximity_WritesThroughStateAndLog(t *testing.T) {
	states := NewTrackStateService("BRC-001", newMemKV(), nil)
	log := &memDistanceLog{}
	p := NewProximityService("BRC-001", states, log, ProximityOptions{})

	p.UpdateLocalPosition(context.Background(), domain.GeoPoint{Lat: 0, Lon: 0})
	p.UpdateTelemetry(context.Background(), telemetryAt("BRC-001", 0, 0.000090))

	if v, ok := states.GetDistance(); !ok || v <= 0 {
		t.Errorf("state not written through: %v, %v", v, ok)
	}
	if pt, ok := states.GetCoordinates(); !ok || pt.Lon != 0.00009 {
		t.Errorf("coordinates not written through: %+v, %v", pt, ok)
	}
	if len(log.entries) != 1 {
		t.Fatalf("distance log has %d entries, want 1", len(log.entries))
	}
	if log.entries[0].SubjectID != "BRC-001" {
		t.Errorf("log subject = %q", log.entries[0].SubjectID)
	}
}

func TestProximity_CoordinatesFollowEmittedDistance(t *testing.T) {
	states := NewTrackStateService("BRC-001", nil, nil)
	var coords []domain.GeoPoint
	states.SubscribeCoordinates(func(pt domain.GeoPoint) { coords = append(coords, pt) })
	p := NewProximityService("BRC-001", states, nil, ProximityOptions{EmitThreshold: 0.5})

	p.UpdateTelemetry(context.Background(), telemetryAt("BRC-001", 0, 0.000090))
	if len(coords) != 0 {
		t.Fatalf("coordinates broadcast without a local position: %v", coords)
	}

	p.UpdateLocalPosition(context.Background(), domain.GeoPoint{Lat: 0, Lon: 0})
	if len(coords) != 1 {
		t.Fatalf("got %d coordinate events once both sides known, want 1", len(coords))
	}

	// ~0.3 m further: the distance is suppressed, so the coordinates are too.
	p.UpdateTelemetry(context.Background(), telemetryAt("BRC-001", 0, 0.0000927))
	if len(coords) != 1 {
		t.Fatalf("coordinates broadcast for a suppressed distance: %v", coords)
	}

	// ~1 m further: emitted, and the coordinates ride along.
	p.UpdateTelemetry(context.Background(), telemetryAt("BRC-001", 0, 0.000099))
	if len(coords) != 2 {
		t.Fatalf("got %d coordinate events after an emitted distance, want 2", len(coords))
	}
	if coords[1].Lon != 0.000099 {
		t.Errorf("last coordinates = %+v", coords[1])
	}
}

func TestProximity_AlertHookFiresBeyondRadius(t *testing.T) {
	p := NewProximityService("BRC-001", nil, nil, ProximityOptions{AlertRadius: 100})
	var alerts []float64
	p.OnAlert(func(subjectID string, meters float64) { alerts = append(alerts, meters) })

	p.UpdateLocalPosition(context.Background(), domain.GeoPoint{Lat: 0, Lon: 0})
	p.UpdateTelemetry(context.Background(), telemetryAt("BRC-001", 0, 0.0001)) // ~11 m
	if len(alerts) != 0 {
		t.Fatalf("alert inside radius: %v", alerts)
	}

	p.UpdateTelemetry(context.Background(), telemetryAt("BRC-001", 0, 0.002)) // ~222 m
	if len(alerts) != 1 {
		t.Fatalf("alert beyond radius not fired: %v", alerts)
	}
	if alerts[0] <= 100 {
		t.Errorf("alert distance = %v", alerts[0])
	}
}
