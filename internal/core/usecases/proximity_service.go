package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samudrap/carelink/internal/core/domain"
	"github.com/samudrap/carelink/internal/core/ports"
	"github.com/samudrap/carelink/internal/pkg/geospatial"
	"github.com/samudrap/carelink/internal/pkg/metrics"
)

// ProximityService pairs the observer's local position with the subject's
// bracelet coordinates and maintains the distance between them. It only
// recomputes when one of the two inputs actually changes, and it only emits
// when the distance moved by more than the emit threshold since the last
// emitted value. Emitted distances are written through TrackStateService
// before any listener or alert hook runs.
type ProximityService struct {
	subjectID     string
	emitThreshold float64
	alertRadius   float64

	states      *TrackStateService
	distanceLog ports.DistanceLogRepository

	mu        sync.Mutex
	local     *domain.GeoPoint
	remote    *domain.GeoPoint
	lastEmit  *float64
	listeners []func(domain.DistanceSample)
	onAlert   func(subjectID string, meters float64)
}

// ProximityOptions tunes a ProximityService.
type ProximityOptions struct {
	// EmitThreshold suppresses distance changes smaller than this, in meters.
	EmitThreshold float64
	// AlertRadius triggers the alert hook when the distance exceeds it.
	// Zero disables alerting.
	AlertRadius float64
}

// NewProximityService wires the engine for one subject. distanceLog may be
// nil to skip the historical log.
func NewProximityService(subjectID string, states *TrackStateService, distanceLog ports.DistanceLogRepository, opts ProximityOptions) *ProximityService {
	if opts.EmitThreshold <= 0 {
		opts.EmitThreshold = 0.5
	}
	return &ProximityService{
		subjectID:     subjectID,
		emitThreshold: opts.EmitThreshold,
		alertRadius:   opts.AlertRadius,
		states:        states,
		distanceLog:   distanceLog,
	}
}

// Subscribe registers a synchronous distance listener.
func (p *ProximityService) Subscribe(fn func(domain.DistanceSample)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// OnAlert registers the out-of-radius hook. It fires at most once per
// emitted distance that exceeds the alert radius.
func (p *ProximityService) OnAlert(fn func(subjectID string, meters float64)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onAlert = fn
}

// UpdateLocalPosition feeds the observer side of the pair.
func (p *ProximityService) UpdateLocalPosition(ctx context.Context, pt domain.GeoPoint) {
	p.mu.Lock()
	p.local = &pt
	p.recomputeLocked(ctx)
	p.mu.Unlock()
}

// UpdateTelemetry feeds the subject side of the pair. Records for other
// devices and records without coordinates are ignored; the latter still
// carry sensor data consumed elsewhere.
func (p *ProximityService) UpdateTelemetry(ctx context.Context, rec *domain.TelemetryRecord) {
	if rec == nil {
		return
	}
	if rec.DeviceID != "" && rec.DeviceID != p.subjectID {
		slog.Debug("telemetry for unexpected device dropped",
			"got", rec.DeviceID, "want", p.subjectID)
		return
	}
	if rec.Position == nil {
		return
	}

	p.mu.Lock()
	pt := *rec.Position
	p.remote = &pt
	p.recomputeLocked(ctx)
	p.mu.Unlock()
}

// Distance returns the last emitted distance.
func (p *ProximityService) Distance() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastEmit == nil {
		return 0, false
	}
	return *p.lastEmit, true
}

// recomputeLocked runs with p.mu held. It waits silently while either side
// of the pair is still unknown.
func (p *ProximityService) recomputeLocked(ctx context.Context) {
	if p.local == nil || p.remote == nil {
		return
	}

	d := geospatial.Haversine(p.local.Lat, p.local.Lon, p.remote.Lat, p.remote.Lon)
	rounded := geospatial.Round(d, 2)

	if p.lastEmit != nil {
		delta := rounded - *p.lastEmit
		if delta < 0 {
			delta = -delta
		}
		if delta <= p.emitThreshold {
			metrics.SuppressedUpdates.WithLabelValues(p.subjectID).Inc()
			return
		}
	}

	v := rounded
	p.lastEmit = &v
	metrics.DistanceUpdates.WithLabelValues(p.subjectID).Inc()
	metrics.LastDistanceMeters.WithLabelValues(p.subjectID).Set(rounded)

	// Coordinates ride along with accepted distance updates so a
	// suppressed sample never leaks a coordinate event either.
	if p.states != nil {
		p.states.SaveDistance(ctx, rounded)
		p.states.SaveCoordinates(ctx, *p.remote)
	}
	if p.distanceLog != nil {
		entry := &domain.DistanceLogEntry{
			SubjectID: p.subjectID,
			Meters:    rounded,
			Location:  p.remote,
			Time:      time.Now(),
		}
		if err := p.distanceLog.Insert(ctx, entry); err != nil {
			slog.Warn("distance log insert failed", "subject", p.subjectID, "error", err)
		}
	}

	sample := domain.DistanceSample{Meters: rounded, ComputedAt: time.Now()}
	for _, fn := range p.listeners {
		fn(sample)
	}
	if p.onAlert != nil && p.alertRadius > 0 && rounded > p.alertRadius {
		p.onAlert(p.subjectID, rounded)
	}
}
