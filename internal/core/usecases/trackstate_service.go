package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/samudrap/carelink/internal/core/domain"
	"github.com/samudrap/carelink/internal/core/ports"
	"github.com/samudrap/carelink/internal/pkg/geospatial"
)

// DefaultDistanceMeters is returned by GetDistanceOrDefault when nothing has
// ever been persisted for the subject.
const DefaultDistanceMeters = 50.0

// TrackStateService owns the durable last-known state for one tracked
// subject: distance, connectivity, coordinates, and the update timestamp.
// It is the only writer to that state. Every accepted write goes to the
// key/value store first and is then broadcast to subscribers, so a
// subscriber never observes a broadcast whose durable write has not
// completed. A missing or failing store degrades to memory-only operation;
// it never surfaces as an error.
type TrackStateService struct {
	subjectID string
	kv        ports.KeyValueStore
	publisher ports.EventPublisher

	mu          sync.Mutex
	state       domain.TrackedSubjectState
	hasDistance bool

	distanceSubs     []func(domain.DistanceSample)
	connectivitySubs []func(domain.ConnectivityState)
	coordinateSubs   []func(domain.GeoPoint)
}

// NewTrackStateService creates the state store for a subject. kv and
// publisher may be nil; both degrade gracefully.
func NewTrackStateService(subjectID string, kv ports.KeyValueStore, publisher ports.EventPublisher) *TrackStateService {
	return &TrackStateService{
		subjectID: subjectID,
		kv:        kv,
		publisher: publisher,
		state: domain.TrackedSubjectState{
			SubjectID:    subjectID,
			Connectivity: domain.ConnDisconnected,
		},
	}
}

func (s *TrackStateService) key(slot string) string {
	return fmt.Sprintf("care:subject:%s:%s", s.subjectID, slot)
}

// Load hydrates the in-memory state from the durable store, so consumers
// mounting after a restart do not see an empty flash.
func (s *TrackStateService) Load(ctx context.Context) {
	if s.kv == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if raw, ok, err := s.kv.Get(ctx, s.key("distance")); err == nil && ok {
		if v, perr := strconv.ParseFloat(string(raw), 64); perr == nil {
			s.state.Distance = &v
			s.hasDistance = true
		}
	}
	if raw, ok, err := s.kv.Get(ctx, s.key("connectivity")); err == nil && ok {
		s.state.Connectivity = domain.ConnectivityState(raw)
	}
	if raw, ok, err := s.kv.Get(ctx, s.key("coordinates")); err == nil && ok {
		var pt domain.GeoPoint
		if jerr := json.Unmarshal(raw, &pt); jerr == nil {
			s.state.Coordinates = &pt
		}
	}
	if raw, ok, err := s.kv.Get(ctx, s.key("updated_at")); err == nil && ok {
		if ts, perr := time.Parse(time.RFC3339Nano, string(raw)); perr == nil {
			s.state.UpdatedAt = ts
		}
	}
}

// SaveDistance persists a distance (rounded to 2 decimals) and broadcasts it.
func (s *TrackStateService) SaveDistance(ctx context.Context, meters float64) {
	rounded := geospatial.Round(meters, 2)
	now := time.Now()

	s.mu.Lock()
	s.state.Distance = &rounded
	s.state.UpdatedAt = now
	s.hasDistance = true
	s.persist(ctx, "distance", []byte(strconv.FormatFloat(rounded, 'f', -1, 64)))
	subs := append([]func(domain.DistanceSample){}, s.distanceSubs...)
	s.mu.Unlock()

	sample := domain.DistanceSample{Meters: rounded, ComputedAt: now}
	for _, fn := range subs {
		fn(sample)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishDistance(ctx, s.subjectID, sample); err != nil {
			slog.Debug("publish distance failed", "subject", s.subjectID, "error", err)
		}
	}
}

// SaveConnectivity persists the stream connectivity state and broadcasts it.
func (s *TrackStateService) SaveConnectivity(ctx context.Context, state domain.ConnectivityState) {
	s.mu.Lock()
	s.state.Connectivity = state
	s.state.UpdatedAt = time.Now()
	s.persist(ctx, "connectivity", []byte(state))
	subs := append([]func(domain.ConnectivityState){}, s.connectivitySubs...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishConnectivity(ctx, s.subjectID, state); err != nil {
			slog.Debug("publish connectivity failed", "subject", s.subjectID, "error", err)
		}
	}
}

// SaveCoordinates persists the subject coordinates (rounded to 6 decimals)
// and broadcasts them.
func (s *TrackStateService) SaveCoordinates(ctx context.Context, pt domain.GeoPoint) {
	rounded := domain.GeoPoint{
		Lat: geospatial.Round(pt.Lat, 6),
		Lon: geospatial.Round(pt.Lon, 6),
	}

	s.mu.Lock()
	s.state.Coordinates = &rounded
	s.state.UpdatedAt = time.Now()
	if data, err := json.Marshal(rounded); err == nil {
		s.persist(ctx, "coordinates", data)
	}
	subs := append([]func(domain.GeoPoint){}, s.coordinateSubs...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(rounded)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishCoordinates(ctx, s.subjectID, rounded); err != nil {
			slog.Debug("publish coordinates failed", "subject", s.subjectID, "error", err)
		}
	}
}

// GetDistance returns the last persisted distance, with ok=false when
// nothing has ever been stored.
func (s *TrackStateService) GetDistance() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasDistance || s.state.Distance == nil {
		return 0, false
	}
	return *s.state.Distance, true
}

// GetDistanceOrDefault returns the last distance or the documented default.
func (s *TrackStateService) GetDistanceOrDefault() float64 {
	if v, ok := s.GetDistance(); ok {
		return v
	}
	return DefaultDistanceMeters
}

// GetConnectivity returns the last persisted connectivity state.
func (s *TrackStateService) GetConnectivity() domain.ConnectivityState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Connectivity
}

// GetCoordinates returns the last persisted subject coordinates.
func (s *TrackStateService) GetCoordinates() (domain.GeoPoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Coordinates == nil {
		return domain.GeoPoint{}, false
	}
	return *s.state.Coordinates, true
}

// State returns a copy of the full tracked-subject state.
func (s *TrackStateService) State() domain.TrackedSubjectState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SubscribeDistance registers a synchronous distance listener.
func (s *TrackStateService) SubscribeDistance(fn func(domain.DistanceSample)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.distanceSubs = append(s.distanceSubs, fn)
}

// SubscribeConnectivity registers a synchronous connectivity listener.
func (s *TrackStateService) SubscribeConnectivity(fn func(domain.ConnectivityState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectivitySubs = append(s.connectivitySubs, fn)
}

// SubscribeCoordinates registers a synchronous coordinates listener.
func (s *TrackStateService) SubscribeCoordinates(fn func(domain.GeoPoint)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coordinateSubs = append(s.coordinateSubs, fn)
}

// persist writes one slot plus the update timestamp. Storage being
// unavailable is recoverable: the write becomes a no-op.
func (s *TrackStateService) persist(ctx context.Context, slot string, value []byte) {
	if s.kv == nil {
		return
	}
	if err := s.kv.Set(ctx, s.key(slot), value); err != nil {
		slog.Debug("state write skipped", "slot", slot, "error", err)
		return
	}
	ts := s.state.UpdatedAt.Format(time.RFC3339Nano)
	if err := s.kv.Set(ctx, s.key("updated_at"), []byte(ts)); err != nil {
		slog.Debug("state write skipped", "slot", "updated_at", "error", err)
	}
}
