package geolocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samudrap/carelink/internal/core/domain"
)

// fakeProvider exposes the delivery callback so tests can push samples.
type fakeProvider struct {
	fn        func(domain.Position, error)
	cancelled bool
	watchErr  error
}

func (p *fakeProvider) Watch(ctx context.Context, fn func(domain.Position, error)) (func(), error) {
	if p.watchErr != nil {
		return nil, p.watchErr
	}
	p.fn = fn
	return func() { p.cancelled = true }, nil
}

func sample(lat, lon float64) domain.Position {
	return domain.Position{Point: domain.GeoPoint{Lat: lat, Lon: lon}, Time: time.Now()}
}

func newTestWatcher(p *fakeProvider) (*Watcher, *[]domain.GeoPoint) {
	opts := DefaultOptions()
	opts.FirstFixTimeout = 0 // no timer in callback-driven tests
	w := NewWatcher(p, opts)
	var emitted []domain.GeoPoint
	w.OnSample(func(pt domain.GeoPoint) { emitted = append(emitted, pt) })
	return w, &emitted
}

func TestWatcher_FirstSampleEmitsImmediately(t *testing.T) {
	p := &fakeProvider{}
	w, emitted := newTestWatcher(p)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Close()

	p.fn(sample(-6.2088, 106.8456), nil)

	if !w.Initialized() {
		t.Error("watcher not initialized after first sample")
	}
	if len(*emitted) != 1 {
		t.Fatalf("emitted %d samples, want 1", len(*emitted))
	}
}

func TestWatcher_SuppressesJitterBelowThreshold(t *testing.T) {
	p := &fakeProvider{}
	w, emitted := newTestWatcher(p)
	_ = w.Start(context.Background())
	defer w.Close()

	p.fn(sample(-6.2088, 106.8456), nil)
	// ~1.1 m north: under the 5 m movement threshold.
	p.fn(sample(-6.20879, 106.8456), nil)
	if len(*emitted) != 1 {
		t.Fatalf("jitter emitted: %d samples", len(*emitted))
	}

	// ~11 m north: over the threshold.
	p.fn(sample(-6.20870, 106.8456), nil)
	if len(*emitted) != 2 {
		t.Fatalf("movement suppressed: %d samples", len(*emitted))
	}
}

func TestWatcher_FallsBackOnProviderError(t *testing.T) {
	p := &fakeProvider{}
	w, emitted := newTestWatcher(p)
	var degradedErr error
	w.OnDegraded(func(err error) { degradedErr = err })
	_ = w.Start(context.Background())
	defer w.Close()

	p.fn(domain.Position{}, errors.New("location unavailable"))

	if !w.Initialized() {
		t.Error("degraded watcher must still count as initialized")
	}
	if !w.Degraded() {
		t.Error("watcher not marked degraded")
	}
	if degradedErr == nil {
		t.Error("degraded handler not called")
	}
	if len(*emitted) != 1 || (*emitted)[0] != (domain.GeoPoint{Lat: -6.2088, Lon: 106.8456}) {
		t.Fatalf("fallback not emitted: %+v", *emitted)
	}
}

func TestWatcher_WatchRefusedDegradesImmediately(t *testing.T) {
	p := &fakeProvider{watchErr: errors.New("no location service")}
	w, emitted := newTestWatcher(p)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Close()

	if !w.Initialized() || !w.Degraded() {
		t.Error("refused watch must degrade to the fallback point")
	}
	if len(*emitted) != 1 {
		t.Fatalf("emitted %d samples, want fallback only", len(*emitted))
	}
}

func TestWatcher_IgnoresStaleSamples(t *testing.T) {
	p := &fakeProvider{}
	w, emitted := newTestWatcher(p)
	_ = w.Start(context.Background())
	defer w.Close()

	old := domain.Position{
		Point: domain.GeoPoint{Lat: 1, Lon: 1},
		Time:  time.Now().Add(-2 * time.Minute),
	}
	p.fn(old, nil)
	if len(*emitted) != 0 {
		t.Fatalf("stale sample emitted: %+v", *emitted)
	}
}

func TestWatcher_NoCallbackAfterClose(t *testing.T) {
	p := &fakeProvider{}
	w, emitted := newTestWatcher(p)
	_ = w.Start(context.Background())

	p.fn(sample(-6.2088, 106.8456), nil)
	w.Close()

	if !p.cancelled {
		t.Error("underlying watch not cancelled")
	}

	// A late delivery from the provider must not reach the listener.
	p.fn(sample(-6.1, 106.8), nil)
	if len(*emitted) != 1 {
		t.Fatalf("late callback leaked: %d samples", len(*emitted))
	}
}

func TestWatcher_FirstFixTimeoutFallsBack(t *testing.T) {
	p := &fakeProvider{}
	opts := DefaultOptions()
	opts.FirstFixTimeout = 10 * time.Millisecond
	w := NewWatcher(p, opts)

	emitted := make(chan domain.GeoPoint, 1)
	w.OnSample(func(pt domain.GeoPoint) { emitted <- pt })
	_ = w.Start(context.Background())
	defer w.Close()

	select {
	case pt := <-emitted:
		if pt != opts.Fallback {
			t.Errorf("emitted %+v, want fallback", pt)
		}
	case <-time.After(time.Second):
		t.Fatal("first-fix timeout never fired")
	}
	if !w.Degraded() {
		t.Error("watcher not marked degraded after timeout")
	}
}
