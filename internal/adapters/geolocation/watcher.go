package geolocation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samudrap/carelink/internal/core/domain"
	"github.com/samudrap/carelink/internal/core/ports"
	"github.com/samudrap/carelink/internal/pkg/geospatial"
)

// Options tunes the observer-side position watcher.
type Options struct {
	// MovementThreshold suppresses samples closer than this to the last
	// emitted one, in meters. GPS jitter sits well below 5 m.
	MovementThreshold float64
	// FirstFixTimeout bounds the wait for the first sample before the
	// watcher falls back to the reference point.
	FirstFixTimeout time.Duration
	// MaxStaleness rejects cached samples older than this.
	MaxStaleness time.Duration
	// Fallback is the reference point used when no position can be obtained.
	Fallback domain.GeoPoint
}

// DefaultOptions match the documented defaults: 5 m movement threshold,
// 15 s first fix, 60 s staleness, central Jakarta reference point.
func DefaultOptions() Options {
	return Options{
		MovementThreshold: 5,
		FirstFixTimeout:   15 * time.Second,
		MaxStaleness:      60 * time.Second,
		Fallback:          domain.GeoPoint{Lat: -6.2088, Lon: 106.8456},
	}
}

// Watcher wraps a ports.PositionProvider and applies the movement threshold,
// staleness window, and fallback policy. A provider failure degrades the
// watcher instead of blocking the pipeline: it stays initialized on the
// fallback point so downstream distance computation keeps working.
type Watcher struct {
	provider ports.PositionProvider
	opts     Options

	onSample   func(domain.GeoPoint)
	onDegraded func(error)

	mu          sync.Mutex
	cancel      func()
	fixTimer    *time.Timer
	initialized bool
	degraded    bool
	last        domain.GeoPoint
	closed      bool
}

// NewWatcher creates a watcher; handlers must be registered before Start.
func NewWatcher(provider ports.PositionProvider, opts Options) *Watcher {
	if opts.MovementThreshold <= 0 {
		opts.MovementThreshold = 5
	}
	return &Watcher{provider: provider, opts: opts}
}

// OnSample registers the emitted-position handler. Handlers run on the
// provider's delivery goroutine and must not call back into the watcher.
func (w *Watcher) OnSample(fn func(domain.GeoPoint)) { w.onSample = fn }

// OnDegraded registers the non-fatal warning handler.
func (w *Watcher) OnDegraded(fn func(error)) { w.onDegraded = fn }

// Start subscribes to the provider. The first sample is emitted immediately;
// if none arrives within FirstFixTimeout the fallback point is emitted and
// the watcher is marked degraded.
func (w *Watcher) Start(ctx context.Context) error {
	cancel, err := w.provider.Watch(ctx, w.handle)
	if err != nil {
		// Provider refused outright: degrade immediately.
		w.handle(domain.Position{}, err)
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancel = cancel
	if w.opts.FirstFixTimeout > 0 {
		w.fixTimer = time.AfterFunc(w.opts.FirstFixTimeout, w.firstFixExpired)
	}
	return nil
}

// Initialized reports whether at least one position (or the fallback) has
// been emitted.
func (w *Watcher) Initialized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.initialized
}

// Degraded reports whether the watcher is running on the fallback point or
// has seen provider errors.
func (w *Watcher) Degraded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.degraded
}

// Last returns the last emitted point.
func (w *Watcher) Last() (domain.GeoPoint, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last, w.initialized
}

// Close cancels the underlying watch. No handler fires after Close returns.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	if w.fixTimer != nil {
		w.fixTimer.Stop()
	}
	if w.cancel != nil {
		w.cancel()
	}
}

func (w *Watcher) handle(pos domain.Position, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if err != nil {
		w.degradeLocked(err)
		return
	}

	if w.opts.MaxStaleness > 0 && !pos.Time.IsZero() && time.Since(pos.Time) > w.opts.MaxStaleness {
		return
	}

	if !w.initialized {
		w.emitLocked(pos.Point)
		return
	}

	d := geospatial.Haversine(w.last.Lat, w.last.Lon, pos.Point.Lat, pos.Point.Lon)
	if d > w.opts.MovementThreshold {
		w.emitLocked(pos.Point)
	}
}

func (w *Watcher) firstFixExpired() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.initialized {
		return
	}
	w.degradeLocked(context.DeadlineExceeded)
}

// degradeLocked falls back to the reference point on first failure so the
// rest of the pipeline is never permanently blocked.
func (w *Watcher) degradeLocked(err error) {
	w.degraded = true
	slog.Warn("position provider degraded", "error", err)
	if w.onDegraded != nil {
		w.onDegraded(err)
	}
	if !w.initialized {
		w.emitLocked(w.opts.Fallback)
	}
}

func (w *Watcher) emitLocked(p domain.GeoPoint) {
	w.initialized = true
	w.last = p
	if w.fixTimer != nil {
		w.fixTimer.Stop()
	}
	if w.onSample != nil {
		w.onSample(p)
	}
}
