package ports

import (
	"context"

	"github.com/samudrap/carelink/internal/core/domain"
)

// EventPublisher publishes tracking events to a message broker.
type EventPublisher interface {
	PublishDistance(ctx context.Context, subjectID string, sample domain.DistanceSample) error
	PublishConnectivity(ctx context.Context, subjectID string, state domain.ConnectivityState) error
	PublishCoordinates(ctx context.Context, subjectID string, point domain.GeoPoint) error
	PublishAlert(ctx context.Context, subjectID string, data []byte) error
}

// KeyValueStore is a durable string key/value capability.
// Implementations must treat a missing key as (nil, false, nil).
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// CacheService provides read-through caching with TTLs.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// PositionProvider is the host location capability the observer side depends
// on. Watch delivers best-effort samples (or errors) to fn until the returned
// cancel function is called. Implementations must stop invoking fn once
// cancel returns.
type PositionProvider interface {
	Watch(ctx context.Context, fn func(domain.Position, error)) (cancel func(), err error)
}

// TelemetryConn is one established subscription to a telemetry stream.
type TelemetryConn interface {
	// ReadMessage blocks until the next inbound frame or a transport error.
	ReadMessage() ([]byte, error)
	Close() error
}

// TelemetryTransport dials the bracelet stream endpoint.
type TelemetryTransport interface {
	Dial(ctx context.Context, url string) (TelemetryConn, error)
}

// NotificationService sends notifications (push, email, etc.).
type NotificationService interface {
	SendPush(ctx context.Context, caregiverID, title, body string) error
}
