package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samudrap/carelink/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
//
// Subject layout, one tracked subject per token:
//
//	care.distance.<subjectID>
//	care.connectivity.<subjectID>
//	care.coordinates.<subjectID>
//	care.alerts.<subjectID>
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS, enables JetStream, and ensures the
// tracking streams exist.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Tracking events are only useful fresh; alerts must survive until a
	// consumer handles them.
	streams := []nats.StreamConfig{
		{
			Name:      "CARE_TRACKING",
			Subjects:  []string{"care.distance.>", "care.connectivity.>", "care.coordinates.>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    10 * time.Minute,
			Storage:   nats.MemoryStorage,
		},
		{
			Name:      "CARE_ALERTS",
			Subjects:  []string{"care.alerts.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist — try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) PublishDistance(ctx context.Context, subjectID string, sample domain.DistanceSample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("care.distance."+subjectID, data)
	return err
}

func (p *Publisher) PublishConnectivity(ctx context.Context, subjectID string, state domain.ConnectivityState) error {
	_, err := p.js.Publish("care.connectivity."+subjectID, []byte(state))
	return err
}

func (p *Publisher) PublishCoordinates(ctx context.Context, subjectID string, point domain.GeoPoint) error {
	data, err := json.Marshal(point)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("care.coordinates."+subjectID, data)
	return err
}

func (p *Publisher) PublishAlert(ctx context.Context, subjectID string, data []byte) error {
	_, err := p.js.Publish("care.alerts."+subjectID, data)
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
