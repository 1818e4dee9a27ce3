package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samudrap/carelink/internal/core/domain"
)

// Subscriber consumes tracking events from JetStream. The escalation worker
// uses it to pick up out-of-radius alerts.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
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
	return &Subscriber{conn: conn, js: js}, nil
}

// Alert is the payload published on care.alerts.<subjectID>.
type Alert struct {
	SubjectID string    `json:"subjectId"`
	Meters    float64   `json:"meters"`
	At        time.Time `json:"at"`
}

// SubscribeAlerts delivers out-of-radius alerts with at-least-once
// semantics; a handler error triggers redelivery.
func (s *Subscriber) SubscribeAlerts(ctx context.Context, handler func(ctx context.Context, alert *Alert) error) error {
	sub, err := s.js.Subscribe("care.alerts.>", func(msg *nats.Msg) {
		var alert Alert
		if err := json.Unmarshal(msg.Data, &alert); err != nil {
			_ = msg.Nak()
			return
		}
		if err := handler(ctx, &alert); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("alert-escalator"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// SubscribeDistances delivers distance samples, e.g. for audit sinks.
func (s *Subscriber) SubscribeDistances(ctx context.Context, handler func(ctx context.Context, subjectID string, sample *domain.DistanceSample) error) error {
	sub, err := s.js.Subscribe("care.distance.>", func(msg *nats.Msg) {
		var sample domain.DistanceSample
		if err := json.Unmarshal(msg.Data, &sample); err != nil {
			_ = msg.Nak()
			return
		}
		subjectID := msg.Subject[len("care.distance."):]
		if err := handler(ctx, subjectID, &sample); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("distance-sink"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
