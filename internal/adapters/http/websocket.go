package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	"github.com/samudrap/carelink/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to tracking feeds.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Subject string `json:"subject"` // tracked subject id ("" = all)
	Channel string `json:"channel"` // "distance" | "connectivity" | "coordinates" | "alerts"
}

// wsEvent wraps a relayed payload with its channel and subject so one
// socket can multiplex several feeds.
type wsEvent struct {
	Channel string          `json:"channel"`
	Subject string          `json:"subject"`
	Data    json.RawMessage `json:"data"`
}

// WebSocketHandler upgrades to WebSocket and relays real-time NATS tracking
// events to connected clients. Clients send JSON:
//
//	{"action":"subscribe","subject":"BRC-001","channel":"distance"}
//
// An empty subject means all tracked subjects. Default channel is "distance".
// New connections start subscribed to all distance updates.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription) // NATS subject -> subscription

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		relay := func(channel string) nats.MsgHandler {
			prefix := "care." + channel + "."
			return func(msg *nats.Msg) {
				subject := ""
				if len(msg.Subject) > len(prefix) {
					subject = msg.Subject[len(prefix):]
				}
				data := msg.Data
				if !json.Valid(data) {
					// connectivity states arrive as bare strings
					data, _ = json.Marshal(string(msg.Data))
				}
				_ = writeJSON(wsEvent{Channel: channel, Subject: subject, Data: data})
			}
		}

		// Auto-subscribe to all distance updates by default
		defaultSubject := "care.distance.>"
		sub, err := nc.Subscribe(defaultSubject, relay("distance"))
		if err != nil {
			slog.Error("ws default subscribe failed", "error", err)
			return
		}
		subs[defaultSubject] = sub

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		// Read client messages for subscribe/unsubscribe
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			channel := m.Channel
			if channel == "" {
				channel = "distance"
			}
			switch channel {
			case "distance", "connectivity", "coordinates", "alerts":
			default:
				_ = writeJSON(map[string]string{"error": "unknown channel: " + channel})
				continue
			}

			subject := "care." + channel + ".>"
			if m.Subject != "" {
				subject = "care." + channel + "." + m.Subject
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				s, err := nc.Subscribe(subject, relay(channel))
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = s
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if s, exists := subs[subject]; exists {
					_ = s.Unsubscribe()
					delete(subs, subject)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		// Cleanup
		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
