package bracelet

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/samudrap/carelink/internal/core/ports"
)

// wsTransport implements ports.TelemetryTransport over gorilla/websocket.
type wsTransport struct {
	handshakeTimeout time.Duration
}

// NewWebSocketTransport returns the production transport.
func NewWebSocketTransport(handshakeTimeout time.Duration) ports.TelemetryTransport {
	return &wsTransport{handshakeTimeout: handshakeTimeout}
}

func (t *wsTransport) Dial(ctx context.Context, url string) (ports.TelemetryConn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: t.handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

// ReadMessage returns the next frame regardless of WebSocket message type;
// binary frames are handed to the decoder as-is.
func (w *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := w.conn.ReadMessage()
	return data, err
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}
