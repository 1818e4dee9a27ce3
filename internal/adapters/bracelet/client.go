package bracelet

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samudrap/carelink/internal/core/domain"
	"github.com/samudrap/carelink/internal/core/ports"
)

// ErrClientStopped is returned by Start after Stop has been called.
// A stopped client is terminal; create a new one to resubscribe.
var ErrClientStopped = errors.New("bracelet: client stopped")

const (
	defaultBackoffInitial = 1000 * time.Millisecond
	defaultBackoffMax     = 30000 * time.Millisecond
	defaultMaxRetries     = 10
	defaultDialTimeout    = 10 * time.Second
)

// Client maintains one persistent read-only subscription to a bracelet
// telemetry stream. It owns the reconnect/backoff policy and routes every
// inbound frame through the decoder. Decode failures never close the
// connection or touch the backoff counter; only transport-level closure does.
type Client struct {
	url       string
	transport ports.TelemetryTransport

	backoffInitial time.Duration
	backoffMax     time.Duration
	maxRetries     int
	dialTimeout    time.Duration

	onRecord  func(*domain.TelemetryRecord)
	onState   func(domain.ConnectivityState)
	onFailure func(raw string, err error)

	// wait sleeps for d or until ctx is done; overridable in tests.
	wait func(ctx context.Context, d time.Duration) bool

	mu      sync.Mutex
	state   domain.ConnectivityState
	conn    ports.TelemetryConn
	cancel  context.CancelFunc
	running bool
	stopped bool

	done chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithTransport overrides the WebSocket transport (used by tests).
func WithTransport(t ports.TelemetryTransport) Option {
	return func(c *Client) { c.transport = t }
}

// WithBackoff sets the reconnect backoff bounds.
func WithBackoff(initial, max time.Duration) Option {
	return func(c *Client) { c.backoffInitial, c.backoffMax = initial, max }
}

// WithMaxRetries sets how many consecutive failures are tolerated before the
// client gives up and parks in the error state.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithDialTimeout bounds each connection attempt.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) { c.dialTimeout = d }
}

// NewClient creates a client for the given stream endpoint.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:            url,
		transport:      NewWebSocketTransport(defaultDialTimeout),
		backoffInitial: defaultBackoffInitial,
		backoffMax:     defaultBackoffMax,
		maxRetries:     defaultMaxRetries,
		dialTimeout:    defaultDialTimeout,
		state:          domain.ConnDisconnected,
	}
	c.wait = func(ctx context.Context, d time.Duration) bool {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return true
		case <-ctx.Done():
			return false
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnRecord registers the decoded-frame handler. Must be set before Start.
func (c *Client) OnRecord(fn func(*domain.TelemetryRecord)) { c.onRecord = fn }

// OnStateChange registers the connectivity handler. Must be set before Start.
func (c *Client) OnStateChange(fn func(domain.ConnectivityState)) { c.onState = fn }

// OnDecodeFailure registers the handler for undecodable frames.
func (c *Client) OnDecodeFailure(fn func(raw string, err error)) { c.onFailure = fn }

// State returns the current connectivity state.
func (c *Client) State() domain.ConnectivityState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins the subscription. It is idempotent while a run loop is
// active, and restarting from the error state resets the attempt counter.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return ErrClientStopped
	}
	if c.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.running = true
	c.done = make(chan struct{})

	go c.run(ctx, c.done)
	return nil
}

// Stop closes the active connection, cancels any pending reconnect timer and
// waits for the run loop to exit, so no callback fires after Stop returns.
// All callbacks run on the loop goroutine; handlers must not call Stop.
func (c *Client) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	if c.cancel != nil {
		c.cancel()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	done := c.done
	c.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	attempts := 0
	delay := c.backoffInitial

	for {
		if ctx.Err() != nil {
			c.setState(domain.ConnDisconnected)
			return
		}

		c.setState(domain.ConnConnecting)

		dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
		conn, err := c.transport.Dial(dialCtx, c.url)
		cancel()

		if err == nil {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
			c.setState(domain.ConnConnected)

			err = c.readLoop(ctx, conn, &attempts, &delay)
			_ = conn.Close()
			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()

			if ctx.Err() != nil {
				c.setState(domain.ConnDisconnected)
				return
			}
			c.setState(domain.ConnDisconnected)
			slog.Warn("bracelet stream closed", "url", c.url, "error", err)
		} else {
			if ctx.Err() != nil {
				c.setState(domain.ConnDisconnected)
				return
			}
			slog.Warn("bracelet stream dial failed", "url", c.url, "error", err)
		}

		attempts++
		if attempts >= c.maxRetries {
			slog.Error("bracelet stream retry budget exhausted", "url", c.url, "attempts", attempts)
			c.setState(domain.ConnError)
			return
		}

		if !c.wait(ctx, delay) {
			c.setState(domain.ConnDisconnected)
			return
		}
		delay *= 2
		if delay > c.backoffMax {
			delay = c.backoffMax
		}
	}
}

// readLoop pumps frames until the transport fails. The first successfully
// decoded frame marks the connection as healthy and resets the backoff;
// undecodable frames leave the retry budget untouched.
func (c *Client) readLoop(ctx context.Context, conn ports.TelemetryConn, attempts *int, delay *time.Duration) error {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rec, decErr := Decode(data)
		if decErr != nil {
			var de *DecodeError
			raw := string(data)
			if errors.As(decErr, &de) {
				raw = de.Raw
			}
			c.emitFailure(raw, decErr)
			continue
		}

		*attempts = 0
		*delay = c.backoffInitial
		c.emitRecord(rec)
	}
}

func (c *Client) setState(s domain.ConnectivityState) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()

	if c.stoppedNow() || c.onState == nil {
		return
	}
	c.onState(s)
}

func (c *Client) emitRecord(rec *domain.TelemetryRecord) {
	if c.stoppedNow() || c.onRecord == nil {
		return
	}
	c.onRecord(rec)
}

func (c *Client) emitFailure(raw string, err error) {
	if c.stoppedNow() || c.onFailure == nil {
		return
	}
	c.onFailure(raw, err)
}

func (c *Client) stoppedNow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}
