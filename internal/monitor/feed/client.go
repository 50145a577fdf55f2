// Package feed connects to the streaming telemetry endpoint and hands every
// decoded frame to the ingest path.
package feed

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/autopeer-io/fleetpeer/internal/monitor/core/model"
	"github.com/autopeer-io/fleetpeer/internal/pkg/metrics"
	"github.com/autopeer-io/fleetpeer/pkg/log"
)

// BatchHandler receives the normalized records of one frame, in arrival order.
// It must not call back into the Client.
type BatchHandler func(ctx context.Context, updates []model.VehicleUpdate)

// StateListener is notified each time the connection state flips. It must not
// call back into the Client.
type StateListener func(connected bool)

// Config configures a Client.
type Config struct {
	URL              string
	TokenParam       string
	HandshakeTimeout time.Duration
	ReadLimit        int64
}

// Client holds at most one live websocket connection to the telemetry feed.
type Client struct {
	cfg     Config
	dialer  *websocket.Dialer
	handler BatchHandler

	// deliverMu is held while a batch is handed over. It is taken before mu.
	deliverMu sync.Mutex
	mu        sync.Mutex
	conn      *websocket.Conn
	listeners []StateListener
	connected atomic.Bool
}

// NewClient creates a feed client delivering batches to handler.
func NewClient(cfg Config, handler BatchHandler) *Client {
	if cfg.TokenParam == "" {
		cfg.TokenParam = "token"
	}
	dialer := *websocket.DefaultDialer
	if cfg.HandshakeTimeout > 0 {
		dialer.HandshakeTimeout = cfg.HandshakeTimeout
	}
	return &Client{cfg: cfg, dialer: &dialer, handler: handler}
}

// OnStateChange registers a connection state listener.
func (c *Client) OnStateChange(l func(connected bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Connected reports whether a connection is open.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Connect closes any previous connection and dials the feed with the given
// access credential. The returned channel is closed when the new connection
// ends, either because the server closed it, a read failed, ctx was cancelled
// or Close was called.
func (c *Client) Connect(ctx context.Context, credential string) (<-chan struct{}, error) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeLocked()

	target, err := c.endpoint(credential)
	if err != nil {
		return nil, err
	}

	conn, _, err := c.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial telemetry feed: %w", err)
	}
	if c.cfg.ReadLimit > 0 {
		conn.SetReadLimit(c.cfg.ReadLimit)
	}

	c.conn = conn
	c.setConnectedLocked(true)
	log.Info("Telemetry feed connected", "url", c.cfg.URL)

	done := make(chan struct{})
	stop := context.AfterFunc(ctx, func() { c.release(conn) })
	go func() {
		defer close(done)
		defer stop()
		c.readLoop(ctx, conn)
	}()

	return done, nil
}

// Close closes the current connection. It waits for a batch being delivered,
// and no batch is delivered once it returns.
func (c *Client) Close() {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) endpoint(credential string) (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid feed url: %w", err)
	}
	q := u.Query()
	q.Set(c.cfg.TokenParam, credential)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.release(conn) {
				log.Warn("Telemetry feed disconnected", "error", err)
			}
			return
		}

		updates, discarded, err := Decode(data)
		if err != nil {
			metrics.FeedFramesTotal.WithLabelValues("websocket", "malformed").Inc()
			log.Warn("Dropping malformed telemetry frame", "error", err, "size", len(data))
			continue
		}
		metrics.FeedFramesTotal.WithLabelValues("websocket", "ok").Inc()
		if discarded > 0 {
			metrics.FeedRecordsDiscardedTotal.WithLabelValues("websocket").Add(float64(discarded))
			log.Debug("Discarded telemetry records", "count", discarded)
		}
		if len(updates) > 0 {
			c.deliver(ctx, conn, updates)
		}
	}
}

// deliver hands updates to the handler while conn is still the current connection.
func (c *Client) deliver(ctx context.Context, conn *websocket.Conn, updates []model.VehicleUpdate) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	if !c.current(conn) {
		return
	}
	c.handler(ctx, updates)
}

func (c *Client) current(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn == conn
}

// release closes conn if it is still the current connection and reports whether it was.
func (c *Client) release(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return false
	}
	c.closeLocked()
	return true
}

func (c *Client) closeLocked() {
	if c.conn == nil {
		return
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = c.conn.Close()
	c.conn = nil
	c.setConnectedLocked(false)
}

func (c *Client) setConnectedLocked(connected bool) {
	if c.connected.Swap(connected) == connected {
		return
	}
	if connected {
		metrics.FeedConnected.Set(1)
	} else {
		metrics.FeedConnected.Set(0)
	}
	for _, l := range c.listeners {
		l(connected)
	}
}
