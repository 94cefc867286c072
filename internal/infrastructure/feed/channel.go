// Package feed maintains the push channel delivering live fee updates.
// The channel is best effort: the polled fee path stays the source of
// truth for baseline values, so a failed channel degrades the quote to a
// stale-but-valid cached fee instead of blocking it.
package feed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"cryptoquote-service/internal/application"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
	Errored
)

type feeUpdateMsg struct {
	Type string `json:"type"`
	Fee  string `json:"fee"`
}

var _ application.FeeFeed = (*Channel)(nil)

// Channel is a single push-update websocket connection. Decoded
// FEE_UPDATE events invoke the registered callback synchronously, one
// call per message in arrival order. Malformed payloads and transport
// failures deliver the LiveFeeError token instead, at most once per
// degradation (a close arriving after an error does not re-deliver it).
type Channel struct {
	URL    string
	Dialer *websocket.Dialer
	Log    *zap.Logger

	// OnHealth, when set, is invoked with true on every fresh connection
	// and false on every degradation.
	OnHealth func(healthy bool)

	// NewBackoff builds the reconnection schedule; nil disables
	// reconnection entirely.
	NewBackoff func() backoff.BackOff

	mu       sync.Mutex
	state    ConnState
	errored  bool
	conn     *websocket.Conn
	onUpdate func(feePercent string)
	done     chan struct{}
}

func NewChannel(url string, log *zap.Logger) *Channel {
	if log == nil {
		log = zap.NewNop()
	}
	return &Channel{
		URL:        url,
		Dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		Log:        log,
		NewBackoff: defaultBackoff,
	}
}

func defaultBackoff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 5 * time.Second
	exp.MaxElapsedTime = 0
	return exp
}

// Connect dials the channel and registers onUpdate. It is a no-op unless
// the channel is fully disconnected; in particular a second call while
// connected does nothing, and a failed connection keeps retrying on its
// own schedule until Disconnect.
func (c *Channel) Connect(ctx context.Context, onUpdate func(feePercent string)) error {
	c.mu.Lock()
	if c.state != Disconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = Connecting
	c.onUpdate = onUpdate
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	conn, _, err := c.Dialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		c.fail("dial", err)
		c.scheduleReconnect(ctx, done)
		return err
	}
	c.adopt(ctx, conn, done)
	return nil
}

// adopt installs a freshly dialed connection unless Disconnect won the
// race while the dial was in flight. A fresh connection is the only thing
// that clears the errored flag.
func (c *Channel) adopt(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	c.mu.Lock()
	select {
	case <-done:
		c.mu.Unlock()
		conn.Close()
		return
	default:
	}
	c.conn = conn
	c.state = Connected
	c.errored = false
	onHealth := c.OnHealth
	c.mu.Unlock()

	c.Log.Info("feed_connected", zap.String("url", c.URL))
	if onHealth != nil {
		onHealth(true)
	}
	go c.readLoop(ctx, conn, done)
}

func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				// Torn down by Disconnect, not an error.
				return
			default:
			}
			c.fail("read", err)
			c.scheduleReconnect(ctx, done)
			return
		}

		var msg feeUpdateMsg
		if err := json.Unmarshal(raw, &msg); err != nil {
			// A malformed payload degrades the channel but leaves the
			// connection open; later well-formed frames keep flowing.
			c.fail("decode", err)
			continue
		}
		if msg.Type != "FEE_UPDATE" {
			continue
		}

		c.mu.Lock()
		onUpdate := c.onUpdate
		c.mu.Unlock()
		if onUpdate != nil {
			onUpdate(msg.Fee)
		}
	}
}

// fail marks the channel errored and delivers the error token exactly
// once per degradation.
func (c *Channel) fail(op string, err error) {
	c.mu.Lock()
	if c.errored {
		c.mu.Unlock()
		return
	}
	c.errored = true
	c.state = Errored
	onUpdate := c.onUpdate
	onHealth := c.OnHealth
	c.mu.Unlock()

	c.Log.Warn("feed_error", zap.String("op", op), zap.Error(err))
	if onHealth != nil {
		onHealth(false)
	}
	if onUpdate != nil {
		onUpdate(application.LiveFeeError)
	}
}

func (c *Channel) scheduleReconnect(ctx context.Context, done chan struct{}) {
	if c.NewBackoff == nil {
		return
	}
	bo := c.NewBackoff()
	go func() {
		for {
			wait := bo.NextBackOff()
			if wait == backoff.Stop {
				return
			}
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}

			conn, _, err := c.Dialer.DialContext(ctx, c.URL, nil)
			if err != nil {
				c.Log.Warn("feed_redial_failed", zap.Error(err))
				continue
			}
			c.adopt(ctx, conn, done)
			return
		}
	}()
}

// Disconnect tears the channel down unconditionally: it cancels any
// pending reconnection, clears the registered callback and returns to
// Disconnected whatever the prior state. The errored flag is left as is;
// only a fresh connection clears it.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	if c.conn != nil {
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
		c.conn = nil
	}
	c.onUpdate = nil
	c.state = Disconnected
}

// Errored reports channel health. It does not auto-clear.
func (c *Channel) Errored() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errored
}

// State returns the current connection state.
func (c *Channel) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
