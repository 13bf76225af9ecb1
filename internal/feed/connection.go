package feed

import (
	"context"
	"sync"
	"time"

	"signalboard/internal/metrics"
	"signalboard/logger"
)

// State is the lifecycle phase of a Connection.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// ConnectionConfig parameterizes one Connection. Differences between
// feeds (endpoint, reconnect defaults) live here, not in copied logic.
type ConnectionConfig struct {
	ID             string
	Endpoint       string
	AutoReconnect  bool
	ReconnectDelay time.Duration
	DialTimeout    time.Duration
	Dialer         Dialer

	// OnFrame receives every inbound frame. It runs on the read
	// goroutine, one frame at a time.
	OnFrame func([]byte)

	// OnState, when set, observes state transitions. It must not call
	// back into the Connection.
	OnState func(State)
}

// Connection owns a single live feed channel. All transitions are
// serialized under one mutex, so open/frame/error/close handling for
// the same connection never overlaps.
//
// The generation counter invalidates in-flight dials and read loops:
// every Connect and Disconnect bumps it, and stale goroutines check it
// before touching state. That keeps the invariant of at most one
// transport in Connecting/Open per connection.
type Connection struct {
	cfg ConnectionConfig
	log *logger.Entry

	mu            sync.Mutex
	state         State
	autoReconnect bool
	closedByUser  bool
	gen           uint64
	transport     Transport
	reconnect     *time.Timer
}

func NewConnection(cfg ConnectionConfig) *Connection {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	return &Connection{
		cfg:   cfg,
		log:   logger.GetLogger().WithComponent("feed_connection").WithFields(logger.Fields{"feed": cfg.ID}),
		state: StateIdle,
	}
}

// State reports the current lifecycle phase.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens the transport. Calling it while already connecting or
// open is a no-op. It always clears the user-close mark and any pending
// reconnect timer, and re-arms auto-reconnect from the configuration.
func (c *Connection) Connect() {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateOpen {
		c.mu.Unlock()
		return
	}
	c.closedByUser = false
	c.autoReconnect = c.cfg.AutoReconnect
	c.stopReconnectLocked()
	c.gen++
	gen := c.gen
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	go c.dial(gen)
}

// Disconnect closes the transport with a normal closure and reports
// Closed immediately without waiting for the peer's acknowledgement.
// A user-initiated disconnect is terminal: no reconnect follows, and a
// reconnect timer pending from an earlier unexpected close dies here
// too, even when the connection is already Closed.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	c.closedByUser = true
	c.autoReconnect = false
	c.stopReconnectLocked()
	if c.state == StateIdle || c.state == StateClosing || c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.gen++ // in-flight dial and read results are now stale
	tr := c.transport
	c.transport = nil
	c.setStateLocked(StateClosing)
	c.setStateLocked(StateClosed)
	c.mu.Unlock()

	if tr != nil {
		if err := tr.Close(); err != nil {
			c.log.WithError(err).Debug("transport close")
		}
	}
	c.log.Info("feed disconnected by user")
}

func (c *Connection) dial(gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.DialTimeout)
	tr, err := c.cfg.Dialer.Dial(ctx, c.cfg.Endpoint)
	cancel()

	c.mu.Lock()
	if gen != c.gen || c.state != StateConnecting {
		c.mu.Unlock()
		// A Disconnect raced the dial; drop the late transport.
		if tr != nil {
			tr.Close()
		}
		return
	}
	if err != nil {
		c.log.WithError(err).Warn("failed to connect feed")
		c.finishCloseLocked()
		c.mu.Unlock()
		return
	}
	c.transport = tr
	c.setStateLocked(StateOpen)
	c.mu.Unlock()

	c.log.WithFields(logger.Fields{"endpoint": c.cfg.Endpoint}).Info("feed connected")
	metrics.EmitMetric(nil, "feed_connection", "feed_connected", 1, "counter", logger.Fields{"feed": c.cfg.ID})
	go c.readLoop(gen, tr)
}

func (c *Connection) readLoop(gen uint64, tr Transport) {
	for {
		msg, err := tr.ReadMessage()
		if err != nil {
			// Errors are a precursor to close: force the transport
			// down and run the close policy.
			tr.Close()
			c.mu.Lock()
			if gen != c.gen || c.state != StateOpen {
				c.mu.Unlock()
				return
			}
			c.transport = nil
			c.log.WithError(err).Warn("feed read error")
			c.finishCloseLocked()
			c.mu.Unlock()
			return
		}
		if c.cfg.OnFrame != nil {
			c.cfg.OnFrame(msg)
		}
	}
}

// finishCloseLocked moves the connection to Closed and schedules a
// reconnect when policy allows. A user-initiated close is terminal, as
// is any close with auto-reconnect off. The timer is single-slot:
// re-arming always cancels the previous one.
func (c *Connection) finishCloseLocked() {
	c.setStateLocked(StateClosed)
	if c.closedByUser || !c.autoReconnect {
		c.log.Debug("feed closed, no reconnect")
		return
	}
	c.stopReconnectLocked()
	c.log.WithFields(logger.Fields{"delay": c.cfg.ReconnectDelay.String()}).Info("scheduling feed reconnect")
	c.reconnect = time.AfterFunc(c.cfg.ReconnectDelay, c.Connect)
}

func (c *Connection) stopReconnectLocked() {
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
}

func (c *Connection) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	if c.cfg.OnState != nil {
		c.cfg.OnState(s)
	}
}
