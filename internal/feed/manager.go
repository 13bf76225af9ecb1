package feed

import (
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"

	"signalboard/config"
	"signalboard/internal/metrics"
	"signalboard/internal/model"
	"signalboard/logger"
)

// ID names one logical feed.
type ID string

const (
	FeedAnalysis     ID = "analysis"
	FeedBrokers      ID = "brokers"
	FeedBrokerDetail ID = "broker_detail"
	FeedSymbol       ID = "symbol"
)

// Handlers receive typed snapshots as frames arrive. Every frame
// replaces the previous snapshot wholesale; handlers run on the read
// goroutine of the owning connection.
type Handlers struct {
	OnAnalysis     func(model.AnalysisFrame)
	OnBrokers      func([]model.BrokerRow)
	OnBrokerDetail func(broker string, ticks []model.SymbolTick)
	OnSymbolTicks  func(symbol string, ticks []model.SymbolTick)

	// OnFeedState observes connection state per feed. Used by the
	// presentation layer to show the "server disconnected" notice for
	// the always-on analysis feed.
	OnFeedState func(feed ID, state State)
}

// Stats counts frame traffic across all feeds.
type Stats struct {
	Frames  int64
	Dropped int64
}

// Manager owns one Connection per logical feed and maps UI visibility
// onto connect/disconnect. Feeds with parameterized endpoints (broker
// key, symbol) are torn down and recreated whenever the parameter
// changes; a connection is never left subscribed to a stale endpoint.
type Manager struct {
	cfg      config.FeedsConfig
	dialer   Dialer
	handlers Handlers
	log      *logger.Entry

	mu    sync.Mutex
	feeds map[ID]*feedSlot

	frames  atomic.Int64
	dropped atomic.Int64
}

type feedSlot struct {
	visible bool
	param   string
	conn    *Connection
}

func NewManager(cfg config.FeedsConfig, dialer Dialer, handlers Handlers) *Manager {
	return &Manager{
		cfg:      cfg,
		dialer:   dialer,
		handlers: handlers,
		log:      logger.GetLogger().WithComponent("feed_manager"),
		feeds: map[ID]*feedSlot{
			FeedAnalysis:     {},
			FeedBrokers:      {},
			FeedBrokerDetail: {},
			FeedSymbol:       {},
		},
	}
}

// SetVisible maps one UI concern's visibility onto the feed lifecycle.
// Callers own the logical OR of their reasons for showing a feed; the
// manager only sees the collapsed flag. Hiding always disconnects and
// destroys the connection, it is never merely suspended.
func (m *Manager) SetVisible(id ID, visible bool) {
	m.mu.Lock()
	slot, ok := m.feeds[id]
	if !ok || slot.visible == visible {
		m.mu.Unlock()
		return
	}
	slot.visible = visible

	var toClose, toOpen *Connection
	if visible {
		slot.conn = m.buildConnLocked(id, slot.param)
		toOpen = slot.conn
	} else {
		toClose = slot.conn
		slot.conn = nil
	}
	m.mu.Unlock()

	if toClose != nil {
		toClose.Disconnect()
	}
	if toOpen != nil {
		m.log.WithFields(logger.Fields{"feed": string(id)}).Info("feed became visible")
		toOpen.Connect()
	}
}

// SetParam retargets a parameterized feed (broker key for the detail
// feed, symbol for the symbol feed). While the feed is visible the old
// connection is torn down and a fresh one dialed at the new endpoint.
func (m *Manager) SetParam(id ID, param string) {
	m.mu.Lock()
	slot, ok := m.feeds[id]
	if !ok || slot.param == param {
		m.mu.Unlock()
		return
	}
	slot.param = param

	var toClose, toOpen *Connection
	if slot.visible {
		toClose = slot.conn
		slot.conn = m.buildConnLocked(id, param)
		toOpen = slot.conn
	}
	m.mu.Unlock()

	if toClose != nil {
		toClose.Disconnect()
	}
	if toOpen != nil {
		m.log.WithFields(logger.Fields{"feed": string(id), "param": param}).Info("feed retargeted")
		toOpen.Connect()
	}
}

// Close disconnects every owned feed. No timers or sockets survive it.
func (m *Manager) Close() {
	m.mu.Lock()
	conns := make([]*Connection, 0, len(m.feeds))
	for _, slot := range m.feeds {
		if slot.conn != nil {
			conns = append(conns, slot.conn)
			slot.conn = nil
		}
		slot.visible = false
	}
	m.mu.Unlock()

	for _, conn := range conns {
		conn.Disconnect()
	}
	m.log.Info("feed manager closed")
}

// Stats returns cumulative frame counters.
func (m *Manager) Stats() Stats {
	return Stats{Frames: m.frames.Load(), Dropped: m.dropped.Load()}
}

func (m *Manager) buildConnLocked(id ID, param string) *Connection {
	fc := m.feedConfig(id)
	return NewConnection(ConnectionConfig{
		ID:             string(id),
		Endpoint:       endpointFor(fc.URL, param),
		AutoReconnect:  fc.AutoReconnect,
		ReconnectDelay: fc.ReconnectDelay,
		DialTimeout:    m.cfg.DialTimeout,
		Dialer:         m.dialer,
		OnFrame: func(raw []byte) {
			m.dispatch(id, param, raw)
		},
		OnState: func(s State) {
			if m.handlers.OnFeedState != nil {
				m.handlers.OnFeedState(id, s)
			}
		},
	})
}

func (m *Manager) feedConfig(id ID) config.FeedConfig {
	switch id {
	case FeedAnalysis:
		return m.cfg.Analysis
	case FeedBrokers:
		return m.cfg.Brokers
	case FeedBrokerDetail:
		return m.cfg.BrokerDetail
	case FeedSymbol:
		return m.cfg.Symbol
	}
	return config.FeedConfig{}
}

// dispatch parses one inbound frame into the feed's snapshot type.
// Malformed frames are dropped and logged; they never clear existing
// state or disturb the connection.
func (m *Manager) dispatch(id ID, param string, raw []byte) {
	m.frames.Add(1)

	switch id {
	case FeedAnalysis:
		var frame model.AnalysisFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			m.drop(id, err)
			return
		}
		if m.handlers.OnAnalysis != nil {
			m.handlers.OnAnalysis(frame)
		}
	case FeedBrokers:
		var rows []model.BrokerRow
		if err := json.Unmarshal(raw, &rows); err != nil {
			m.drop(id, err)
			return
		}
		if m.handlers.OnBrokers != nil {
			m.handlers.OnBrokers(rows)
		}
	case FeedBrokerDetail:
		var ticks []model.SymbolTick
		if err := json.Unmarshal(raw, &ticks); err != nil {
			m.drop(id, err)
			return
		}
		if m.handlers.OnBrokerDetail != nil {
			m.handlers.OnBrokerDetail(param, ticks)
		}
	case FeedSymbol:
		var ticks []model.SymbolTick
		if err := json.Unmarshal(raw, &ticks); err != nil {
			m.drop(id, err)
			return
		}
		if m.handlers.OnSymbolTicks != nil {
			m.handlers.OnSymbolTicks(param, ticks)
		}
	}
}

func (m *Manager) drop(id ID, err error) {
	m.dropped.Add(1)
	m.log.WithFields(logger.Fields{"feed": string(id)}).WithError(err).Debug("dropping malformed frame")
	metrics.EmitMetric(nil, "feed_manager", "frames_dropped", 1, "counter", logger.Fields{"feed": string(id)})
}

// endpointFor substitutes the feed parameter into the URL template.
func endpointFor(template, param string) string {
	out := strings.ReplaceAll(template, "{broker}", param)
	return strings.ReplaceAll(out, "{symbol}", param)
}
