package dashboard

import (
	"context"
	"encoding/json"

	"signalboard/logger"
)

// State message kinds pushed to dashboard clients. The latest message of
// each kind is replayed to newly connected clients, matching the
// last-value-wins contract of the feeds.
const (
	StateAnalysis     = "analysis"
	StateBrokers      = "brokers"
	StateBrokerDetail = "broker_detail"
	StateSymbol       = "symbol"
	StateChart        = "chart"
	StateNews         = "news"
	StateAlert        = "alert"
	StateFeed         = "feed"
	StateSession      = "session"
)

// Intents are the user actions the hub routes into the core. Every
// field is optional; unset actions are ignored.
type Intents struct {
	SetVisible      func(feed string, visible bool)
	SetFocusBroker  func(broker string)
	SetSymbol       func(symbol string)
	SetBrokerTarget func(broker string)
	UnlockAudio     func()
	DismissAlert    func()
}

type stateMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type intentFrame struct {
	Action  string `json:"action"`
	Feed    string `json:"feed"`
	Visible bool   `json:"visible"`
	Broker  string `json:"broker"`
	Symbol  string `json:"symbol"`
}

// Hub fans derived state out to connected dashboard clients and routes
// their intents back into the core. One goroutine owns the client set.
type Hub struct {
	intents Intents
	log     *logger.Entry

	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan stateMessage

	// done is closed when Run returns; pump teardown selects on it so
	// clients never block on a hub that has already stopped.
	done chan struct{}

	// latest holds the most recent message per kind for replay.
	latest map[string]json.RawMessage
}

func NewHub(intents Intents) *Hub {
	return &Hub{
		intents:    intents,
		log:        logger.GetLogger().WithComponent("dashboard_hub"),
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan stateMessage, 64),
		done:       make(chan struct{}),
		latest:     make(map[string]json.RawMessage),
	}
}

// Run owns the client set until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			// Replay the latest state of every kind on connect.
			for kind, payload := range h.latest {
				if msg, ok := encodeMessage(kind, payload); ok {
					select {
					case c.send <- msg:
					default:
					}
				}
			}
			h.log.WithFields(logger.Fields{"client": c.id, "clients": len(h.clients)}).Info("dashboard client connected")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

		case msg := <-h.broadcast:
			if msg.Type != "" && msg.Payload != nil {
				h.latest[msg.Type] = msg.Payload
			}
			encoded, ok := encodeMessage(msg.Type, msg.Payload)
			if !ok {
				continue
			}
			for c := range h.clients {
				select {
				case c.send <- encoded:
				default:
					// Client too slow; prune it so the hub never blocks.
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// dropClient detaches one client. It returns immediately when the hub
// has already stopped, since the stopped hub closed every send channel.
func (h *Hub) dropClient(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast pushes one derived state payload to every client. A nil
// payload is sent as JSON null, which clears the corresponding view.
func (h *Hub) Broadcast(kind string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.log.WithError(err).Warn("failed to encode state payload")
		return
	}
	select {
	case h.broadcast <- stateMessage{Type: kind, Payload: raw}:
	default:
		h.log.WithFields(logger.Fields{"kind": kind}).Warn("broadcast queue full, dropping state")
	}
}

// SendAudio pushes a transient audio control to clients. Audio commands
// are not replayed to late joiners.
func (h *Hub) SendAudio(action string, volume float64) {
	raw, err := json.Marshal(map[string]interface{}{"action": action, "volume": volume})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- stateMessage{Type: "audio", Payload: raw}:
	default:
	}
}

func encodeMessage(kind string, payload json.RawMessage) ([]byte, bool) {
	out, err := json.Marshal(stateMessage{Type: kind, Payload: payload})
	if err != nil {
		return nil, false
	}
	return out, true
}

// handleIntent parses one client message and dispatches it. Malformed
// or unknown intents are dropped.
func (h *Hub) handleIntent(raw []byte) {
	var frame intentFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		h.log.WithError(err).Debug("dropping malformed intent")
		return
	}

	switch frame.Action {
	case "visibility":
		if h.intents.SetVisible != nil {
			h.intents.SetVisible(frame.Feed, frame.Visible)
		}
	case "focus":
		if h.intents.SetFocusBroker != nil {
			h.intents.SetFocusBroker(frame.Broker)
		}
	case "symbol":
		if h.intents.SetSymbol != nil {
			h.intents.SetSymbol(frame.Symbol)
		}
	case "broker":
		if h.intents.SetBrokerTarget != nil {
			h.intents.SetBrokerTarget(frame.Broker)
		}
	case "unlock":
		if h.intents.UnlockAudio != nil {
			h.intents.UnlockAudio()
		}
	case "dismiss":
		if h.intents.DismissAlert != nil {
			h.intents.DismissAlert()
		}
	default:
		h.log.WithFields(logger.Fields{"action": frame.Action}).Debug("unknown intent action")
	}
}
