package feed

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is one live websocket session. Close must be safe to call
// more than once and from a goroutine other than the reader's.
type Transport interface {
	ReadMessage() ([]byte, error)
	Close() error
}

// Dialer opens transports. Tests swap in an in-memory implementation.
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Transport, error)
}

type wsDialer struct {
	handshakeTimeout time.Duration
}

// NewDialer returns a Dialer backed by gorilla/websocket.
func NewDialer(handshakeTimeout time.Duration) Dialer {
	if handshakeTimeout <= 0 {
		handshakeTimeout = 10 * time.Second
	}
	return &wsDialer{handshakeTimeout: handshakeTimeout}
}

func (d *wsDialer) Dial(ctx context.Context, endpoint string) (Transport, error) {
	dialer := websocket.Dialer{HandshakeTimeout: d.handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return &wsTransport{conn: conn}, nil
}

type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, msg, err := t.conn.ReadMessage()
	return msg, err
}

func (t *wsTransport) Close() error {
	deadline := time.Now().Add(time.Second)
	t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		deadline,
	)
	return t.conn.Close()
}
