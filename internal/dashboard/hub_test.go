package dashboard

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestHubBroadcastAndReplay(t *testing.T) {
	hub := NewHub(Intents{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	early := &client{id: "early", hub: hub, send: make(chan []byte, 8)}
	hub.register <- early

	hub.Broadcast(StateAlert, map[string]bool{"pending": true})

	var msg stateMessage
	select {
	case raw := <-early.send:
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("decode broadcast: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("broadcast never delivered")
	}
	if msg.Type != StateAlert {
		t.Fatalf("message type = %q", msg.Type)
	}

	// A late joiner receives the latest state of each kind on connect.
	late := &client{id: "late", hub: hub, send: make(chan []byte, 8)}
	hub.register <- late

	select {
	case raw := <-late.send:
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("decode replay: %v", err)
		}
		if msg.Type != StateAlert {
			t.Fatalf("replayed type = %q", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("latest state not replayed to late joiner")
	}
}

func TestHubRoutesIntents(t *testing.T) {
	type visibility struct {
		feed    string
		visible bool
	}
	var (
		visibles  []visibility
		focus     string
		symbol    string
		broker    string
		unlocks   int
		dismisses int
	)

	hub := NewHub(Intents{
		SetVisible:      func(f string, v bool) { visibles = append(visibles, visibility{f, v}) },
		SetFocusBroker:  func(b string) { focus = b },
		SetSymbol:       func(s string) { symbol = s },
		SetBrokerTarget: func(b string) { broker = b },
		UnlockAudio:     func() { unlocks++ },
		DismissAlert:    func() { dismisses++ },
	})

	hub.handleIntent([]byte(`{"action":"visibility","feed":"symbol","visible":true}`))
	hub.handleIntent([]byte(`{"action":"focus","broker":"alpha"}`))
	hub.handleIntent([]byte(`{"action":"symbol","symbol":"EURUSD"}`))
	hub.handleIntent([]byte(`{"action":"broker","broker":"beta-key"}`))
	hub.handleIntent([]byte(`{"action":"unlock"}`))
	hub.handleIntent([]byte(`{"action":"dismiss"}`))
	hub.handleIntent([]byte(`{"action":"bogus"}`)) // ignored
	hub.handleIntent([]byte(`not json`))           // dropped

	if len(visibles) != 1 || visibles[0] != (visibility{"symbol", true}) {
		t.Fatalf("visibility intents = %+v", visibles)
	}
	if focus != "alpha" || symbol != "EURUSD" || broker != "beta-key" {
		t.Fatalf("routed values: focus=%q symbol=%q broker=%q", focus, symbol, broker)
	}
	if unlocks != 1 || dismisses != 1 {
		t.Fatalf("unlocks=%d dismisses=%d", unlocks, dismisses)
	}
}

func TestDropClientAfterShutdownDoesNotBlock(t *testing.T) {
	hub := NewHub(Intents{})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	c := &client{id: "c", hub: hub, send: make(chan []byte, 8)}
	hub.register <- c

	cancel()
	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatalf("hub never stopped")
	}

	// A pump tearing down after the hub stopped must not hang on the
	// unregister channel.
	returned := make(chan struct{})
	go func() {
		hub.dropClient(c)
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatalf("dropClient blocked after hub shutdown")
	}
}

func TestHubPrunesSlowClients(t *testing.T) {
	hub := NewHub(Intents{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	slow := &client{id: "slow", hub: hub, send: make(chan []byte, 1)}
	slow.send <- []byte("backlog") // full buffer: the next push cannot land
	hub.register <- slow

	hub.Broadcast(StateNews, []string{"x"})

	// The hub prunes the client and closes its send channel.
	<-slow.send // drain the backlog
	select {
	case _, ok := <-slow.send:
		if ok {
			t.Fatalf("slow client not pruned")
		}
	case <-time.After(time.Second):
		t.Fatalf("slow client never pruned")
	}
}
