package alert

import (
	"errors"
	"testing"
	"time"

	"signalboard/internal/model"
)

type fakePlayer struct {
	playErr error
	plays   int
	calls   []string
	volume  float64
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{volume: 1}
}

func (p *fakePlayer) Play() error {
	p.plays++
	p.calls = append(p.calls, "play")
	return p.playErr
}

func (p *fakePlayer) Pause()          { p.calls = append(p.calls, "pause") }
func (p *fakePlayer) Reset()          { p.calls = append(p.calls, "reset") }
func (p *fakePlayer) Volume() float64 { return p.volume }
func (p *fakePlayer) SetVolume(v float64) {
	p.volume = v
	p.calls = append(p.calls, "volume")
}

func buckets(primary, secondary int) model.SignalBuckets {
	b := model.SignalBuckets{}
	for i := 0; i < primary; i++ {
		b.Primary = append(b.Primary, model.Signal{IsStable: true})
	}
	for i := 0; i < secondary; i++ {
		b.Secondary = append(b.Secondary, model.Signal{})
	}
	return b
}

func TestNoPlaybackWhileLocked(t *testing.T) {
	player := newFakePlayer()
	gate := NewGate(player, nil)

	gate.Observe(buckets(2, 0))

	if !gate.Pending() {
		t.Fatalf("expected pending alert")
	}
	if player.plays != 0 {
		t.Fatalf("playback fired while locked")
	}
}

func TestUnlockSequenceIsSilent(t *testing.T) {
	player := newFakePlayer()
	gate := NewGate(player, nil)

	if err := gate.Unlock(); err != nil {
		t.Fatalf("unlock returned error: %v", err)
	}
	if !gate.Unlocked() {
		t.Fatalf("gate not unlocked")
	}

	// volume->0, play, pause, reset, volume restore
	want := []string{"volume", "play", "pause", "reset", "volume"}
	if len(player.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", player.calls, want)
	}
	for i, c := range want {
		if player.calls[i] != c {
			t.Fatalf("calls = %v, want %v", player.calls, want)
		}
	}
	if player.volume != 1 {
		t.Fatalf("volume not restored: %v", player.volume)
	}

	// Second unlock is a no-op.
	gate.Unlock()
	if player.plays != 1 {
		t.Fatalf("unlock replayed: %d plays", player.plays)
	}
}

// blockingPlayer holds Play open until released so a second unlock can
// land mid-sequence.
type blockingPlayer struct {
	fakePlayer
	entered chan struct{}
	release chan struct{}
}

func (p *blockingPlayer) Play() error {
	p.fakePlayer.Play()
	close(p.entered)
	<-p.release
	return nil
}

func TestConcurrentUnlockPrimesOnce(t *testing.T) {
	player := &blockingPlayer{entered: make(chan struct{}), release: make(chan struct{})}
	player.volume = 1
	gate := NewGate(player, nil)

	done := make(chan error, 1)
	go func() { done <- gate.Unlock() }()

	select {
	case <-player.entered:
	case <-time.After(time.Second):
		t.Fatalf("prime sequence never reached play")
	}

	// A second unlock intent arriving mid-sequence must not drive the
	// player again.
	if err := gate.Unlock(); err != nil {
		t.Fatalf("concurrent unlock returned error: %v", err)
	}

	close(player.release)
	if err := <-done; err != nil {
		t.Fatalf("unlock returned error: %v", err)
	}
	if !gate.Unlocked() {
		t.Fatalf("gate not unlocked")
	}
	if player.plays != 1 {
		t.Fatalf("prime sequence ran %d times, want 1", player.plays)
	}
}

func TestUnlockFailureKeepsGateLocked(t *testing.T) {
	player := newFakePlayer()
	player.playErr = errors.New("autoplay blocked")
	gate := NewGate(player, nil)

	if err := gate.Unlock(); err == nil {
		t.Fatalf("expected unlock error")
	}
	if gate.Unlocked() {
		t.Fatalf("gate unlocked despite failed play")
	}
	if player.volume != 1 {
		t.Fatalf("volume not restored after failure: %v", player.volume)
	}
}

func TestLevelTriggeredPlayback(t *testing.T) {
	player := newFakePlayer()
	gate := NewGate(player, nil)
	gate.Unlock()
	player.plays = 0

	gate.Observe(buckets(0, 0))
	if player.plays != 0 {
		t.Fatalf("empty buckets fired playback")
	}

	// Every qualifying snapshot requests playback while pending holds.
	gate.Observe(buckets(2, 0))
	gate.Observe(buckets(1, 1))
	gate.Observe(buckets(0, 3))
	if player.plays != 3 {
		t.Fatalf("plays = %d, want one per qualifying snapshot", player.plays)
	}

	gate.Observe(buckets(0, 0))
	if gate.Pending() {
		t.Fatalf("pending not cleared by empty snapshot")
	}
	if player.plays != 3 {
		t.Fatalf("empty snapshot fired playback")
	}
}

func TestDismissClearsPending(t *testing.T) {
	player := newFakePlayer()
	var states []bool
	gate := NewGate(player, func(p bool) { states = append(states, p) })

	gate.Observe(buckets(1, 0))
	gate.Dismiss()
	gate.Dismiss() // idempotent

	if gate.Pending() {
		t.Fatalf("pending survived dismiss")
	}
	if len(states) != 2 || states[0] != true || states[1] != false {
		t.Fatalf("pending transitions = %v", states)
	}
}
