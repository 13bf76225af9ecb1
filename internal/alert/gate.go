package alert

import (
	"sync"

	"signalboard/internal/model"
	"signalboard/logger"
)

// Player is the audio element the gate drives. Implementations forward
// these calls to the presentation layer's audio output.
type Player interface {
	Play() error
	Pause()
	Reset()
	Volume() float64
	SetVolume(v float64)
}

// Gate governs audible signal alerts. Playback needs two flags: pending,
// set by data (non-empty signal buckets), and unlocked, set once by a
// real user gesture through the silent play sequence that satisfies
// platform autoplay policy.
//
// Firing is level-triggered: every observed snapshot where pending and
// unlocked hold together requests playback, not just the 0-to-N edge.
type Gate struct {
	player Player
	log    *logger.Entry

	// onPending observes pending transitions so the UI can show or
	// clear the alert badge.
	onPending func(bool)

	mu           sync.Mutex
	unlocked     bool
	priming      bool
	pending      bool
	primaryLen   int
	secondaryLen int
}

func NewGate(player Player, onPending func(bool)) *Gate {
	return &Gate{
		player:    player,
		onPending: onPending,
		log:       logger.GetLogger().WithComponent("alert_gate"),
	}
}

// Observe ingests one analysis snapshot's buckets.
func (g *Gate) Observe(buckets model.SignalBuckets) {
	g.mu.Lock()
	g.primaryLen = len(buckets.Primary)
	g.secondaryLen = len(buckets.Secondary)

	was := g.pending
	g.pending = buckets.Total() > 0
	fire := g.pending && g.unlocked
	changed := was != g.pending
	g.mu.Unlock()

	if changed && g.onPending != nil {
		g.onPending(g.pending)
	}
	if fire {
		if err := g.player.Play(); err != nil {
			g.log.WithError(err).Warn("alert playback failed")
		}
	}
}

// Unlock runs the one-time silent unlock sequence: zero the volume, play
// and immediately pause, rewind, then restore the volume. No audible
// sound is produced. The gate stays locked if the play attempt fails.
func (g *Gate) Unlock() error {
	g.mu.Lock()
	// priming makes the gesture sequence one-shot: a second unlock
	// intent arriving mid-sequence is a no-op, not a second sequence.
	if g.unlocked || g.priming {
		g.mu.Unlock()
		return nil
	}
	g.priming = true
	g.mu.Unlock()

	volume := g.player.Volume()
	g.player.SetVolume(0)
	err := g.player.Play()
	g.player.Pause()
	g.player.Reset()
	g.player.SetVolume(volume)

	g.mu.Lock()
	g.priming = false
	if err == nil {
		g.unlocked = true
	}
	g.mu.Unlock()

	if err != nil {
		g.log.WithError(err).Warn("audio unlock failed")
		return err
	}
	g.log.Info("audio unlocked")
	return nil
}

// Dismiss clears the pending flag until new data sets it again.
func (g *Gate) Dismiss() {
	g.mu.Lock()
	was := g.pending
	g.pending = false
	g.mu.Unlock()

	if was && g.onPending != nil {
		g.onPending(false)
	}
}

// Pending reports whether an alert is waiting.
func (g *Gate) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending
}

// Unlocked reports whether the audio gesture has completed.
func (g *Gate) Unlocked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.unlocked
}
