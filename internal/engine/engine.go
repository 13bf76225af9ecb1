package engine

import (
	"sync"
	"time"

	"signalboard/config"
	"signalboard/internal/model"
	"signalboard/logger"
)

// Engine derives the comparison-chart payload from the symbol feed
// snapshot, the focus broker and the chart-open flag. Rebuilds are
// coalesced: bursts of ticks arriving within one frame interval produce
// a single rebuild against the latest inputs. The pending guard keeps
// the rebuild timer single-slot.
type Engine struct {
	frame time.Duration
	def   Defaults
	log   *logger.Entry

	// onPayload receives every rebuilt payload; nil means the chart has
	// nothing to show (closed, or a leg is missing).
	onPayload func(*model.ComparisonChartPayload)

	mu        sync.Mutex
	ticks     []model.SymbolTick
	focus     string
	chartOpen bool
	pending   bool
	timer     *time.Timer
	closed    bool
}

func New(cfg config.EngineConfig, onPayload func(*model.ComparisonChartPayload)) *Engine {
	frame := cfg.FrameInterval
	if frame <= 0 {
		frame = 16 * time.Millisecond
	}
	return &Engine{
		frame:     frame,
		def:       Defaults{Symbol: cfg.DefaultSymbol, Timeframe: cfg.DefaultTimeframe},
		log:       logger.GetLogger().WithComponent("aggregation_engine"),
		onPayload: onPayload,
	}
}

// UpdateTicks replaces the symbol feed snapshot.
func (e *Engine) UpdateTicks(ticks []model.SymbolTick) {
	e.mu.Lock()
	e.ticks = ticks
	e.scheduleLocked()
	e.mu.Unlock()
}

// SetFocusBroker selects leg A of the comparison pair.
func (e *Engine) SetFocusBroker(broker string) {
	e.mu.Lock()
	if e.focus != broker {
		e.focus = broker
		e.scheduleLocked()
	}
	e.mu.Unlock()
}

// SetChartOpen toggles whether a chart is consuming payloads.
func (e *Engine) SetChartOpen(open bool) {
	e.mu.Lock()
	if e.chartOpen != open {
		e.chartOpen = open
		e.scheduleLocked()
	}
	e.mu.Unlock()
}

// Close cancels any pending rebuild.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.pending = false
	e.mu.Unlock()
}

func (e *Engine) scheduleLocked() {
	if e.pending || e.closed {
		return
	}
	e.pending = true
	e.timer = time.AfterFunc(e.frame, e.rebuild)
}

func (e *Engine) rebuild() {
	e.mu.Lock()
	e.pending = false
	if e.closed {
		e.mu.Unlock()
		return
	}

	var payload *model.ComparisonChartPayload
	if e.chartOpen {
		payload = BuildComparisonPayload(PickBrokerPair(e.ticks, e.focus), e.def)
	}
	onPayload := e.onPayload
	e.mu.Unlock()

	if onPayload != nil {
		onPayload(payload)
	}
}
