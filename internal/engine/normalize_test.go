package engine

import (
	"math"
	"sort"
	"testing"

	"signalboard/internal/model"
)

func tick(broker string) model.SymbolTick {
	return model.SymbolTick{Broker: broker, BrokerKey: broker + "-key"}
}

func TestPickBrokerPairLegBIsFirstRow(t *testing.T) {
	ticks := []model.SymbolTick{tick("alpha"), tick("beta"), tick("gamma")}

	pair := PickBrokerPair(ticks, "gamma")
	if pair == nil {
		t.Fatalf("expected a pair")
	}
	if pair.A.Broker != "gamma" {
		t.Fatalf("leg A = %q, want gamma", pair.A.Broker)
	}
	if pair.B.Broker != "alpha" {
		t.Fatalf("leg B = %q, want first row alpha", pair.B.Broker)
	}
}

func TestPickBrokerPairFocusMayBeFirst(t *testing.T) {
	ticks := []model.SymbolTick{tick("alpha"), tick("beta")}

	pair := PickBrokerPair(ticks, "alpha")
	if pair == nil {
		t.Fatalf("expected a pair")
	}
	if pair.A.Broker != "alpha" || pair.B.Broker != "alpha" {
		t.Fatalf("legs = %q/%q, both should be alpha", pair.A.Broker, pair.B.Broker)
	}
}

func TestPickBrokerPairMissingLeg(t *testing.T) {
	if PickBrokerPair(nil, "alpha") != nil {
		t.Fatalf("expected nil for empty snapshot")
	}
	if PickBrokerPair([]model.SymbolTick{tick("alpha")}, "missing") != nil {
		t.Fatalf("expected nil when focus broker absent")
	}
}

func TestNormalizeOHLCClipsAndSorts(t *testing.T) {
	var candles []model.Candle
	for _, label := range []string{"10:05", "10:01", "10:11", "10:03", "10:09", "10:02", "10:07", "10:04", "10:08", "10:06", "10:10", "10:00"} {
		candles = append(candles, model.Candle{Time: label, Open: 1, High: 1, Low: 1, Close: 1})
	}

	out := NormalizeOHLC(candles)
	if len(out) != 10 {
		t.Fatalf("expected 10 candles, got %d", len(out))
	}
	if !sort.SliceIsSorted(out, func(i, j int) bool { return out[i].Time < out[j].Time }) {
		t.Fatalf("candles not sorted: %+v", out)
	}
	// The oldest labels drop off the front.
	if out[0].Time != "10:02" || out[len(out)-1].Time != "10:11" {
		t.Fatalf("unexpected window: first %q last %q", out[0].Time, out[len(out)-1].Time)
	}
}

func TestNormalizeOHLCSanitizesPrices(t *testing.T) {
	out := NormalizeOHLC([]model.Candle{{
		Time: "10:00",
		Open: model.FlexFloat(math.NaN()),
		High: model.FlexFloat(math.Inf(1)),
		Low:  1.5,
	}})
	if out[0].Open != 0 || out[0].High != 0 || out[0].Low != 1.5 || out[0].Close != 0 {
		t.Fatalf("unexpected candle: %+v", out[0])
	}
}

func TestBuildComparisonPayloadSyntheticUsesAdjustedQuotes(t *testing.T) {
	pair := &BrokerPair{
		A: model.SymbolTick{
			Broker:   "alpha",
			Symbol:   "EURUSD",
			Bid:      1.1000,
			Ask:      1.1003,
			BidFixed: 1.1002,
			AskFixed: 1.1005,
			OHLC:     []model.Candle{{Time: "10:00", Open: 1, High: 2, Low: 0.5, Close: 1.5}},
		},
		B: model.SymbolTick{
			Broker: "beta",
			Bid:    1.1001,
			Ask:    1.1004,
			OHLC:   []model.Candle{{Time: "10:00", Open: 2, High: 3, Low: 1, Close: 2.5}},
		},
	}

	payload := BuildComparisonPayload(pair, Defaults{Symbol: "XAUUSD", Timeframe: "M1"})
	if payload == nil {
		t.Fatalf("expected payload")
	}
	if payload.Symbol != "EURUSD" {
		t.Fatalf("symbol = %q, want leg A's", payload.Symbol)
	}
	if payload.Timeframe != "M1" {
		t.Fatalf("timeframe = %q, want default fallback", payload.Timeframe)
	}
	if payload.SyntheticBidAsk.Bid != 1.1002 || payload.SyntheticBidAsk.Ask != 1.1005 {
		t.Fatalf("synthetic bid/ask = %+v, want leg A's adjusted quotes", payload.SyntheticBidAsk)
	}
	if payload.LegBBidAsk.Bid != 1.1001 {
		t.Fatalf("leg B bid = %v", payload.LegBBidAsk.Bid)
	}
	if payload.Synthetic.Name != "alpha - beta" {
		t.Fatalf("synthetic name = %q", payload.Synthetic.Name)
	}
	// Synthetic candles are leg B's baseline series.
	if len(payload.Synthetic.Candles) != 1 || payload.Synthetic.Candles[0].Open != 2 {
		t.Fatalf("synthetic candles = %+v, want leg B's", payload.Synthetic.Candles)
	}
}

func TestBuildComparisonPayloadDefaults(t *testing.T) {
	pair := &BrokerPair{A: tick("alpha"), B: tick("beta")}
	payload := BuildComparisonPayload(pair, Defaults{Symbol: "EURUSD", Timeframe: "M5"})
	if payload.Symbol != "EURUSD" || payload.Timeframe != "M5" {
		t.Fatalf("defaults not applied: %+v", payload)
	}

	if BuildComparisonPayload(nil, Defaults{}) != nil {
		t.Fatalf("expected nil payload for nil pair")
	}
}

func TestSplitSignals(t *testing.T) {
	buckets := SplitSignals([]model.Signal{
		{Broker: "a", IsStable: true},
		{Broker: "b"},
		{Broker: "c", IsStable: true},
	})
	if len(buckets.Primary) != 2 || len(buckets.Secondary) != 1 {
		t.Fatalf("unexpected buckets: %+v", buckets)
	}
	if buckets.Total() != 3 {
		t.Fatalf("total = %d, want 3", buckets.Total())
	}
}
