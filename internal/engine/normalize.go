package engine

import (
	"math"
	"sort"

	"signalboard/internal/model"
)

// maxCandles bounds every normalized OHLC series.
const maxCandles = 10

// BrokerPair is the two legs selected for the comparison chart.
type BrokerPair struct {
	A model.SymbolTick
	B model.SymbolTick
}

// PickBrokerPair selects the comparison legs for the focus broker. Leg A
// is the row whose broker matches the focus name. Leg B is always the
// first row of the current snapshot, whatever broker that happens to be;
// it may coincide with leg A when the focus broker is itself first.
func PickBrokerPair(ticks []model.SymbolTick, focusBroker string) *BrokerPair {
	if len(ticks) == 0 {
		return nil
	}

	var legA *model.SymbolTick
	for i := range ticks {
		if ticks[i].Broker == focusBroker {
			legA = &ticks[i]
			break
		}
	}
	if legA == nil {
		return nil
	}

	return &BrokerPair{A: *legA, B: ticks[0]}
}

// NormalizeOHLC sorts candles ascending by time label and clips the
// series to the most recent entries. Labels compare lexicographically,
// so callers must supply comparably formatted labels. Non-finite prices
// collapse to 0.
func NormalizeOHLC(candles []model.Candle) []model.Candle {
	out := make([]model.Candle, len(candles))
	copy(out, candles)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time < out[j].Time
	})
	if len(out) > maxCandles {
		out = out[len(out)-maxCandles:]
	}

	for i := range out {
		out[i].Open = sanitize(out[i].Open)
		out[i].High = sanitize(out[i].High)
		out[i].Low = sanitize(out[i].Low)
		out[i].Close = sanitize(out[i].Close)
	}
	return out
}

func sanitize(f model.FlexFloat) model.FlexFloat {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return f
}

// Defaults supply the chart identity when neither leg carries one.
type Defaults struct {
	Symbol    string
	Timeframe string
}

// BuildComparisonPayload derives the three-leg chart state for a pair.
// The synthetic leg reuses leg B's candles as a shared baseline and its
// display name joins both broker names; its bid/ask are leg A's adjusted
// quotes, so the synthetic leg reads as "leg A after adjustment" rather
// than a third broker.
func BuildComparisonPayload(pair *BrokerPair, def Defaults) *model.ComparisonChartPayload {
	if pair == nil {
		return nil
	}

	symbol := firstNonEmpty(pair.A.Symbol, pair.B.Symbol, def.Symbol)
	timeframe := firstNonEmpty(pair.A.Timeframe, pair.B.Timeframe, def.Timeframe)

	legB := model.ChartLeg{Name: pair.B.Broker, Candles: NormalizeOHLC(pair.B.OHLC)}

	digits := pair.A.Digits
	if digits == 0 {
		digits = pair.B.Digits
	}

	return &model.ComparisonChartPayload{
		Symbol:    symbol,
		Timeframe: timeframe,
		LegA:      model.ChartLeg{Name: pair.A.Broker, Candles: NormalizeOHLC(pair.A.OHLC)},
		LegB:      legB,
		Synthetic: model.ChartLeg{
			Name:    pair.A.Broker + " - " + pair.B.Broker,
			Candles: legB.Candles,
		},
		LegABidAsk:      model.BidAsk{Bid: pair.A.Bid.Float64(), Ask: pair.A.Ask.Float64()},
		LegBBidAsk:      model.BidAsk{Bid: pair.B.Bid.Float64(), Ask: pair.B.Ask.Float64()},
		SyntheticBidAsk: model.BidAsk{Bid: pair.A.BidFixed.Float64(), Ask: pair.A.AskFixed.Float64()},
		Digits:          digits,
	}
}

// SplitSignals buckets a snapshot's signals by trust: stable signals go
// to the primary bucket, everything else to secondary.
func SplitSignals(signals []model.Signal) model.SignalBuckets {
	buckets := model.SignalBuckets{
		Primary:   []model.Signal{},
		Secondary: []model.Signal{},
	}
	for _, s := range signals {
		if s.IsStable {
			buckets.Primary = append(buckets.Primary, s)
		} else {
			buckets.Secondary = append(buckets.Secondary, s)
		}
	}
	return buckets
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
