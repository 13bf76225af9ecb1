package model

// ChartLeg is one broker's candle series within the comparison chart.
type ChartLeg struct {
	Name    string   `json:"name"`
	Candles []Candle `json:"candles"`
}

// BidAsk is a quote pair attached to a chart leg.
type BidAsk struct {
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
}

// ComparisonChartPayload is the derived, ephemeral chart state. It is
// rebuilt wholesale on every relevant tick and never mutated in place.
type ComparisonChartPayload struct {
	Symbol          string   `json:"symbol"`
	Timeframe       string   `json:"timeframe"`
	LegA            ChartLeg `json:"leg_a"`
	LegB            ChartLeg `json:"leg_b"`
	Synthetic       ChartLeg `json:"synthetic"`
	LegABidAsk      BidAsk   `json:"leg_a_bid_ask"`
	LegBBidAsk      BidAsk   `json:"leg_b_bid_ask"`
	SyntheticBidAsk BidAsk   `json:"synthetic_bid_ask"`
	Digits          int      `json:"digits"`
}
