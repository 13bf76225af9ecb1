package model

// Candle is one OHLC history entry. Prices arrive in whatever shape the
// broker emits; FlexFloat coerces non-numeric input to 0.
type Candle struct {
	Time  string    `json:"time"`
	Open  FlexFloat `json:"open"`
	High  FlexFloat `json:"high"`
	Low   FlexFloat `json:"low"`
	Close FlexFloat `json:"close"`
}

// TradeSession describes one open/close window of a symbol's schedule.
type TradeSession struct {
	Open   string `json:"open"`
	Close  string `json:"close"`
	Status string `json:"status"`
}

// SymbolTick is one broker's live quote row for a symbol, including its
// recent OHLC history. BidFixed/AskFixed carry the broker's adjusted
// quotes used by the synthetic comparison leg.
type SymbolTick struct {
	Broker           string         `json:"broker"`
	BrokerKey        string         `json:"broker_key"`
	Symbol           string         `json:"symbol"`
	SymbolRaw        string         `json:"symbol_raw"`
	Timeframe        string         `json:"timeframe,omitempty"`
	Bid              FlexFloat      `json:"bid"`
	Ask              FlexFloat      `json:"ask"`
	BidFixed         FlexFloat      `json:"bid_mdf"`
	AskFixed         FlexFloat      `json:"ask_mdf"`
	Spread           FlexFloat      `json:"spread"`
	TimeDelay        FlexFloat      `json:"time_delay"`
	Digits           int            `json:"digits,omitempty"`
	OHLC             []Candle       `json:"ohlc"`
	TradeSessions    []TradeSession `json:"trade_sessions,omitempty"`
	AutoTradeEnabled bool           `json:"auto_trade"`
}

// BrokerRow is one entry of the broker directory, keyed by BrokerKey.
type BrokerRow struct {
	Broker       string `json:"broker"`
	BrokerKey    string `json:"broker_key"`
	Port         int    `json:"port"`
	Version      string `json:"version"`
	TotalSymbols int    `json:"total_symbols"`
	Status       string `json:"status"`
	LastUpdated  string `json:"last_updated"`
}
