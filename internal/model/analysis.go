package model

// OrderSide is the direction attached to a signal or order.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// Signal is one cross-broker price-delay observation. IsStable marks a
// trusted signal; the flag is recomputed upstream on every snapshot and
// never persisted here.
type Signal struct {
	Broker     string    `json:"broker"`
	Symbol     string    `json:"symbol"`
	BrokerMain string    `json:"broker_main"`
	Distance   FlexFloat `json:"distance"`
	Count      int       `json:"count"`
	Type       string    `json:"type"`
	IsStable   bool      `json:"is_stable"`
	Side       OrderSide `json:"side"`
}

// SignalBuckets splits a snapshot's signals by trust level.
type SignalBuckets struct {
	Primary   []Signal `json:"primary"`
	Secondary []Signal `json:"secondary"`
}

// Total reports the combined bucket size used by the alert gate.
func (b SignalBuckets) Total() int {
	return len(b.Primary) + len(b.Secondary)
}

// ResetStatus reports progress of an in-flight broker reset.
type ResetStatus struct {
	Broker string `json:"broker"`
	Status string `json:"status"`
}

// AnalysisFrame is the wire shape of one analysis feed frame. Each frame
// replaces the previous snapshot wholesale.
type AnalysisFrame struct {
	Symbols      []string      `json:"symbols"`
	Resetting    []ResetStatus `json:"resetting"`
	TimeAnalysis string        `json:"time_analysis"`
	Signals      []Signal      `json:"signals"`
}

// AnalysisSnapshot is the typed state derived from an AnalysisFrame after
// signals have been split into buckets.
type AnalysisSnapshot struct {
	Symbols      []string      `json:"symbols"`
	Resetting    []ResetStatus `json:"resetting"`
	TimeAnalysis string        `json:"time_analysis"`
	Buckets      SignalBuckets `json:"buckets"`
}
