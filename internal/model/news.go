package model

// Impact is the severity of an economic-calendar event.
type Impact string

const (
	ImpactHigh    Impact = "high"
	ImpactMedium  Impact = "medium"
	ImpactLow     Impact = "low"
	ImpactUnknown Impact = "unknown"
)

// NewsEvent is one economic-calendar entry. TimeLabel keeps the upstream
// formatting verbatim; parsing happens in the calendar package.
type NewsEvent struct {
	TimeLabel string `json:"time"`
	Currency  string `json:"currency"`
	Name      string `json:"name"`
	Impact    Impact `json:"impact"`
}

// NewsCluster groups events sharing the exact same time label. Its
// impact is the highest severity among its members.
type NewsCluster struct {
	TimeLabel string      `json:"time"`
	Items     []NewsEvent `json:"items"`
	Impact    Impact      `json:"impact"`
}
