package domain

import "github.com/shopspring/decimal"

// StrategyReport is one gain/loss sample of a strategy.
type StrategyReport struct {
	ID        string          `json:"id,omitempty"`
	Timestamp int64           `json:"timestamp"` // unix milliseconds
	Gain      decimal.Decimal `json:"gain"`
	Loss      decimal.Decimal `json:"loss"`
	Synthetic bool            `json:"synthetic,omitempty"`
}

// HistoricalApr is one APR observation of a strategy.
type HistoricalApr struct {
	ID        string          `json:"id"`
	APR       decimal.Decimal `json:"apr"`
	Timestamp int64           `json:"timestamp"`
}

// ReportSample is a persisted report point keyed by strategy.
// Corresponds to strategy_report_samples table in ClickHouse.
type ReportSample struct {
	StrategyID  string
	VaultID     string
	TimestampMs int64
	Gain        decimal.Decimal
	Loss        decimal.Decimal
	Synthetic   bool
}
