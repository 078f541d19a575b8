package domain

import "github.com/shopspring/decimal"

// NotComputed is the sentinel used for amounts that are still loading.
// Consumers must check for it before treating a value as an amount.
const NotComputed = "-1"

// Loading tracks which parts of a view are in flight.
type Loading struct {
	Vault        bool `json:"vault"`
	Position     bool `json:"position"`
	Transactions bool `json:"transactions"`
	Balance      bool `json:"balance"`
	Periods      bool `json:"periods"`
}

// Any reports whether any flag is set.
func (l Loading) Any() bool {
	return l.Vault || l.Position || l.Transactions || l.Balance || l.Periods
}

// PositionView is the reconciled picture of an account's position in a vault.
type PositionView struct {
	Account      string         `json:"account"`
	VaultID      string         `json:"vaultId"`
	Vault        *Vault         `json:"vault,omitempty"`
	VaultAddress string         `json:"vaultAddress,omitempty"`
	Position     *VaultPosition `json:"position,omitempty"`

	// BalanceToken is the underlying value of the share balance, or
	// NotComputed when the preview failed.
	BalanceToken  string `json:"balanceToken"`
	BalanceEarned string `json:"balanceEarned"`

	Deposits    []TransactionItem `json:"deposits"`
	Withdrawals []TransactionItem `json:"withdrawals"`

	Periods Periods `json:"periods"`
	Phase   *Phase  `json:"phase,omitempty"`

	Reports        map[string][]StrategyReport `json:"reports"`
	HistoricalAprs map[string][]HistoricalApr  `json:"historicalAprs"`

	PerformanceFee      decimal.Decimal `json:"performanceFee"`
	MinimumDeposit      decimal.Decimal `json:"minimumDeposit"`
	TradeFiDepositLimit decimal.Decimal `json:"tradeFiDepositLimit"`

	Loading  Loading  `json:"loading"`
	Degraded []string `json:"degraded,omitempty"`

	Generation uint64 `json:"generation"`
	Slot       int64  `json:"slot"`
	ComputedAt int64  `json:"computedAt"` // unix milliseconds
}

// Totals is the account-wide summary across positions.
type Totals struct {
	Account       string `json:"account"`
	TotalBalance  string `json:"totalBalance"`
	BalanceEarned string `json:"balanceEarned"`
	Positions     int    `json:"positions"`
}

// PositionSnapshot is a persisted copy of a committed view.
// Corresponds to position_snapshots table in PostgreSQL.
type PositionSnapshot struct {
	Account         string
	VaultID         string
	Slot            int64
	BalanceShares   decimal.Decimal
	BalancePosition decimal.Decimal
	BalanceEarned   string
	Phase           *string
	CapturedAt      int64 // unix milliseconds
	CreatedAt       int64
}
