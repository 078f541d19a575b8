package domain

import "github.com/shopspring/decimal"

// VaultPosition is an account's holding in one vault.
//
// BalancePosition is derived from BalanceShares and must be recomputed
// whenever BalanceShares changes.
type VaultPosition struct {
	ID              string          `json:"id"`
	Account         string          `json:"account"`
	VaultID         string          `json:"vaultId"`
	Token           Token           `json:"token"`
	ShareToken      Token           `json:"shareToken"`
	BalanceShares   decimal.Decimal `json:"balanceShares"`
	BalancePosition decimal.Decimal `json:"balancePosition"`
}

// TransactionKind distinguishes deposits from withdrawals.
type TransactionKind string

const (
	TransactionDeposit    TransactionKind = "deposit"
	TransactionWithdrawal TransactionKind = "withdrawal"
)

// TransactionItem is a single deposit or withdrawal record from the indexer.
type TransactionItem struct {
	ID           string          `json:"id"`
	Kind         TransactionKind `json:"kind"`
	VaultID      string          `json:"vaultId,omitempty"`
	Timestamp    int64           `json:"timestamp"` // unix seconds
	SharesMinted decimal.Decimal `json:"sharesMinted"`
	SharesBurnt  decimal.Decimal `json:"sharesBurnt"`
	TokenAmount  decimal.Decimal `json:"tokenAmount"`
	BlockNumber  int64           `json:"blockNumber"`
}

// History holds the deposits and withdrawals of an account, in indexer order.
type History struct {
	Deposits    []TransactionItem `json:"deposits"`
	Withdrawals []TransactionItem `json:"withdrawals"`
}

// SumTokenAmounts adds up TokenAmount over items.
func SumTokenAmounts(items []TransactionItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.TokenAmount)
	}
	return sum
}

// NetDeposited returns Σdeposits − Σwithdrawals in raw units.
func (h History) NetDeposited() decimal.Decimal {
	return SumTokenAmounts(h.Deposits).Sub(SumTokenAmounts(h.Withdrawals))
}
