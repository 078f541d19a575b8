package position

import (
	"github.com/shopspring/decimal"

	"vault-position-lab/internal/domain"
)

// Earned reconciles the gain of a position:
// (balanceToken − (Σdeposits − Σwithdrawals)) / 10^decimals.
//
// It returns NotComputed while loading and "0" when balanceToken is itself
// NotComputed or unparsable.
func Earned(balanceToken string, h domain.History, decimals int32, loading bool) string {
	if loading {
		return domain.NotComputed
	}
	if balanceToken == domain.NotComputed {
		return "0"
	}
	current := decimal.Zero
	if balanceToken != "" {
		v, err := decimal.NewFromString(balanceToken)
		if err != nil {
			return "0"
		}
		current = v
	}
	return current.Sub(h.NetDeposited()).Shift(-decimals).String()
}
