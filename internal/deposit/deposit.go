// Package deposit implements the deposit form rules: the max button, input
// validation, the personal cap and share quotes.
package deposit

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"vault-position-lab/internal/domain"
	"vault-position-lab/internal/preview"
)

// Messages returned by Validate.
const (
	MsgNotPositive    = "Deposit amount must be greater than 0"
	MsgNotEnoughFunds = "You do not have enough money in your wallet"
)

const maxDecimals = 6

var thousand = decimal.NewFromInt(1000)

// Options configures a Form.
type Options struct {
	MinimumDeposit     decimal.Decimal
	MaxPersonalDeposit decimal.Decimal
	Preview            *preview.Calculator
}

// Form evaluates deposit input against a vault.
type Form struct {
	minimum     decimal.Decimal
	maxPersonal decimal.Decimal
	preview     *preview.Calculator
}

// NewForm creates a Form. A nil Preview uses an empty divisor table.
func NewForm(opts Options) *Form {
	calc := opts.Preview
	if calc == nil {
		calc = preview.NewCalculator(nil)
	}
	return &Form{minimum: opts.MinimumDeposit, maxPersonal: opts.MaxPersonalDeposit, preview: calc}
}

func human(raw decimal.Decimal, decimals int32) decimal.Decimal {
	return raw.Shift(-decimals)
}

// MaxDeposit returns the value the max button fills in:
// min(wallet, max(depositLimit − balanceTokens, 0)) in human units, rounded
// down to 6 decimals. walletBalance is in raw units.
func (f *Form) MaxDeposit(walletBalance decimal.Decimal, v *domain.Vault) decimal.Decimal {
	d := v.Token.Decimals
	room := decimal.Max(human(v.DepositLimit.Sub(v.BalanceTokens), d), decimal.Zero)
	return decimal.Min(human(walletBalance, d), room).RoundDown(maxDecimals)
}

// maxAllowed is the vault-wide cap shown in the limit message. For
// trade-finance vaults it is the whole limit; otherwise the limit less the
// human-unit vault balance, floored at 0.
func maxAllowed(v *domain.Vault) decimal.Decimal {
	d := v.Token.Decimals
	if v.IsTradeFi() {
		return decimal.Max(human(v.DepositLimit, d), decimal.Zero)
	}
	return decimal.Max(v.DepositLimit.Sub(human(v.BalanceTokens, d)), decimal.Zero)
}

// Validate returns "" for an acceptable deposit value, or the first failing
// message.
func (f *Form) Validate(value string, walletBalance decimal.Decimal, v *domain.Vault) string {
	amount, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil || !amount.IsPositive() || amount.LessThan(f.minimum) {
		return MsgNotPositive
	}

	d := v.Token.Decimals
	if amount.GreaterThan(human(walletBalance, d)) {
		return MsgNotEnoughFunds
	}

	if capped := maxAllowed(v); amount.GreaterThan(capped) {
		return fmt.Sprintf("Deposit value exceeds the maximum allowed limit %s %s", formatAmount(capped), v.Token.Symbol)
	}

	limit := human(v.DepositLimit, d)
	if amount.GreaterThan(limit) {
		return fmt.Sprintf("The %sk %s limit has been exceeded. Please reduce the amount to continue.",
			limit.Div(thousand).String(), v.Token.Symbol)
	}
	return ""
}

// LimitExceeded applies the personal cap. Trade-finance vaults cap at the
// deposit limit, others at the configured personal maximum. It returns ""
// when the value is below the cap.
func (f *Form) LimitExceeded(value decimal.Decimal, v *domain.Vault) string {
	limit := f.maxPersonal
	if v.IsTradeFi() {
		limit = human(v.DepositLimit, v.Token.Decimals)
	}
	if value.LessThan(limit) {
		return ""
	}
	return fmt.Sprintf("The %sk %s limit has been exceeded.", limit.Div(thousand).String(), v.Token.Symbol)
}

// Quote is the preview of a deposit.
type Quote struct {
	Amount    decimal.Decimal `json:"amount"`    // human units
	RawAmount decimal.Decimal `json:"rawAmount"` // token base units
	Shares    decimal.Decimal `json:"shares"`
}

// Quote converts a human amount to raw units and previews the shares minted.
func (f *Form) Quote(amount decimal.Decimal, v *domain.Vault) (Quote, error) {
	raw := amount.Shift(v.Token.Decimals).Truncate(0)
	shares, err := f.preview.Deposit(raw, v.ID)
	if err != nil {
		return Quote{}, fmt.Errorf("preview deposit: %w", err)
	}
	return Quote{Amount: amount, RawAmount: raw, Shares: shares}, nil
}

func formatAmount(d decimal.Decimal) string {
	return d.RoundDown(maxDecimals).String()
}
