// Package preview converts between underlying token amounts and vault shares.
package preview

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNegativeAmount is returned for amounts below zero.
var ErrNegativeAmount = errors.New("amount must not be negative")

// Calculator previews share/token conversions. It is stateless after
// construction and safe for concurrent use.
type Calculator struct {
	exps map[string]int32
}

// NewCalculator builds a calculator from a vault id → power-of-ten exponent
// table. Ids are matched case-insensitively.
func NewCalculator(divisors map[string]int32) *Calculator {
	exps := make(map[string]int32, len(divisors))
	for id, exp := range divisors {
		exps[strings.ToLower(id)] = exp
	}
	return &Calculator{exps: exps}
}

// Redeem returns the underlying amount for shares. Shares redeem 1:1.
func (c *Calculator) Redeem(shares decimal.Decimal, vaultID string) (decimal.Decimal, error) {
	if shares.IsNegative() {
		return decimal.Zero, fmt.Errorf("redeem %s: %w", shares, ErrNegativeAmount)
	}
	return shares, nil
}

// Deposit returns the shares minted for a token amount.
func (c *Calculator) Deposit(amount decimal.Decimal, vaultID string) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("deposit %s: %w", amount, ErrNegativeAmount)
	}
	return c.scale(amount, vaultID), nil
}

// Withdraw returns the shares burnt for a token amount.
func (c *Calculator) Withdraw(amount decimal.Decimal, vaultID string) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("withdraw %s: %w", amount, ErrNegativeAmount)
	}
	return c.scale(amount, vaultID), nil
}

func (c *Calculator) scale(amount decimal.Decimal, vaultID string) decimal.Decimal {
	if exp, ok := c.exps[strings.ToLower(vaultID)]; ok && exp != 0 {
		return amount.Shift(-exp)
	}
	return amount
}
