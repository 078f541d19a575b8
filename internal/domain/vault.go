package domain

import "github.com/shopspring/decimal"

// VaultType is the closed set of vault variants.
type VaultType string

const (
	VaultTypeDeFi       VaultType = "DEFI"
	VaultTypeTradeFi    VaultType = "TRADEFI"
	VaultTypeCrossChain VaultType = "CROSSCHAIN"
)

// String returns the string representation of VaultType.
func (t VaultType) String() string {
	return string(t)
}

// IsValid checks if the vault type is a known value.
func (t VaultType) IsValid() bool {
	switch t {
	case VaultTypeDeFi, VaultTypeTradeFi, VaultTypeCrossChain:
		return true
	}
	return false
}

// Token describes an SPL mint as reported by the indexer, with labels
// filled in from the registry.
type Token struct {
	ID       string `json:"id"` // mint address, base58
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int32  `json:"decimals"`
}

// Strategy is one allocation target of a vault.
type Strategy struct {
	ID            string          `json:"id"`
	MaxDebt       decimal.Decimal `json:"maxDebt"`
	CurrentDebt   decimal.Decimal `json:"currentDebt"`
	BalanceTokens decimal.Decimal `json:"balanceTokens"`
	IsShutdown    bool            `json:"isShutdown"`
}

// Vault is a pooled custody account. Amounts are raw integer units of Token.
type Vault struct {
	ID              string          `json:"id"`
	Type            VaultType       `json:"type"`
	Token           Token           `json:"token"`
	ShareToken      Token           `json:"shareToken"`
	DepositLimit    decimal.Decimal `json:"depositLimit"`
	BalanceTokens   decimal.Decimal `json:"balanceTokens"`
	APR             decimal.Decimal `json:"apr"`             // percent
	PerformanceFees decimal.Decimal `json:"performanceFees"` // basis points
	Strategies      []Strategy      `json:"strategies"`
}

// IsTradeFi reports whether the vault has deposit and lock windows.
func (v *Vault) IsTradeFi() bool {
	return v != nil && v.Type == VaultTypeTradeFi
}

// PerformanceFeePercent converts the basis-point fee to percent.
func (v *Vault) PerformanceFeePercent() decimal.Decimal {
	return v.PerformanceFees.Div(decimal.NewFromInt(100))
}

// Clone returns a deep copy so callers can augment without aliasing.
func (v *Vault) Clone() *Vault {
	if v == nil {
		return nil
	}
	c := *v
	if v.Strategies != nil {
		c.Strategies = make([]Strategy, len(v.Strategies))
		copy(c.Strategies, v.Strategies)
	}
	return &c
}
