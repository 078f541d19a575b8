package position

import (
	"context"

	"github.com/shopspring/decimal"

	"vault-position-lab/internal/domain"
)

// Augmentation carries values derived while augmenting a vault.
type Augmentation struct {
	TradeFiDepositLimit decimal.Decimal
	MinimumDeposit      decimal.Decimal
	Degraded            []string
}

// augment applies the registry type, token labels, the trade-finance
// deposit limit and strategy shutdown flags to a copy of raw.
func (a *Aggregator) augment(ctx context.Context, raw *domain.Vault, account string) (*domain.Vault, Augmentation) {
	v := raw.Clone()
	aug := Augmentation{MinimumDeposit: a.registry.MinimumDeposit}

	v.Type = a.registry.VaultType(a.network, v.ID)

	tl := a.registry.TokenLabel(v.Token.ID, false)
	v.Token.Symbol, v.Token.Name = tl.Symbol, tl.Name
	sl := a.registry.TokenLabel(v.ShareToken.ID, true)
	v.ShareToken.Symbol, v.ShareToken.Name = sl.Symbol, sl.Name

	limit := v.DepositLimit
	if v.IsTradeFi() {
		if account == "" {
			limit = decimal.Zero
		}
		if limit.IsZero() && len(v.Strategies) > 0 {
			limit = v.Strategies[0].MaxDebt.Sub(v.BalanceTokens)
		}
	}
	v.DepositLimit = limit
	aug.TradeFiDepositLimit = limit

	for i := range v.Strategies {
		if v.IsTradeFi() {
			v.Strategies[i].IsShutdown = false
			continue
		}
		down, err := a.shutdown.IsShutdown(ctx, v.Strategies[i].ID)
		if err != nil {
			a.logger.Printf("shutdown check %s: %v", v.Strategies[i].ID, err)
			if len(aug.Degraded) == 0 {
				aug.Degraded = append(aug.Degraded, SectionShutdown)
			}
			down = false
		}
		v.Strategies[i].IsShutdown = down
	}

	return v, aug
}
