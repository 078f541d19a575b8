package position

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"vault-position-lab/internal/domain"
)

// ComputeTotals sums positions and reconciles them against account-wide
// history. Each history item is scaled by the decimals of its vault's token,
// falling back to defaultDecimals for vaults without a position.
func ComputeTotals(account string, positions []domain.VaultPosition, h domain.History, defaultDecimals int32, loading bool) domain.Totals {
	t := domain.Totals{Account: account, Positions: len(positions)}
	if loading {
		t.TotalBalance = domain.NotComputed
		t.BalanceEarned = domain.NotComputed
		return t
	}

	decimals := make(map[string]int32, len(positions))
	total := decimal.Zero
	for _, p := range positions {
		decimals[p.VaultID] = p.Token.Decimals
		total = total.Add(p.BalancePosition.Shift(-p.Token.Decimals))
	}

	scale := func(items []domain.TransactionItem) decimal.Decimal {
		sum := decimal.Zero
		for _, it := range items {
			d, ok := decimals[it.VaultID]
			if !ok {
				d = defaultDecimals
			}
			sum = sum.Add(it.TokenAmount.Shift(-d))
		}
		return sum
	}

	net := scale(h.Deposits).Sub(scale(h.Withdrawals))
	t.TotalBalance = total.String()
	t.BalanceEarned = total.Sub(net).String()
	return t
}

// Positions collects the account's positions across every registered vault.
// Vaults unknown to the indexer or without a position are skipped.
func (a *Aggregator) Positions(ctx context.Context, account string) ([]domain.VaultPosition, error) {
	ids := a.registry.VaultIDs()
	found := make([]*domain.VaultPosition, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			raw, err := a.idx.Vault(gctx, id)
			if err != nil {
				return fmt.Errorf("fetch vault %s: %w", id, err)
			}
			if raw == nil {
				return nil
			}
			v, _ := a.augment(gctx, raw, account)
			var deg degradation
			found[i] = a.loadPosition(gctx, account, v, &deg)
			if pos := found[i]; pos != nil {
				pos.Token.Decimals = v.Token.Decimals
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.VaultPosition, 0, len(found))
	for _, p := range found {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

// Totals loads the account-wide history and reconciles it against positions.
func (a *Aggregator) Totals(ctx context.Context, account string, positions []domain.VaultPosition) (domain.Totals, error) {
	h, err := a.history.LoadAccount(ctx, account)
	if err != nil {
		return domain.Totals{}, fmt.Errorf("account history %s: %w", account, err)
	}
	return ComputeTotals(account, positions, h, a.registry.DefaultDecimals, false), nil
}
