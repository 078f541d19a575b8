package position

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"vault-position-lab/internal/domain"
)

func history(deposits, withdrawals []string) domain.History {
	h := domain.History{}
	for i, v := range deposits {
		h.Deposits = append(h.Deposits, domain.TransactionItem{ID: string(rune('a' + i)), TokenAmount: d(v)})
	}
	for i, v := range withdrawals {
		h.Withdrawals = append(h.Withdrawals, domain.TransactionItem{ID: string(rune('a' + i)), TokenAmount: d(v)})
	}
	return h
}

func TestEarned(t *testing.T) {
	tests := []struct {
		name         string
		balanceToken string
		history      domain.History
		decimals     int32
		loading      bool
		want         string
	}{
		{"gain", "2000000", history([]string{"1500000"}, nil), 6, false, "0.5"},
		{"loss", "900000", history([]string{"1000000"}, nil), 6, false, "-0.1"},
		{"withdrawals offset deposits", "500", history([]string{"1000"}, []string{"600"}), 2, false, "1"},
		{"no history", "123", domain.History{}, 0, false, "123"},
		{"empty balance token", "", history([]string{"10"}, nil), 0, false, "-10"},
		{"loading", "2000000", history([]string{"1500000"}, nil), 6, true, domain.NotComputed},
		{"preview failed", domain.NotComputed, history([]string{"1"}, nil), 6, false, "0"},
		{"loading wins over preview failure", domain.NotComputed, domain.History{}, 6, true, domain.NotComputed},
		{"garbage", "abc", domain.History{}, 6, false, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Earned(tt.balanceToken, tt.history, tt.decimals, tt.loading))
		})
	}
}

func TestEarnedProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("loading always yields the sentinel", prop.ForAll(
		func(bal, dep int64, decimals int32) bool {
			h := domain.History{Deposits: []domain.TransactionItem{{TokenAmount: decimal.NewFromInt(dep)}}}
			return Earned(decimal.NewFromInt(bal).String(), h, decimals, true) == domain.NotComputed
		},
		gen.Int64Range(0, 1<<40),
		gen.Int64Range(0, 1<<40),
		gen.Int32Range(0, 18),
	))

	properties.Property("earned times 10^decimals equals balance minus net deposits", prop.ForAll(
		func(bal, dep, wd int64, decimals int32) bool {
			h := domain.History{
				Deposits:    []domain.TransactionItem{{TokenAmount: decimal.NewFromInt(dep)}},
				Withdrawals: []domain.TransactionItem{{TokenAmount: decimal.NewFromInt(wd)}},
			}
			got := decimal.RequireFromString(Earned(decimal.NewFromInt(bal).String(), h, decimals, false))
			want := decimal.NewFromInt(bal - dep + wd)
			return got.Shift(decimals).Equal(want)
		},
		gen.Int64Range(0, 1<<40),
		gen.Int64Range(0, 1<<40),
		gen.Int64Range(0, 1<<40),
		gen.Int32Range(0, 18),
	))

	properties.TestingRun(t)
}
