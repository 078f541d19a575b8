package position

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"vault-position-lab/internal/balance"
	"vault-position-lab/internal/config"
	"vault-position-lab/internal/domain"
	"vault-position-lab/internal/preview"
)

const testRegistry = `
vaults:
  - id: defiVault
    index: 1
    type:
      devnet: DEFI
  - id: tfVault
    index: 2
    type:
      devnet: TRADEFI
tokens:
  EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v:
    symbol: USDC
    name: USD Coin
defaultTokenLabel:
  symbol: tspUSD
  name: Test Splyce USD
defaultShareLabel:
  symbol: sstUSD
  name: Splyce Vault Shares Token USD
defaultDecimals: 6
reportStepHours: 1
minimumDeposit: "0.0000000001"
maxPersonalDeposit: "50000"
`

const (
	usdcMint  = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	shareMint = "shareMint111"
	account   = "Wallet111"
)

var (
	quiet   = log.New(io.Discard, "", 0)
	fixedAt = time.Unix(1_700_000_000, 0)
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testReg(t *testing.T) *config.Registry {
	t.Helper()
	reg, err := config.ParseRegistry([]byte(testRegistry))
	require.NoError(t, err)
	return reg
}

type fakeIndexer struct {
	mu          sync.Mutex
	vaults      map[string]*domain.Vault
	positions   map[string]*domain.VaultPosition
	deposits    []domain.TransactionItem
	withdrawals []domain.TransactionItem
	reports     map[string][]domain.StrategyReport
	aprs        map[string][]domain.HistoricalApr
	errs        map[string]error
	calls       map[string]int
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{
		vaults:    make(map[string]*domain.Vault),
		positions: make(map[string]*domain.VaultPosition),
		reports:   make(map[string][]domain.StrategyReport),
		aprs:      make(map[string][]domain.HistoricalApr),
		errs:      make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (f *fakeIndexer) enter(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	return f.errs[method]
}

func (f *fakeIndexer) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeIndexer) Vault(_ context.Context, id string) (*domain.Vault, error) {
	if err := f.enter("Vault"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vaults[id].Clone(), nil
}

func (f *fakeIndexer) Position(_ context.Context, account, vault string) (*domain.VaultPosition, error) {
	if err := f.enter("Position"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.positions[account+"/"+vault]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (f *fakeIndexer) PositionDeposits(context.Context, string, string) ([]domain.TransactionItem, error) {
	if err := f.enter("PositionDeposits"); err != nil {
		return nil, err
	}
	return append([]domain.TransactionItem{}, f.deposits...), nil
}

func (f *fakeIndexer) PositionWithdrawals(context.Context, string, string) ([]domain.TransactionItem, error) {
	if err := f.enter("PositionWithdrawals"); err != nil {
		return nil, err
	}
	return append([]domain.TransactionItem{}, f.withdrawals...), nil
}

func (f *fakeIndexer) AccountDeposits(context.Context, string) ([]domain.TransactionItem, error) {
	if err := f.enter("AccountDeposits"); err != nil {
		return nil, err
	}
	return append([]domain.TransactionItem{}, f.deposits...), nil
}

func (f *fakeIndexer) AccountWithdrawals(context.Context, string) ([]domain.TransactionItem, error) {
	if err := f.enter("AccountWithdrawals"); err != nil {
		return nil, err
	}
	return append([]domain.TransactionItem{}, f.withdrawals...), nil
}

func (f *fakeIndexer) StrategyReports(_ context.Context, strategy string) ([]domain.StrategyReport, []domain.HistoricalApr, error) {
	if err := f.enter("StrategyReports"); err != nil {
		return nil, nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reports[strategy], f.aprs[strategy], nil
}

type fakeBalances struct {
	result balance.Result
}

func (f fakeBalances) TokenBalance(context.Context, string, string) balance.Result {
	return f.result
}

type fakePeriods struct {
	periods domain.Periods
	err     error
	calls   int
	mu      sync.Mutex
}

func (f *fakePeriods) VaultAddress(index uint64) (string, error) {
	return fmt.Sprintf("VaultPDA%d", index), nil
}

func (f *fakePeriods) Periods(context.Context, uint64) (domain.Periods, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.periods, f.err
}

func defiVault() *domain.Vault {
	return &domain.Vault{
		ID:              "defiVault",
		Token:           domain.Token{ID: usdcMint, Decimals: 6},
		ShareToken:      domain.Token{ID: shareMint, Decimals: 6},
		DepositLimit:    d("1000000000"),
		BalanceTokens:   d("500000000"),
		APR:             d("7.5"),
		PerformanceFees: d("1000"),
		Strategies: []domain.Strategy{
			{ID: "stratA", MaxDebt: d("100"), CurrentDebt: d("50")},
			{ID: "stratB", MaxDebt: d("100"), CurrentDebt: d("50")},
		},
	}
}

func tradeFiVault() *domain.Vault {
	return &domain.Vault{
		ID:            "tfVault",
		Token:         domain.Token{ID: "testMint", Decimals: 6},
		ShareToken:    domain.Token{ID: shareMint, Decimals: 6},
		DepositLimit:  decimal.Zero,
		BalanceTokens: d("1000000"),
		APR:           d("7.5"),
		Strategies: []domain.Strategy{
			{ID: "tfStrat", MaxDebt: d("5000000")},
		},
	}
}

type harness struct {
	idx      *fakeIndexer
	periods  *fakePeriods
	balances fakeBalances
	reg      *config.Registry
}

func newHarness(t *testing.T) *harness {
	idx := newFakeIndexer()
	idx.vaults["defiVault"] = defiVault()
	idx.vaults["tfVault"] = tradeFiVault()
	return &harness{
		idx:      idx,
		periods:  &fakePeriods{},
		balances: fakeBalances{result: balance.Found(d("2000"))},
		reg:      testReg(t),
	}
}

func (h *harness) aggregator() *Aggregator {
	return NewAggregator(Options{
		Network:  domain.NetworkDevnet,
		Registry: h.reg,
		Indexer:  h.idx,
		Balances: h.balances,
		Preview:  preview.NewCalculator(h.reg.PreviewDivisors()),
		Periods:  h.periods,
		Now:      func() time.Time { return fixedAt },
		Logger:   quiet,
	})
}

func unix(ts int64) *int64 {
	return &ts
}
