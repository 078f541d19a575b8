// Package position reconciles an account's holding in a vault from on-chain
// balances, indexer history and strategy periods.
package position

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"vault-position-lab/internal/balance"
	"vault-position-lab/internal/config"
	"vault-position-lab/internal/domain"
	"vault-position-lab/internal/indexer"
	"vault-position-lab/internal/observability"
	"vault-position-lab/internal/period"
	"vault-position-lab/internal/preview"
)

// ErrVaultNotFound is returned when the indexer does not know the vault.
var ErrVaultNotFound = errors.New("vault not found")

// Degraded sections recorded on a view.
const (
	SectionPosition     = "position"
	SectionBalance      = "balance"
	SectionPreview      = "preview"
	SectionTransactions = "transactions"
	SectionPeriods      = "periods"
	SectionVaultAddress = "vaultAddress"
	SectionReports      = "reports"
	SectionShutdown     = "shutdown"
)

// Indexer is the subgraph surface the aggregator reads.
type Indexer interface {
	indexer.HistorySource
	Vault(ctx context.Context, id string) (*domain.Vault, error)
	Position(ctx context.Context, account, vault string) (*domain.VaultPosition, error)
	StrategyReports(ctx context.Context, strategy string) ([]domain.StrategyReport, []domain.HistoricalApr, error)
}

var _ Indexer = (*indexer.Client)(nil)

// BalanceReader reads SPL token balances.
type BalanceReader interface {
	TokenBalance(ctx context.Context, owner, mint string) balance.Result
}

// PeriodResolver derives vault addresses and trade-finance periods.
type PeriodResolver interface {
	VaultAddress(index uint64) (string, error)
	Periods(ctx context.Context, index uint64) (domain.Periods, error)
}

var _ PeriodResolver = (*period.Resolver)(nil)

// ShutdownChecker reports whether a strategy has been shut down.
type ShutdownChecker interface {
	IsShutdown(ctx context.Context, strategyID string) (bool, error)
}

// NeverShutdown treats every strategy as live.
type NeverShutdown struct{}

// IsShutdown always returns false.
func (NeverShutdown) IsShutdown(context.Context, string) (bool, error) { return false, nil }

// Options configures an Aggregator. Indexer, Balances, Preview, Periods and
// Registry are required.
type Options struct {
	Network  domain.Network
	Registry *config.Registry
	Indexer  Indexer
	Balances BalanceReader
	Preview  *preview.Calculator
	Periods  PeriodResolver
	Shutdown ShutdownChecker
	Now      func() time.Time
	Logger   *log.Logger
}

// Aggregator builds position views. It keeps no state between calls.
type Aggregator struct {
	network  domain.Network
	registry *config.Registry
	idx      Indexer
	balances BalanceReader
	preview  *preview.Calculator
	periods  PeriodResolver
	shutdown ShutdownChecker
	history  *indexer.Fetcher
	now      func() time.Time
	logger   *log.Logger
}

// NewAggregator creates an aggregator.
func NewAggregator(opts Options) *Aggregator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	shutdown := opts.Shutdown
	if shutdown == nil {
		shutdown = NeverShutdown{}
	}
	return &Aggregator{
		network:  opts.Network,
		registry: opts.Registry,
		idx:      opts.Indexer,
		balances: opts.Balances,
		preview:  opts.Preview,
		periods:  opts.Periods,
		shutdown: shutdown,
		history:  indexer.NewFetcher(opts.Indexer, indexer.Options{Logger: logger}),
		now:      now,
		logger:   logger,
	}
}

// degradation collects failed sections from concurrent steps.
type degradation struct {
	mu       sync.Mutex
	sections []string
}

func (d *degradation) add(section string) {
	d.mu.Lock()
	d.sections = append(d.sections, section)
	d.mu.Unlock()
	observability.RecordDegraded(section)
}

func (d *degradation) list() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sections) == 0 {
		return nil
	}
	out := make([]string, len(d.sections))
	copy(out, d.sections)
	return out
}

// Vault fetches and augments vaultID. account may be empty.
func (a *Aggregator) Vault(ctx context.Context, vaultID, account string) (*domain.Vault, Augmentation, error) {
	raw, err := a.idx.Vault(ctx, vaultID)
	if err != nil {
		return nil, Augmentation{}, fmt.Errorf("fetch vault %s: %w", vaultID, err)
	}
	if raw == nil {
		return nil, Augmentation{}, fmt.Errorf("%w: %s", ErrVaultNotFound, vaultID)
	}
	v, aug := a.augment(ctx, raw, account)
	return v, aug, nil
}

// Aggregate builds the view of account in vaultID from scratch. Failures of
// individual sections degrade the view instead of failing the call; only an
// unknown vault, a failed vault fetch or a cancelled context return an error.
func (a *Aggregator) Aggregate(ctx context.Context, account, vaultID string) (*domain.PositionView, error) {
	vault, aug, err := a.Vault(ctx, vaultID, account)
	if err != nil {
		return nil, err
	}

	var deg degradation
	for _, s := range aug.Degraded {
		deg.add(s)
	}

	index := a.registry.VaultIndex(vault.ID)

	var (
		position *domain.VaultPosition
		history  = emptyHistory()
		periods  domain.Periods
		address  string
	)

	var g errgroup.Group

	if account != "" {
		g.Go(func() error {
			position = a.loadPosition(ctx, account, vault, &deg)
			return nil
		})
		g.Go(func() error {
			h, err := a.history.Load(ctx, account, vault.ID)
			if err != nil {
				a.logger.Printf("history %s/%s: %v", account, vault.ID, err)
				deg.add(SectionTransactions)
				return nil
			}
			history = h
			return nil
		})
	}

	if vault.IsTradeFi() {
		g.Go(func() error {
			p, err := a.periods.Periods(ctx, index)
			if err != nil {
				a.logger.Printf("periods %s: %v", vault.ID, err)
				deg.add(SectionPeriods)
				return nil
			}
			periods = p
			return nil
		})
	}

	g.Go(func() error {
		addr, err := a.periods.VaultAddress(index)
		if err != nil {
			deg.add(SectionVaultAddress)
			return nil
		}
		address = addr
		return nil
	})

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := a.now()
	view := &domain.PositionView{
		Account:             account,
		VaultID:             vault.ID,
		Vault:               vault,
		VaultAddress:        address,
		Position:            position,
		Deposits:            history.Deposits,
		Withdrawals:         history.Withdrawals,
		Periods:             periods,
		PerformanceFee:      vault.PerformanceFeePercent(),
		MinimumDeposit:      aug.MinimumDeposit,
		TradeFiDepositLimit: aug.TradeFiDepositLimit,
		ComputedAt:          now.UnixMilli(),
	}

	view.BalanceToken = a.balanceToken(position, vault.ID, &deg)
	if phase, ok := period.PhaseOf(periods, now.Unix()); ok {
		view.Phase = &phase
	}
	view.BalanceEarned = Earned(view.BalanceToken, history, vault.Token.Decimals, view.Loading.Any())

	view.Reports, view.HistoricalAprs = a.reports(ctx, vault, view.Phase, periods, now, &deg)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	view.Degraded = deg.list()
	return view, nil
}

// loadPosition reads the indexer position and replaces its share balance
// with the on-chain one. A failed balance read keeps the indexer shares.
func (a *Aggregator) loadPosition(ctx context.Context, account string, vault *domain.Vault, deg *degradation) *domain.VaultPosition {
	pos, err := a.idx.Position(ctx, account, vault.ID)
	if err != nil {
		a.logger.Printf("position %s/%s: %v", account, vault.ID, err)
		deg.add(SectionPosition)
		return nil
	}
	if pos == nil {
		return nil
	}
	pos.Token.Symbol, pos.Token.Name = vault.Token.Symbol, vault.Token.Name
	pos.ShareToken.Symbol, pos.ShareToken.Name = vault.ShareToken.Symbol, vault.ShareToken.Name

	res := a.balances.TokenBalance(ctx, account, pos.ShareToken.ID)
	if !res.OK() {
		deg.add(SectionBalance)
		return pos
	}

	shares := res.AmountOrZero()
	underlying := decimal.Zero
	if shares.IsPositive() {
		underlying, err = a.preview.Redeem(shares, vault.ID)
		if err != nil {
			a.logger.Printf("preview redeem %s: %v", vault.ID, err)
			deg.add(SectionPreview)
			return pos
		}
	}
	pos.BalanceShares = shares
	pos.BalancePosition = underlying
	return pos
}

// balanceToken previews the underlying value of the share balance, or
// returns NotComputed when the preview fails.
func (a *Aggregator) balanceToken(pos *domain.VaultPosition, vaultID string, deg *degradation) string {
	if pos == nil || !pos.BalanceShares.IsPositive() {
		return "0"
	}
	v, err := a.preview.Redeem(pos.BalanceShares, vaultID)
	if err != nil {
		deg.add(SectionPreview)
		return domain.NotComputed
	}
	return v.String()
}

// reports assembles the per-strategy report series. Trade-finance vaults get
// a synthetic series while locked, nothing while open or unresolved, and
// indexed reports without APR history once matured.
func (a *Aggregator) reports(ctx context.Context, vault *domain.Vault, phase *domain.Phase, periods domain.Periods, now time.Time, deg *degradation) (map[string][]domain.StrategyReport, map[string][]domain.HistoricalApr) {
	reports := make(map[string][]domain.StrategyReport)
	aprs := make(map[string][]domain.HistoricalApr)
	if len(vault.Strategies) == 0 {
		return reports, aprs
	}

	if vault.IsTradeFi() {
		if phase == nil || *phase == domain.PhaseOpen {
			return reports, aprs
		}
		if *phase == domain.PhaseLocked {
			reports[vault.Strategies[0].ID] = period.Synthesize(
				*periods.DepositPeriodEnds, *periods.LockPeriodEnds, now.Unix(),
				vault.APR, vault.BalanceTokens, a.registry.ReportStepHours,
			)
			return reports, aprs
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range vault.Strategies {
		strategyID := s.ID
		g.Go(func() error {
			r, h, err := a.idx.StrategyReports(gctx, strategyID)
			if err != nil {
				a.logger.Printf("reports %s: %v", strategyID, err)
				deg.add(SectionReports)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			reports[strategyID] = r
			if !vault.IsTradeFi() {
				aprs[strategyID] = h
			}
			return nil
		})
	}
	_ = g.Wait()
	return reports, aprs
}

func emptyHistory() domain.History {
	return domain.History{Deposits: []domain.TransactionItem{}, Withdrawals: []domain.TransactionItem{}}
}
