package indexer

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"vault-position-lab/internal/domain"
)

// HistorySource is the part of Client the Fetcher needs.
type HistorySource interface {
	PositionDeposits(ctx context.Context, account, vault string) ([]domain.TransactionItem, error)
	PositionWithdrawals(ctx context.Context, account, vault string) ([]domain.TransactionItem, error)
	AccountDeposits(ctx context.Context, account string) ([]domain.TransactionItem, error)
	AccountWithdrawals(ctx context.Context, account string) ([]domain.TransactionItem, error)
}

var _ HistorySource = (*Client)(nil)

// Options configures a Fetcher.
type Options struct {
	Logger *log.Logger
}

// Fetcher loads deposit and withdrawal history. Load returns the lists to the
// caller; Start delivers them to a callback from a goroutine.
type Fetcher struct {
	src    HistorySource
	logger *log.Logger
}

// NewFetcher creates a history fetcher.
func NewFetcher(src HistorySource, opts Options) *Fetcher {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Fetcher{src: src, logger: logger}
}

// Load fetches the full history of account in vault. An empty account
// yields empty lists without querying.
func (f *Fetcher) Load(ctx context.Context, account, vault string) (domain.History, error) {
	if account == "" {
		return domain.History{Deposits: []domain.TransactionItem{}, Withdrawals: []domain.TransactionItem{}}, nil
	}
	return f.load(ctx,
		func(ctx context.Context) ([]domain.TransactionItem, error) {
			return f.src.PositionDeposits(ctx, account, vault)
		},
		func(ctx context.Context) ([]domain.TransactionItem, error) {
			return f.src.PositionWithdrawals(ctx, account, vault)
		},
	)
}

// LoadAccount fetches the history of account across all vaults.
func (f *Fetcher) LoadAccount(ctx context.Context, account string) (domain.History, error) {
	if account == "" {
		return domain.History{Deposits: []domain.TransactionItem{}, Withdrawals: []domain.TransactionItem{}}, nil
	}
	return f.load(ctx,
		func(ctx context.Context) ([]domain.TransactionItem, error) {
			return f.src.AccountDeposits(ctx, account)
		},
		func(ctx context.Context) ([]domain.TransactionItem, error) {
			return f.src.AccountWithdrawals(ctx, account)
		},
	)
}

type listFunc func(ctx context.Context) ([]domain.TransactionItem, error)

func (f *Fetcher) load(ctx context.Context, deposits, withdrawals listFunc) (domain.History, error) {
	var h domain.History
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := deposits(gctx)
		if err != nil {
			return fmt.Errorf("deposits: %w", err)
		}
		h.Deposits = items
		return nil
	})
	g.Go(func() error {
		items, err := withdrawals(gctx)
		if err != nil {
			return fmt.Errorf("withdrawals: %w", err)
		}
		h.Withdrawals = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.History{}, err
	}
	return h, nil
}

// Start loads the history in the background and passes the result to onDone.
func (f *Fetcher) Start(ctx context.Context, account, vault string, onDone func(domain.History, error)) {
	go func() {
		h, err := f.Load(ctx, account, vault)
		if err != nil {
			f.logger.Printf("history account=%s vault=%s: %v", account, vault, err)
		}
		onDone(h, err)
	}()
}
