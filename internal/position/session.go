package position

import (
	"context"
	"log"
	"sync"
	"time"

	"vault-position-lab/internal/chainsync"
	"vault-position-lab/internal/domain"
	"vault-position-lab/internal/observability"
)

// Refresh triggers.
const (
	TriggerStart   = "start"
	TriggerBlock   = "block"
	TriggerAccount = "account"
	TriggerVault   = "vault"
	TriggerManual  = "manual"
)

// Builder produces a fresh view. *Aggregator implements it.
type Builder interface {
	Aggregate(ctx context.Context, account, vaultID string) (*domain.PositionView, error)
}

var _ Builder = (*Aggregator)(nil)

// SessionOptions configures a Session.
type SessionOptions struct {
	Account string
	VaultID string
	Signal  *chainsync.Signal
	Logger  *log.Logger
}

// Session owns the current view of one account in one vault. Every refresh
// takes a new generation and cancels the one in flight; a result is
// committed only while its generation is still current.
type Session struct {
	builder Builder
	signal  *chainsync.Signal
	logger  *log.Logger

	mu        sync.Mutex
	base      context.Context
	account   string
	vaultID   string
	slot      int64
	gen       uint64
	cancel    context.CancelFunc
	view      *domain.PositionView
	loading   bool
	lastErr   error
	stopped   bool
	listeners []func(*domain.PositionView)

	wg sync.WaitGroup
}

// NewSession creates a session. Nothing is fetched until Run, Refresh or a
// setter is called.
func NewSession(builder Builder, opts SessionOptions) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	signal := opts.Signal
	if signal == nil {
		signal = chainsync.NewSignal()
	}
	return &Session{
		builder: builder,
		signal:  signal,
		logger:  logger,
		base:    context.Background(),
		account: opts.Account,
		vaultID: opts.VaultID,
	}
}

// OnUpdate registers fn to receive every committed view.
func (s *Session) OnUpdate(fn func(*domain.PositionView)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// SetAccount switches the account and refreshes.
func (s *Session) SetAccount(account string) uint64 {
	s.mu.Lock()
	s.account = account
	s.mu.Unlock()
	return s.Refresh(TriggerAccount)
}

// SetVault switches the vault and refreshes.
func (s *Session) SetVault(vaultID string) uint64 {
	s.mu.Lock()
	s.vaultID = vaultID
	s.mu.Unlock()
	return s.Refresh(TriggerVault)
}

// Generation returns the generation of the latest refresh.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Err returns the error of the last refresh that failed, cleared by the next
// successful commit.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Refresh starts a new generation and returns it. Once Run has returned the
// session is stopped and Refresh only reports the current generation.
func (s *Session) Refresh(trigger string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return s.gen
	}
	s.gen++
	gen := s.gen
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(s.base)
	s.cancel = cancel
	s.loading = true

	account, vaultID, slot := s.account, s.vaultID, s.slot

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.build(ctx, gen, trigger, account, vaultID, slot)
	}()
	return gen
}

func (s *Session) build(ctx context.Context, gen uint64, trigger, account, vaultID string, slot int64) {
	start := time.Now()
	view, err := s.builder.Aggregate(ctx, account, vaultID)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		observability.RecordStaleDiscard()
		observability.RecordRefresh(trigger, "stale", time.Since(start))
		return
	}
	s.loading = false
	if err != nil {
		s.lastErr = err
		// a view left over from the previous pair must not be shown for this one
		if s.view != nil && (s.view.Account != account || s.view.VaultID != vaultID) {
			s.view = nil
		}
		s.mu.Unlock()
		s.logger.Printf("refresh %s/%s (gen %d): %v", account, vaultID, gen, err)
		observability.RecordRefresh(trigger, "error", time.Since(start))
		return
	}
	view.Generation = gen
	view.Slot = slot
	s.view = view
	s.lastErr = nil
	listeners := make([]func(*domain.PositionView), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	observability.RecordRefresh(trigger, "ok", time.Since(start))
	for _, fn := range listeners {
		fn(view)
	}
}

// View returns a copy of the current view. While a refresh is in flight the
// previous data is returned with its loading flags set, so BalanceEarned
// reads NotComputed. Before the first commit a placeholder is returned.
func (s *Session) View() domain.PositionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	var v domain.PositionView
	if s.view != nil {
		v = *s.view
	} else {
		v = domain.PositionView{
			Account:       s.account,
			VaultID:       s.vaultID,
			BalanceToken:  domain.NotComputed,
			BalanceEarned: domain.NotComputed,
			Loading:       domain.Loading{Vault: true},
		}
	}
	if s.loading {
		v.Loading = domain.Loading{
			Vault:        v.Loading.Vault || s.view == nil,
			Position:     s.account != "",
			Transactions: s.account != "",
			Balance:      s.account != "",
			Periods:      v.Vault.IsTradeFi(),
		}
		if !v.Loading.Any() {
			v.Loading.Vault = true
		}
		v.BalanceEarned = domain.NotComputed
	}
	return v
}

// Run refreshes once, then on every new slot from the signal, until ctx is
// cancelled. The in-flight refresh is cancelled and awaited on exit.
func (s *Session) Run(ctx context.Context) error {
	slots, unsubscribe := s.signal.Subscribe()
	defer unsubscribe()

	s.mu.Lock()
	s.base = ctx
	s.slot = s.signal.Last()
	s.mu.Unlock()

	s.Refresh(TriggerStart)

	for {
		select {
		case <-ctx.Done():
			s.stop()
			return ctx.Err()
		case slot, ok := <-slots:
			if !ok {
				s.stop()
				return nil
			}
			s.mu.Lock()
			s.slot = slot
			s.mu.Unlock()
			s.Refresh(TriggerBlock)
		}
	}
}

func (s *Session) stop() {
	s.mu.Lock()
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}
