package position

import (
	"context"
	"log"
	"strings"
	"sync"

	"vault-position-lab/internal/chainsync"
	"vault-position-lab/internal/domain"
	"vault-position-lab/internal/observability"
)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Signal *chainsync.Signal
	// Hooks receive every view committed by any watched session.
	Hooks  []func(*domain.PositionView)
	Logger *log.Logger
}

type watched struct {
	session *Session
	cancel  context.CancelFunc
	done    chan struct{}
}

// Manager keeps a running Session per watched (account, vault) pair.
type Manager struct {
	ctx     context.Context
	builder Builder
	opts    ManagerOptions
	logger  *log.Logger

	mu       sync.Mutex
	sessions map[string]*watched
	closed   bool
}

// NewManager creates a manager whose sessions live until ctx is cancelled
// or Close is called.
func NewManager(ctx context.Context, builder Builder, opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if opts.Signal == nil {
		opts.Signal = chainsync.NewSignal()
	}
	return &Manager{
		ctx:      ctx,
		builder:  builder,
		opts:     opts,
		logger:   logger,
		sessions: make(map[string]*watched),
	}
}

// sessionKey keeps the account's case; base58 addresses differing only in
// case are distinct accounts.
func sessionKey(account, vaultID string) string {
	return account + ":" + strings.ToLower(vaultID)
}

// Watch starts a session for the pair unless one is running. It reports
// whether a new session was started.
func (m *Manager) Watch(account, vaultID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey(account, vaultID)
	if w, ok := m.sessions[key]; ok {
		return w.session, false
	}
	if m.closed {
		return nil, false
	}

	s := NewSession(m.builder, SessionOptions{
		Account: account,
		VaultID: vaultID,
		Signal:  m.opts.Signal,
		Logger:  m.logger,
	})
	for _, hook := range m.opts.Hooks {
		s.OnUpdate(hook)
	}

	ctx, cancel := context.WithCancel(m.ctx)
	w := &watched{session: s, cancel: cancel, done: make(chan struct{})}
	m.sessions[key] = w
	observability.SetWatchedSessions(len(m.sessions))

	go func() {
		defer close(w.done)
		_ = s.Run(ctx)
	}()
	m.logger.Printf("watching %s in %s", account, vaultID)
	return s, true
}

// Get returns the running session for the pair.
func (m *Manager) Get(account, vaultID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.sessions[sessionKey(account, vaultID)]
	if !ok {
		return nil, false
	}
	return w.session, true
}

// Unwatch stops the session for the pair.
func (m *Manager) Unwatch(account, vaultID string) bool {
	m.mu.Lock()
	key := sessionKey(account, vaultID)
	w, ok := m.sessions[key]
	if ok {
		delete(m.sessions, key)
		observability.SetWatchedSessions(len(m.sessions))
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	w.cancel()
	<-w.done
	return true
}

// Len returns the number of watched pairs.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close stops every session and waits for them to exit.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	all := make([]*watched, 0, len(m.sessions))
	for key, w := range m.sessions {
		all = append(all, w)
		delete(m.sessions, key)
	}
	observability.SetWatchedSessions(0)
	m.mu.Unlock()

	for _, w := range all {
		w.cancel()
		<-w.done
	}
}
