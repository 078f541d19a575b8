package position

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vault-position-lab/internal/chainsync"
	"vault-position-lab/internal/domain"
)

func TestManager_WatchOnce(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	hook := func(v *domain.PositionView) {
		mu.Lock()
		seen = append(seen, v.Account+"/"+v.VaultID)
		mu.Unlock()
	}

	m := NewManager(context.Background(), &instantBuilder{}, ManagerOptions{
		Signal: chainsync.NewSignal(),
		Hooks:  []func(*domain.PositionView){hook},
		Logger: quiet,
	})
	defer m.Close()

	s1, created := m.Watch(account, "defiVault")
	require.True(t, created)
	s2, created := m.Watch(account, "DEFIVAULT")
	assert.False(t, created)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, m.Len())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0
	}, time.Second, time.Millisecond)

	got, ok := m.Get(account, "defiVault")
	require.True(t, ok)
	assert.Same(t, s1, got)
}

func TestManager_Unwatch(t *testing.T) {
	signal := chainsync.NewSignal()
	m := NewManager(context.Background(), &instantBuilder{}, ManagerOptions{Signal: signal, Logger: quiet})

	m.Watch(account, "v")
	require.Eventually(t, func() bool { return signal.Subscribers() == 1 }, time.Second, time.Millisecond)

	assert.True(t, m.Unwatch(account, "v"))
	assert.False(t, m.Unwatch(account, "v"))
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0, signal.Subscribers())
}

func TestManager_CloseRejectsNewWatches(t *testing.T) {
	m := NewManager(context.Background(), &instantBuilder{}, ManagerOptions{Logger: quiet})
	m.Watch(account, "a")
	m.Watch(account, "b")

	m.Close()
	assert.Equal(t, 0, m.Len())

	s, created := m.Watch(account, "c")
	assert.Nil(t, s)
	assert.False(t, created)
}

func TestManager_AccountCaseIsSignificant(t *testing.T) {
	m := NewManager(context.Background(), &instantBuilder{}, ManagerOptions{Logger: quiet})
	defer m.Close()

	upper, created := m.Watch("Wallet111", "v")
	require.True(t, created)
	lower, created := m.Watch("wallet111", "v")
	require.True(t, created)
	assert.NotSame(t, upper, lower)
	assert.Equal(t, 2, m.Len())

	_, ok := m.Get("WALLET111", "v")
	assert.False(t, ok)

	assert.True(t, m.Unwatch("wallet111", "v"))
	got, ok := m.Get("Wallet111", "v")
	require.True(t, ok)
	assert.Same(t, upper, got)
}
