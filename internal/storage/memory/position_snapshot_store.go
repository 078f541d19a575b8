package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"vault-position-lab/internal/domain"
	"vault-position-lab/internal/storage"
)

// PositionSnapshotStore is an in-memory implementation of storage.PositionSnapshotStore.
type PositionSnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PositionSnapshot // keyed by (account, vault_id, slot)
}

// NewPositionSnapshotStore creates a new in-memory snapshot store.
func NewPositionSnapshotStore() *PositionSnapshotStore {
	return &PositionSnapshotStore{
		data: make(map[string]*domain.PositionSnapshot),
	}
}

var _ storage.PositionSnapshotStore = (*PositionSnapshotStore)(nil)

func snapshotKey(account, vaultID string, slot int64) string {
	return fmt.Sprintf("%s|%s|%d", account, vaultID, slot)
}

// Insert adds a snapshot. Returns ErrDuplicateKey if (account, vault_id, slot) exists.
func (s *PositionSnapshotStore) Insert(_ context.Context, snap *domain.PositionSnapshot) error {
	if !storage.ValidSnapshot(snap) {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := snapshotKey(snap.Account, snap.VaultID, snap.Slot)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	stored := copySnapshot(snap)
	if stored.CreatedAt == 0 {
		stored.CreatedAt = time.Now().UnixMilli()
	}
	s.data[key] = stored
	return nil
}

// GetLatest returns the snapshot with the highest slot for the pair.
func (s *PositionSnapshotStore) GetLatest(_ context.Context, account, vaultID string) (*domain.PositionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.PositionSnapshot
	for _, snap := range s.data {
		if snap.Account != account || snap.VaultID != vaultID {
			continue
		}
		if latest == nil || snap.Slot > latest.Slot {
			latest = snap
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return copySnapshot(latest), nil
}

// ListByAccount returns the latest snapshot of every vault of account, ordered by vault_id.
func (s *PositionSnapshotStore) ListByAccount(_ context.Context, account string) ([]*domain.PositionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]*domain.PositionSnapshot)
	for _, snap := range s.data {
		if snap.Account != account {
			continue
		}
		if cur, ok := latest[snap.VaultID]; !ok || snap.Slot > cur.Slot {
			latest[snap.VaultID] = snap
		}
	}

	result := make([]*domain.PositionSnapshot, 0, len(latest))
	for _, snap := range latest {
		result = append(result, copySnapshot(snap))
	}
	sort.Slice(result, func(i, j int) bool {
		return strings.Compare(result[i].VaultID, result[j].VaultID) < 0
	})
	return result, nil
}

func copySnapshot(snap *domain.PositionSnapshot) *domain.PositionSnapshot {
	c := *snap
	if snap.Phase != nil {
		phase := *snap.Phase
		c.Phase = &phase
	}
	return &c
}
