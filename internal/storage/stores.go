package storage

import (
	"context"

	"vault-position-lab/internal/domain"
)

// PositionSnapshotStore provides access to position_snapshots storage.
type PositionSnapshotStore interface {
	// Insert adds a snapshot. Returns ErrDuplicateKey if (account, vault_id, slot) exists.
	Insert(ctx context.Context, s *domain.PositionSnapshot) error

	// GetLatest returns the snapshot with the highest slot for the pair.
	// Returns ErrNotFound if none is stored.
	GetLatest(ctx context.Context, account, vaultID string) (*domain.PositionSnapshot, error)

	// ListByAccount returns the latest snapshot of every vault of account,
	// ordered by vault_id.
	ListByAccount(ctx context.Context, account string) ([]*domain.PositionSnapshot, error)
}

// ReportSampleStore provides access to strategy_report_samples storage.
type ReportSampleStore interface {
	// InsertBulk adds samples atomically. Fails entire batch on duplicate
	// (strategy_id, timestamp_ms, synthetic).
	InsertBulk(ctx context.Context, samples []*domain.ReportSample) error

	// GetByStrategy retrieves all samples of a strategy, ordered by timestamp ASC.
	GetByStrategy(ctx context.Context, strategyID string) ([]*domain.ReportSample, error)

	// GetByTimeRange retrieves samples of a strategy within [start, end] (inclusive, ms).
	GetByTimeRange(ctx context.Context, strategyID string, start, end int64) ([]*domain.ReportSample, error)
}

// ValidSnapshot reports whether s carries its key fields.
func ValidSnapshot(s *domain.PositionSnapshot) bool {
	return s != nil && s.Account != "" && s.VaultID != "" && s.Slot >= 0
}

// ValidSample reports whether s carries its key fields.
func ValidSample(s *domain.ReportSample) bool {
	return s != nil && s.StrategyID != "" && s.TimestampMs >= 0
}
