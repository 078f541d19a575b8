package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"vault-position-lab/internal/domain"
	"vault-position-lab/internal/storage"
)

// PositionSnapshotStore implements storage.PositionSnapshotStore using PostgreSQL.
type PositionSnapshotStore struct {
	pool *Pool
}

// NewPositionSnapshotStore creates a new PositionSnapshotStore.
func NewPositionSnapshotStore(pool *Pool) *PositionSnapshotStore {
	return &PositionSnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionSnapshotStore = (*PositionSnapshotStore)(nil)

const snapshotColumns = `
	account, vault_id, slot, balance_shares::text, balance_position::text,
	balance_earned, phase, captured_at, created_at
`

// Insert adds a snapshot. Returns ErrDuplicateKey if (account, vault_id, slot) exists.
// Amounts are written as NUMERIC from their exact decimal string.
func (s *PositionSnapshotStore) Insert(ctx context.Context, snap *domain.PositionSnapshot) (err error) {
	if !storage.ValidSnapshot(snap) {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() { observe("insert_snapshot", start, err) }()

	createdAt := snap.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	query := `
		INSERT INTO position_snapshots (
			account, vault_id, slot, balance_shares, balance_position,
			balance_earned, phase, captured_at, created_at
		) VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8, $9)
	`
	_, err = s.pool.Exec(ctx, query,
		snap.Account, snap.VaultID, snap.Slot,
		snap.BalanceShares.String(), snap.BalancePosition.String(),
		snap.BalanceEarned, snap.Phase, snap.CapturedAt, createdAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert position snapshot: %w", err)
	}
	return nil
}

// GetLatest returns the snapshot with the highest slot for the pair.
func (s *PositionSnapshotStore) GetLatest(ctx context.Context, account, vaultID string) (snap *domain.PositionSnapshot, err error) {
	start := time.Now()
	defer func() { observe("get_latest_snapshot", start, err) }()

	query := `SELECT ` + snapshotColumns + `
		FROM position_snapshots
		WHERE account = $1 AND vault_id = $2
		ORDER BY slot DESC
		LIMIT 1
	`
	snap, err = scanSnapshot(s.pool.QueryRow(ctx, query, account, vaultID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return snap, nil
}

// ListByAccount returns the latest snapshot of every vault of account.
func (s *PositionSnapshotStore) ListByAccount(ctx context.Context, account string) (out []*domain.PositionSnapshot, err error) {
	start := time.Now()
	defer func() { observe("list_snapshots", start, err) }()

	query := `SELECT DISTINCT ON (vault_id) ` + snapshotColumns + `
		FROM position_snapshots
		WHERE account = $1
		ORDER BY vault_id ASC, slot DESC
	`
	rows, err := s.pool.Query(ctx, query, account)
	if err != nil {
		return nil, fmt.Errorf("query snapshots by account: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

func scanSnapshot(row pgx.Row) (*domain.PositionSnapshot, error) {
	var (
		snap             domain.PositionSnapshot
		shares, position string
	)
	err := row.Scan(
		&snap.Account, &snap.VaultID, &snap.Slot, &shares, &position,
		&snap.BalanceEarned, &snap.Phase, &snap.CapturedAt, &snap.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if snap.BalanceShares, err = decimal.NewFromString(shares); err != nil {
		return nil, fmt.Errorf("decode balance_shares: %w", err)
	}
	if snap.BalancePosition, err = decimal.NewFromString(position); err != nil {
		return nil, fmt.Errorf("decode balance_position: %w", err)
	}
	return &snap, nil
}
