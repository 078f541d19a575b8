package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"vault-position-lab/internal/domain"
	"vault-position-lab/internal/storage"
)

// ReportSampleStore implements storage.ReportSampleStore using ClickHouse.
// Gains are stored as decimal strings; raw amounts exceed Float64 precision.
type ReportSampleStore struct {
	conn *Conn
}

// NewReportSampleStore creates a new ReportSampleStore.
func NewReportSampleStore(conn *Conn) *ReportSampleStore {
	return &ReportSampleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ReportSampleStore = (*ReportSampleStore)(nil)

type sampleKey struct {
	strategyID  string
	timestampMs int64
	synthetic   bool
}

// InsertBulk adds samples. Fails entire batch on duplicate (strategy_id, timestamp_ms, synthetic).
// MergeTree does not enforce uniqueness, so keys are checked before the insert.
func (s *ReportSampleStore) InsertBulk(ctx context.Context, samples []*domain.ReportSample) (err error) {
	if len(samples) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observe("insert_samples", start, err) }()

	seen := make(map[sampleKey]struct{}, len(samples))
	for _, smp := range samples {
		if !storage.ValidSample(smp) {
			return storage.ErrInvalidInput
		}
		k := sampleKey{smp.StrategyID, smp.TimestampMs, smp.Synthetic}
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for k := range seen {
		exists, err := s.exists(ctx, k)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO strategy_report_samples (
			strategy_id, vault_id, timestamp_ms, gain, loss, synthetic
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, smp := range samples {
		err = batch.Append(
			smp.StrategyID, smp.VaultID, uint64(smp.TimestampMs),
			smp.Gain.String(), smp.Loss.String(), smp.Synthetic,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByStrategy retrieves all samples of a strategy, ordered by timestamp ASC.
func (s *ReportSampleStore) GetByStrategy(ctx context.Context, strategyID string) (out []*domain.ReportSample, err error) {
	start := time.Now()
	defer func() { observe("get_samples", start, err) }()

	query := `
		SELECT strategy_id, vault_id, timestamp_ms, gain, loss, synthetic
		FROM strategy_report_samples FINAL
		WHERE strategy_id = ?
		ORDER BY timestamp_ms ASC, synthetic ASC
	`
	rows, err := s.conn.Query(ctx, query, strategyID)
	if err != nil {
		return nil, fmt.Errorf("query by strategy: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// GetByTimeRange retrieves samples of a strategy within [start, end] (inclusive).
func (s *ReportSampleStore) GetByTimeRange(ctx context.Context, strategyID string, from, to int64) (out []*domain.ReportSample, err error) {
	start := time.Now()
	defer func() { observe("get_samples_range", start, err) }()

	query := `
		SELECT strategy_id, vault_id, timestamp_ms, gain, loss, synthetic
		FROM strategy_report_samples FINAL
		WHERE strategy_id = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC, synthetic ASC
	`
	rows, err := s.conn.Query(ctx, query, strategyID, uint64(max(from, 0)), uint64(max(to, 0)))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

func (s *ReportSampleStore) exists(ctx context.Context, k sampleKey) (bool, error) {
	query := `
		SELECT count(*) FROM strategy_report_samples
		WHERE strategy_id = ? AND timestamp_ms = ? AND synthetic = ?
	`
	var count uint64
	if err := s.conn.QueryRow(ctx, query, k.strategyID, uint64(k.timestampMs), k.synthetic).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanSamples(rows chRows) ([]*domain.ReportSample, error) {
	var samples []*domain.ReportSample

	for rows.Next() {
		var (
			smp        domain.ReportSample
			ts         uint64
			gain, loss string
		)
		if err := rows.Scan(&smp.StrategyID, &smp.VaultID, &ts, &gain, &loss, &smp.Synthetic); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		smp.TimestampMs = int64(ts)

		var err error
		if smp.Gain, err = decimal.NewFromString(gain); err != nil {
			return nil, fmt.Errorf("decode gain: %w", err)
		}
		if smp.Loss, err = decimal.NewFromString(loss); err != nil {
			return nil, fmt.Errorf("decode loss: %w", err)
		}
		samples = append(samples, &smp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return samples, nil
}
