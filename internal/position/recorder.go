package position

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"vault-position-lab/internal/domain"
	"vault-position-lab/internal/observability"
	"vault-position-lab/internal/storage"
)

// RecorderOptions configures a Recorder.
type RecorderOptions struct {
	Snapshots storage.PositionSnapshotStore
	Reports   storage.ReportSampleStore // optional
	Timeout   time.Duration
	Now       func() time.Time
	Logger    *log.Logger
}

// Recorder persists committed views: one snapshot per (account, vault, slot)
// and the report samples not stored yet.
type Recorder struct {
	opts   RecorderOptions
	logger *log.Logger
}

// NewRecorder creates a Recorder.
func NewRecorder(opts RecorderOptions) *Recorder {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{opts: opts, logger: logger}
}

// Hook adapts the recorder to ManagerOptions.Hooks. Failures are logged.
func (r *Recorder) Hook(v *domain.PositionView) {
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.Timeout)
	defer cancel()
	if err := r.Record(ctx, v); err != nil {
		r.logger.Printf("record %s/%s@%d: %v", v.Account, v.VaultID, v.Slot, err)
	}
}

// Record stores v. Views without a position or still loading are skipped;
// an already stored slot is not an error.
func (r *Recorder) Record(ctx context.Context, v *domain.PositionView) error {
	if v == nil || v.Loading.Any() {
		return nil
	}

	if v.Position != nil && r.opts.Snapshots != nil {
		err := r.opts.Snapshots.Insert(ctx, SnapshotOf(v, r.opts.Now()))
		switch {
		case err == nil:
			observability.RecordSnapshotStored()
		case errors.Is(err, storage.ErrDuplicateKey):
		default:
			return fmt.Errorf("insert snapshot: %w", err)
		}
	}

	if r.opts.Reports == nil {
		return nil
	}
	ids := make([]string, 0, len(v.Reports))
	for id := range v.Reports {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		n, err := r.storeSamples(ctx, v.VaultID, id, v.Reports[id])
		if err != nil {
			return fmt.Errorf("store samples for %s: %w", id, err)
		}
		observability.RecordReportSamples(n)
	}
	return nil
}

func (r *Recorder) storeSamples(ctx context.Context, vaultID, strategyID string, reports []domain.StrategyReport) (int, error) {
	if len(reports) == 0 {
		return 0, nil
	}
	existing, err := r.opts.Reports.GetByStrategy(ctx, strategyID)
	if err != nil {
		return 0, err
	}

	type key struct {
		ts        int64
		synthetic bool
	}
	seen := make(map[key]struct{}, len(existing)+len(reports))
	for _, s := range existing {
		seen[key{s.TimestampMs, s.Synthetic}] = struct{}{}
	}

	var fresh []*domain.ReportSample
	for _, rep := range reports {
		k := key{rep.Timestamp, rep.Synthetic}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		fresh = append(fresh, &domain.ReportSample{
			StrategyID:  strategyID,
			VaultID:     vaultID,
			TimestampMs: rep.Timestamp,
			Gain:        rep.Gain,
			Loss:        rep.Loss,
			Synthetic:   rep.Synthetic,
		})
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := r.opts.Reports.InsertBulk(ctx, fresh); err != nil {
		return 0, err
	}
	return len(fresh), nil
}

// SnapshotOf converts a view with a position into its persisted form.
func SnapshotOf(v *domain.PositionView, capturedAt time.Time) *domain.PositionSnapshot {
	snap := &domain.PositionSnapshot{
		Account:       v.Account,
		VaultID:       v.VaultID,
		Slot:          v.Slot,
		BalanceEarned: v.BalanceEarned,
		CapturedAt:    capturedAt.UnixMilli(),
	}
	if v.Position != nil {
		snap.BalanceShares = v.Position.BalanceShares
		snap.BalancePosition = v.Position.BalancePosition
	}
	if v.Phase != nil {
		phase := v.Phase.String()
		snap.Phase = &phase
	}
	return snap
}
