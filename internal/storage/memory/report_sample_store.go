package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"vault-position-lab/internal/domain"
	"vault-position-lab/internal/storage"
)

// ReportSampleStore is an in-memory implementation of storage.ReportSampleStore.
type ReportSampleStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ReportSample // keyed by (strategy_id, timestamp_ms, synthetic)
}

// NewReportSampleStore creates a new in-memory report sample store.
func NewReportSampleStore() *ReportSampleStore {
	return &ReportSampleStore{
		data: make(map[string]*domain.ReportSample),
	}
}

var _ storage.ReportSampleStore = (*ReportSampleStore)(nil)

func sampleKey(strategyID string, timestampMs int64, synthetic bool) string {
	return fmt.Sprintf("%s|%d|%t", strategyID, timestampMs, synthetic)
}

// InsertBulk adds multiple samples. Fails entire batch on duplicate.
func (s *ReportSampleStore) InsertBulk(_ context.Context, samples []*domain.ReportSample) error {
	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(samples))
	for _, smp := range samples {
		if !storage.ValidSample(smp) {
			return storage.ErrInvalidInput
		}
		key := sampleKey(smp.StrategyID, smp.TimestampMs, smp.Synthetic)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, smp := range samples {
		c := *smp
		s.data[sampleKey(smp.StrategyID, smp.TimestampMs, smp.Synthetic)] = &c
	}
	return nil
}

// GetByStrategy retrieves all samples of a strategy, ordered by timestamp ASC.
func (s *ReportSampleStore) GetByStrategy(_ context.Context, strategyID string) ([]*domain.ReportSample, error) {
	return s.filter(func(smp *domain.ReportSample) bool {
		return smp.StrategyID == strategyID
	}), nil
}

// GetByTimeRange retrieves samples within [start, end] (inclusive).
func (s *ReportSampleStore) GetByTimeRange(_ context.Context, strategyID string, start, end int64) ([]*domain.ReportSample, error) {
	return s.filter(func(smp *domain.ReportSample) bool {
		return smp.StrategyID == strategyID && smp.TimestampMs >= start && smp.TimestampMs <= end
	}), nil
}

func (s *ReportSampleStore) filter(keep func(*domain.ReportSample) bool) []*domain.ReportSample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ReportSample
	for _, smp := range s.data {
		if keep(smp) {
			c := *smp
			result = append(result, &c)
		}
	}

	// Reported samples sort ahead of synthetic ones at the same timestamp.
	sort.Slice(result, func(i, j int) bool {
		if result[i].TimestampMs != result[j].TimestampMs {
			return result[i].TimestampMs < result[j].TimestampMs
		}
		return !result[i].Synthetic && result[j].Synthetic
	})
	return result
}
