package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ephys-spike-lab/internal/domain"
	"ephys-spike-lab/internal/storage"
)

// SpikeEventStore is an in-memory implementation of storage.SpikeEventStore.
type SpikeEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.StoredSpike // keyed by (run_id, sample_name, index)
}

// NewSpikeEventStore creates a new in-memory spike event store.
func NewSpikeEventStore() *SpikeEventStore {
	return &SpikeEventStore{
		data: make(map[string]*domain.StoredSpike),
	}
}

func spikeKey(runID, sampleName string, index int) string {
	return fmt.Sprintf("%s|%s|%d", runID, sampleName, index)
}

// InsertBulk adds multiple spikes atomically. Fails entire batch on duplicate.
func (s *SpikeEventStore) InsertBulk(_ context.Context, spikes []*domain.StoredSpike) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before writing anything
	keys := make([]string, len(spikes))
	for i, spike := range spikes {
		if spike == nil || spike.RunID == "" || spike.SampleName == "" {
			return storage.ErrInvalidInput
		}
		key := spikeKey(spike.RunID, spike.SampleName, spike.Index)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		keys[i] = key
	}
	// Duplicates within the batch itself
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	for i, spike := range spikes {
		s.data[keys[i]] = copySpike(spike)
	}
	return nil
}

// GetByRun retrieves all spikes for a run, ordered by (sample_name, time_s) ASC.
func (s *SpikeEventStore) GetByRun(_ context.Context, runID string) ([]*domain.StoredSpike, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StoredSpike
	for _, spike := range s.data {
		if spike.RunID == runID {
			result = append(result, copySpike(spike))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].SampleName != result[j].SampleName {
			return result[i].SampleName < result[j].SampleName
		}
		return result[i].TimeS < result[j].TimeS
	})

	return result, nil
}

// GetBySample retrieves all spikes for one sample of a run, ordered by time_s ASC.
func (s *SpikeEventStore) GetBySample(_ context.Context, runID, sampleName string) ([]*domain.StoredSpike, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StoredSpike
	for _, spike := range s.data {
		if spike.RunID == runID && spike.SampleName == sampleName {
			result = append(result, copySpike(spike))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimeS < result[j].TimeS
	})

	return result, nil
}

// GetByTimeRange retrieves spikes for a sample within [start, end] seconds (inclusive).
func (s *SpikeEventStore) GetByTimeRange(_ context.Context, runID, sampleName string, start, end float64) ([]*domain.StoredSpike, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StoredSpike
	for _, spike := range s.data {
		if spike.RunID == runID && spike.SampleName == sampleName &&
			spike.TimeS >= start && spike.TimeS <= end {
			result = append(result, copySpike(spike))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimeS < result[j].TimeS
	})

	return result, nil
}

func copySpike(spike *domain.StoredSpike) *domain.StoredSpike {
	spikeCopy := *spike
	if spike.Waveform != nil {
		spikeCopy.Waveform = make([]float64, len(spike.Waveform))
		copy(spikeCopy.Waveform, spike.Waveform)
	}
	return &spikeCopy
}

// Verify interface compliance at compile time.
var _ storage.SpikeEventStore = (*SpikeEventStore)(nil)
