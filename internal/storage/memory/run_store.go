package memory

import (
	"context"
	"sort"
	"sync"

	"ephys-spike-lab/internal/domain"
	"ephys-spike-lab/internal/storage"
)

// DetectionRunStore is an in-memory implementation of storage.DetectionRunStore.
type DetectionRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DetectionRun // keyed by run_id
}

// NewDetectionRunStore creates a new in-memory run store.
func NewDetectionRunStore() *DetectionRunStore {
	return &DetectionRunStore{
		data: make(map[string]*domain.DetectionRun),
	}
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *DetectionRunStore) Insert(_ context.Context, run *domain.DetectionRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	runCopy := *run
	s.data[run.RunID] = &runCopy
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *DetectionRunStore) GetByID(_ context.Context, runID string) (*domain.DetectionRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	runCopy := *run
	return &runCopy, nil
}

// GetBySubject retrieves all runs for a subject, ordered by created_at ASC.
func (s *DetectionRunStore) GetBySubject(_ context.Context, subjectName string) ([]*domain.DetectionRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DetectionRun
	for _, run := range s.data {
		if run.SubjectName == subjectName {
			runCopy := *run
			result = append(result, &runCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt < result[j].CreatedAt
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.DetectionRunStore = (*DetectionRunStore)(nil)
