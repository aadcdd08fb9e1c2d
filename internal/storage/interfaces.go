package storage

import (
	"context"

	"ephys-spike-lab/internal/domain"
)

// DetectionRunStore provides access to detection_runs storage.
type DetectionRunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.DetectionRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.DetectionRun, error)

	// GetBySubject retrieves all runs for a subject, ordered by created_at ASC.
	GetBySubject(ctx context.Context, subjectName string) ([]*domain.DetectionRun, error)
}

// SpikeEventStore provides access to spike_events storage.
type SpikeEventStore interface {
	// InsertBulk adds multiple spikes atomically. Fails entire batch on
	// duplicate (run_id, sample_name, index).
	InsertBulk(ctx context.Context, spikes []*domain.StoredSpike) error

	// GetByRun retrieves all spikes for a run, ordered by (sample_name, time_s) ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.StoredSpike, error)

	// GetBySample retrieves all spikes for one sample of a run, ordered by time_s ASC.
	GetBySample(ctx context.Context, runID, sampleName string) ([]*domain.StoredSpike, error)

	// GetByTimeRange retrieves spikes for a sample within [start, end] seconds (inclusive).
	GetByTimeRange(ctx context.Context, runID, sampleName string, start, end float64) ([]*domain.StoredSpike, error)
}
