package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ephys-spike-lab/internal/domain"
	"ephys-spike-lab/internal/storage"
)

// SpikeEventStore implements storage.SpikeEventStore using PostgreSQL.
// Waveforms are stored inline as float8 arrays.
type SpikeEventStore struct {
	pool *Pool
}

// NewSpikeEventStore creates a new SpikeEventStore.
func NewSpikeEventStore(pool *Pool) *SpikeEventStore {
	return &SpikeEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SpikeEventStore = (*SpikeEventStore)(nil)

const spikeColumns = `run_id, sample_name, sample_index, time_s, amplitude_mv, waveform`

// InsertBulk adds multiple spikes atomically inside one transaction.
// Fails entire batch on duplicate (run_id, sample_name, sample_index).
func (s *SpikeEventStore) InsertBulk(ctx context.Context, spikes []*domain.StoredSpike) error {
	if len(spikes) == 0 {
		return nil
	}
	for _, spike := range spikes {
		if spike == nil || spike.RunID == "" || spike.SampleName == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin spike insert: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO spike_events (` + spikeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, spike := range spikes {
		_, err := tx.Exec(ctx, query,
			spike.RunID,
			spike.SampleName,
			spike.Index,
			spike.TimeS,
			spike.AmplitudeMV,
			spike.Waveform,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert spike: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit spike insert: %w", err)
	}
	return nil
}

// GetByRun retrieves all spikes for a run, ordered by (sample_name, time_s) ASC.
func (s *SpikeEventStore) GetByRun(ctx context.Context, runID string) ([]*domain.StoredSpike, error) {
	query := `
		SELECT ` + spikeColumns + `
		FROM spike_events
		WHERE run_id = $1
		ORDER BY sample_name ASC, time_s ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get spikes by run: %w", err)
	}
	defer rows.Close()

	return scanSpikes(rows)
}

// GetBySample retrieves all spikes for one sample of a run, ordered by time_s ASC.
func (s *SpikeEventStore) GetBySample(ctx context.Context, runID, sampleName string) ([]*domain.StoredSpike, error) {
	query := `
		SELECT ` + spikeColumns + `
		FROM spike_events
		WHERE run_id = $1 AND sample_name = $2
		ORDER BY time_s ASC
	`

	rows, err := s.pool.Query(ctx, query, runID, sampleName)
	if err != nil {
		return nil, fmt.Errorf("get spikes by sample: %w", err)
	}
	defer rows.Close()

	return scanSpikes(rows)
}

// GetByTimeRange retrieves spikes for a sample within [start, end] seconds (inclusive).
func (s *SpikeEventStore) GetByTimeRange(ctx context.Context, runID, sampleName string, start, end float64) ([]*domain.StoredSpike, error) {
	query := `
		SELECT ` + spikeColumns + `
		FROM spike_events
		WHERE run_id = $1 AND sample_name = $2 AND time_s >= $3 AND time_s <= $4
		ORDER BY time_s ASC
	`

	rows, err := s.pool.Query(ctx, query, runID, sampleName, start, end)
	if err != nil {
		return nil, fmt.Errorf("get spikes by time range: %w", err)
	}
	defer rows.Close()

	return scanSpikes(rows)
}

// scanSpikes scans multiple rows into a slice of StoredSpike.
func scanSpikes(rows pgx.Rows) ([]*domain.StoredSpike, error) {
	var spikes []*domain.StoredSpike

	for rows.Next() {
		var spike domain.StoredSpike
		err := rows.Scan(
			&spike.RunID,
			&spike.SampleName,
			&spike.Index,
			&spike.TimeS,
			&spike.AmplitudeMV,
			&spike.Waveform,
		)
		if err != nil {
			return nil, fmt.Errorf("scan spike row: %w", err)
		}
		spikes = append(spikes, &spike)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spike rows: %w", err)
	}
	return spikes, nil
}
