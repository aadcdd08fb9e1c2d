// Package clickhouse stores validated spike events as an analytics
// timeseries: one row per spike with its waveform inline, queryable across
// many subjects and runs.
package clickhouse

import (
	"context"
	"fmt"

	"ephys-spike-lab/internal/domain"
	"ephys-spike-lab/internal/storage"
)

// SpikeEventStore implements storage.SpikeEventStore using ClickHouse.
// Waveforms are stored as Array(Float64) next to the event row.
type SpikeEventStore struct {
	conn *Conn
}

// NewSpikeEventStore creates a new SpikeEventStore.
func NewSpikeEventStore(conn *Conn) *SpikeEventStore {
	return &SpikeEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SpikeEventStore = (*SpikeEventStore)(nil)

// InsertBulk adds multiple spikes. Fails entire batch on duplicate
// (run_id, sample_name, sample_index). MergeTree does not enforce
// uniqueness, so duplicates are checked explicitly before the batch send.
func (s *SpikeEventStore) InsertBulk(ctx context.Context, spikes []*domain.StoredSpike) error {
	if len(spikes) == 0 {
		return nil
	}

	type key struct {
		runID      string
		sampleName string
		index      int
	}
	seen := make(map[key]struct{})
	for _, spike := range spikes {
		if spike == nil || spike.RunID == "" || spike.SampleName == "" {
			return storage.ErrInvalidInput
		}
		k := key{spike.RunID, spike.SampleName, spike.Index}
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, spike := range spikes {
		exists, err := s.exists(ctx, spike.RunID, spike.SampleName, spike.Index)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO spike_timeseries (
			run_id, sample_name, sample_index, time_s, amplitude_mv, waveform
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, spike := range spikes {
		waveform := spike.Waveform
		if waveform == nil {
			waveform = []float64{}
		}
		err = batch.Append(
			spike.RunID, spike.SampleName, uint64(spike.Index),
			spike.TimeS, spike.AmplitudeMV, waveform,
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

// GetByRun retrieves all spikes for a run, ordered by (sample_name, time_s) ASC.
func (s *SpikeEventStore) GetByRun(ctx context.Context, runID string) ([]*domain.StoredSpike, error) {
	query := `
		SELECT run_id, sample_name, sample_index, time_s, amplitude_mv, waveform
		FROM spike_timeseries
		WHERE run_id = ?
		ORDER BY sample_name ASC, time_s ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run: %w", err)
	}
	defer rows.Close()

	return scanSpikes(rows)
}

// GetBySample retrieves all spikes for one sample of a run, ordered by time_s ASC.
func (s *SpikeEventStore) GetBySample(ctx context.Context, runID, sampleName string) ([]*domain.StoredSpike, error) {
	query := `
		SELECT run_id, sample_name, sample_index, time_s, amplitude_mv, waveform
		FROM spike_timeseries
		WHERE run_id = ? AND sample_name = ?
		ORDER BY time_s ASC
	`

	rows, err := s.conn.Query(ctx, query, runID, sampleName)
	if err != nil {
		return nil, fmt.Errorf("query by sample: %w", err)
	}
	defer rows.Close()

	return scanSpikes(rows)
}

// GetByTimeRange retrieves spikes for a sample within [start, end] seconds (inclusive).
func (s *SpikeEventStore) GetByTimeRange(ctx context.Context, runID, sampleName string, start, end float64) ([]*domain.StoredSpike, error) {
	query := `
		SELECT run_id, sample_name, sample_index, time_s, amplitude_mv, waveform
		FROM spike_timeseries
		WHERE run_id = ? AND sample_name = ? AND time_s >= ? AND time_s <= ?
		ORDER BY time_s ASC
	`

	rows, err := s.conn.Query(ctx, query, runID, sampleName, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanSpikes(rows)
}

// exists checks if a spike with the given key exists.
func (s *SpikeEventStore) exists(ctx context.Context, runID, sampleName string, index int) (bool, error) {
	query := `
		SELECT count(*) FROM spike_timeseries
		WHERE run_id = ? AND sample_name = ? AND sample_index = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, runID, sampleName, uint64(index)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanSpikes scans multiple rows into a slice of StoredSpike.
func scanSpikes(rows chRows) ([]*domain.StoredSpike, error) {
	var spikes []*domain.StoredSpike

	for rows.Next() {
		var spike domain.StoredSpike
		var index uint64

		err := rows.Scan(
			&spike.RunID, &spike.SampleName, &index,
			&spike.TimeS, &spike.AmplitudeMV, &spike.Waveform,
		)
		if err != nil {
			return nil, fmt.Errorf("scan spike row: %w", err)
		}

		spike.Index = int(index)
		if len(spike.Waveform) == 0 {
			spike.Waveform = nil
		}
		spikes = append(spikes, &spike)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spike rows: %w", err)
	}

	return spikes, nil
}
