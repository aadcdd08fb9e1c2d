package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ephys-spike-lab/internal/domain"
	"ephys-spike-lab/internal/storage"
)

// DetectionRunStore implements storage.DetectionRunStore using PostgreSQL.
type DetectionRunStore struct {
	pool *Pool
}

// NewDetectionRunStore creates a new DetectionRunStore.
func NewDetectionRunStore(pool *Pool) *DetectionRunStore {
	return &DetectionRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DetectionRunStore = (*DetectionRunStore)(nil)

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *DetectionRunStore) Insert(ctx context.Context, run *domain.DetectionRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO detection_runs (
			run_id, subject_name, method, rms_multiplier,
			refractory_before_s, refractory_after_s,
			waveform_before_ms, waveform_after_ms,
			filter_low_hz, filter_high_hz,
			created_at, sample_count, spike_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var lowHz, highHz *float64
	if run.FilterBand != nil {
		lowHz, highHz = &run.FilterBand[0], &run.FilterBand[1]
	}

	_, err := s.pool.Exec(ctx, query,
		run.RunID,
		run.SubjectName,
		run.Params.Polarity.Method(),
		run.Params.RMSMultiplier,
		run.Params.RefractoryBeforeS,
		run.Params.RefractoryAfterS,
		run.Params.WaveformBeforeMs,
		run.Params.WaveformAfterMs,
		lowHz,
		highHz,
		run.CreatedAt,
		run.SampleCount,
		run.SpikeCount,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert detection run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *DetectionRunStore) GetByID(ctx context.Context, runID string) (*domain.DetectionRun, error) {
	query := `
		SELECT run_id, subject_name, method, rms_multiplier,
			refractory_before_s, refractory_after_s,
			waveform_before_ms, waveform_after_ms,
			filter_low_hz, filter_high_hz,
			created_at, sample_count, spike_count
		FROM detection_runs
		WHERE run_id = $1
	`

	row := s.pool.QueryRow(ctx, query, runID)
	run, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}
	return run, nil
}

// GetBySubject retrieves all runs for a subject, ordered by created_at ASC.
func (s *DetectionRunStore) GetBySubject(ctx context.Context, subjectName string) ([]*domain.DetectionRun, error) {
	query := `
		SELECT run_id, subject_name, method, rms_multiplier,
			refractory_before_s, refractory_after_s,
			waveform_before_ms, waveform_after_ms,
			filter_low_hz, filter_high_hz,
			created_at, sample_count, spike_count
		FROM detection_runs
		WHERE subject_name = $1
		ORDER BY created_at ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, subjectName)
	if err != nil {
		return nil, fmt.Errorf("get runs by subject: %w", err)
	}
	defer rows.Close()

	var runs []*domain.DetectionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// scanRun scans a single row into a DetectionRun.
func scanRun(row pgx.Row) (*domain.DetectionRun, error) {
	var run domain.DetectionRun
	var method string
	var lowHz, highHz *float64

	err := row.Scan(
		&run.RunID,
		&run.SubjectName,
		&method,
		&run.Params.RMSMultiplier,
		&run.Params.RefractoryBeforeS,
		&run.Params.RefractoryAfterS,
		&run.Params.WaveformBeforeMs,
		&run.Params.WaveformAfterMs,
		&lowHz,
		&highHz,
		&run.CreatedAt,
		&run.SampleCount,
		&run.SpikeCount,
	)
	if err != nil {
		return nil, err
	}

	polarity, err := domain.PolarityFromMethod(method)
	if err != nil {
		return nil, err
	}
	run.Params.Polarity = polarity

	if lowHz != nil && highHz != nil {
		run.FilterBand = &[2]float64{*lowHz, *highHz}
	}
	return &run, nil
}
