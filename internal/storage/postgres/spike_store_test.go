package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ephys-spike-lab/internal/domain"
	"ephys-spike-lab/internal/storage"
)

func TestSpikeEventStore_InsertBulkAndGetBySample(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSpikeEventStore(pool)

	spikes := []*domain.StoredSpike{
		{RunID: "r1", SampleName: "lt1d2.5f0001.mat", TimeS: 0.5, AmplitudeMV: -10, Index: 12000,
			Waveform: []float64{-1, -10, -2}},
		{RunID: "r1", SampleName: "lt1d2.5f0001.mat", TimeS: 0.1, AmplitudeMV: -8, Index: 2400},
	}

	err := store.InsertBulk(ctx, spikes)
	require.NoError(t, err)

	result, err := store.GetBySample(ctx, "r1", "lt1d2.5f0001.mat")
	require.NoError(t, err)

	require.Len(t, result, 2)
	assert.InDelta(t, 0.1, result[0].TimeS, 1e-12)
	assert.InDelta(t, 0.5, result[1].TimeS, 1e-12)
	assert.Nil(t, result[0].Waveform)
	assert.Equal(t, []float64{-1, -10, -2}, result[1].Waveform)
}

func TestSpikeEventStore_InsertBulkAtomic(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSpikeEventStore(pool)

	first := []*domain.StoredSpike{
		{RunID: "r1", SampleName: "a.mat", TimeS: 0.1, AmplitudeMV: -5, Index: 100},
	}
	require.NoError(t, store.InsertBulk(ctx, first))

	second := []*domain.StoredSpike{
		{RunID: "r1", SampleName: "a.mat", TimeS: 0.2, AmplitudeMV: -6, Index: 200},
		{RunID: "r1", SampleName: "a.mat", TimeS: 0.1, AmplitudeMV: -5, Index: 100}, // duplicate
	}
	err := store.InsertBulk(ctx, second)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Atomic rollback leaves only the first batch
	result, err := store.GetBySample(ctx, "r1", "a.mat")
	require.NoError(t, err)
	assert.Len(t, result, 1)
}

func TestSpikeEventStore_InsertBulkEmpty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSpikeEventStore(pool)
	require.NoError(t, store.InsertBulk(context.Background(), nil))
}

func TestSpikeEventStore_GetByRunOrdering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSpikeEventStore(pool)

	spikes := []*domain.StoredSpike{
		{RunID: "r1", SampleName: "b.mat", TimeS: 0.1, AmplitudeMV: -5, Index: 100},
		{RunID: "r1", SampleName: "a.mat", TimeS: 0.9, AmplitudeMV: -6, Index: 900},
		{RunID: "r1", SampleName: "a.mat", TimeS: 0.2, AmplitudeMV: -7, Index: 200},
		{RunID: "r2", SampleName: "a.mat", TimeS: 0.5, AmplitudeMV: -8, Index: 500},
	}
	require.NoError(t, store.InsertBulk(ctx, spikes))

	result, err := store.GetByRun(ctx, "r1")
	require.NoError(t, err)

	require.Len(t, result, 3)
	assert.Equal(t, "a.mat", result[0].SampleName)
	assert.InDelta(t, 0.2, result[0].TimeS, 1e-12)
	assert.Equal(t, "a.mat", result[1].SampleName)
	assert.InDelta(t, 0.9, result[1].TimeS, 1e-12)
	assert.Equal(t, "b.mat", result[2].SampleName)
}

func TestSpikeEventStore_GetByTimeRangeInclusive(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSpikeEventStore(pool)

	spikes := []*domain.StoredSpike{
		{RunID: "r1", SampleName: "a.mat", TimeS: 0.1, AmplitudeMV: -5, Index: 100},
		{RunID: "r1", SampleName: "a.mat", TimeS: 0.2, AmplitudeMV: -6, Index: 200},
		{RunID: "r1", SampleName: "a.mat", TimeS: 0.3, AmplitudeMV: -7, Index: 300},
	}
	require.NoError(t, store.InsertBulk(ctx, spikes))

	result, err := store.GetByTimeRange(ctx, "r1", "a.mat", 0.1, 0.2)
	require.NoError(t, err)

	require.Len(t, result, 2)
	assert.Equal(t, 100, result[0].Index)
	assert.Equal(t, 200, result[1].Index)
}
