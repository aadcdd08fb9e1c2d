package idhash

import (
	"testing"

	"ephys-spike-lab/internal/domain"
)

func TestComputeRunID(t *testing.T) {
	params := domain.DetectionParams{
		RMSMultiplier:     4,
		Polarity:          domain.PolarityNegative,
		RefractoryBeforeS: 0.001,
		RefractoryAfterS:  0.002,
		WaveformBeforeMs:  2,
		WaveformAfterMs:   3,
	}
	band := &[2]float64{300, 3000}

	got := ComputeRunID("Subject_1", params, band)
	if len(got) != 64 {
		t.Errorf("ComputeRunID() length = %d, want 64", len(got))
	}

	// Same inputs produce the same ID.
	if again := ComputeRunID("Subject_1", params, band); again != got {
		t.Error("ComputeRunID() is not deterministic")
	}

	// Any varying input changes the ID.
	if other := ComputeRunID("Subject_2", params, band); other == got {
		t.Error("Different subject should produce different run ID")
	}
	if other := ComputeRunID("Subject_1", params, nil); other == got {
		t.Error("Missing filter band should produce different run ID")
	}

	altParams := params
	altParams.Polarity = domain.PolarityAbsolute
	if other := ComputeRunID("Subject_1", altParams, band); other == got {
		t.Error("Different polarity should produce different run ID")
	}
}

func TestComputeSampleID(t *testing.T) {
	runID := "abc123"

	first := ComputeSampleID(runID, "lt1d2.5f0001.mat")
	second := ComputeSampleID(runID, "lt1d2.5f0001.mat")
	if first != second {
		t.Error("ComputeSampleID() is not deterministic")
	}
	if len(first) != 64 {
		t.Errorf("ComputeSampleID() length = %d, want 64", len(first))
	}

	if other := ComputeSampleID(runID, "rt1d2.5f0001.mat"); other == first {
		t.Error("Different sample should produce different sample ID")
	}
}
