package reporting

import (
	"strings"
	"testing"
	"time"

	"ephys-spike-lab/internal/domain"
	"ephys-spike-lab/internal/orchestrator"
)

func testParams() domain.DetectionParams {
	return domain.DetectionParams{
		RMSMultiplier:     4,
		Polarity:          domain.PolarityNegative,
		RefractoryBeforeS: 0.001,
		RefractoryAfterS:  0.002,
		WaveformBeforeMs:  2,
		WaveformAfterMs:   3,
	}
}

func testBatch() *orchestrator.RunResult {
	band := [2]float64{300, 3000}
	record := &domain.SubjectRecord{
		Metadata: domain.SubjectMetadata{
			SubjectName:  "Subject_1",
			SamplingRate: 1000,
		},
		Samples: map[string]*domain.SampleRecord{
			"b.mat": {
				SignalMV: make([]float64, 2000),
				SpikesRawDetected: []domain.SpikeEvent{
					{TimeS: 0.1, AmplitudeMV: -8, Index: 100},
					{TimeS: 0.5, AmplitudeMV: -6, Index: 500},
				},
				SpikesRefractoryFiltered: []domain.SpikeEvent{
					{TimeS: 0.1, AmplitudeMV: -8, Index: 100, Waveform: []float64{-1, -8, -1}},
					{TimeS: 0.5, AmplitudeMV: -6, Index: 500, Waveform: []float64{-1, -6, -1}},
				},
			},
			"a.mat": {
				SignalMV:                 make([]float64, 1000),
				SpikesRawDetected:        []domain.SpikeEvent{},
				SpikesRefractoryFiltered: []domain.SpikeEvent{},
			},
		},
	}

	return &orchestrator.RunResult{
		SubjectsProcessed: 1,
		SamplesProcessed:  2,
		SpikesValidated:   2,
		Subjects: []*orchestrator.ProcessedSubject{{
			InputPath:  "Subject_1_processed_300-3000Hz.json",
			OutputPath: "Subject_1_processed_300-3000Hz_spikes_detected.json",
			Run: &domain.DetectionRun{
				RunID:       "abc123def456789",
				SubjectName: "Subject_1",
				Params:      testParams(),
				FilterBand:  &band,
				SampleCount: 2,
				SpikeCount:  2,
			},
			Record: record,
			Result: &orchestrator.SubjectResult{
				SamplesProcessed: 2,
				SpikesRaw:        2,
				SpikesValidated:  2,
				WaveformsKept:    2,
			},
		}},
		Errors: []string{"Subject_9_processed.json: parse error"},
	}
}

func TestFromBatch(t *testing.T) {
	fixed := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	g := NewGenerator(testParams()).WithClock(func() time.Time { return fixed })

	report := g.FromBatch(testBatch())

	if report.GeneratedAt != fixed {
		t.Errorf("GeneratedAt = %v", report.GeneratedAt)
	}
	if report.SubjectCount != 1 || report.SampleCount != 2 {
		t.Errorf("Counts: %d subjects, %d samples", report.SubjectCount, report.SampleCount)
	}
	if report.Method != "rms_multiplier_neg" || report.RMSMultiplier != 4 {
		t.Errorf("Settings: %s, %g", report.Method, report.RMSMultiplier)
	}
	if report.SpikesRaw != 2 || report.SpikesValidated != 2 {
		t.Errorf("Spike totals: raw=%d validated=%d", report.SpikesRaw, report.SpikesValidated)
	}

	if len(report.Runs) != 1 {
		t.Fatalf("Expected 1 run row, got %d", len(report.Runs))
	}
	if report.Runs[0].FilterBand != "300-3000Hz" {
		t.Errorf("FilterBand = %s", report.Runs[0].FilterBand)
	}

	if len(report.Samples) != 2 {
		t.Fatalf("Expected 2 sample rows, got %d", len(report.Samples))
	}
	// Sorted by sample name within subject
	if report.Samples[0].SampleName != "a.mat" || report.Samples[1].SampleName != "b.mat" {
		t.Errorf("Wrong order: %s, %s", report.Samples[0].SampleName, report.Samples[1].SampleName)
	}

	b := report.Samples[1]
	if b.DurationS != 2 {
		t.Errorf("DurationS = %g, want 2", b.DurationS)
	}
	if b.FiringRateHz != 1 {
		t.Errorf("FiringRateHz = %g, want 1", b.FiringRateHz)
	}
	if b.MeanAmplitudeMV != -7 {
		t.Errorf("MeanAmplitudeMV = %g, want -7", b.MeanAmplitudeMV)
	}
	if b.WaveformsKept != 2 {
		t.Errorf("WaveformsKept = %d, want 2", b.WaveformsKept)
	}

	if len(report.Errors) != 1 {
		t.Errorf("Errors = %v", report.Errors)
	}
}

func TestRenderMarkdown(t *testing.T) {
	g := NewGenerator(testParams())
	md := RenderMarkdown(g.FromBatch(testBatch()))

	for _, want := range []string{
		"# Spike Detection Report",
		"| Method | rms_multiplier_neg |",
		"| Subject_1 | abc123def456 | 300-3000Hz | 2 | 2 |",
		"| Subject_1 | b.mat | 2 | 2 | 2 |",
		"## Failures",
		"Subject_9_processed.json",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown missing %q:\n%s", want, md)
		}
	}
}

func TestRenderMarkdown_Empty(t *testing.T) {
	g := NewGenerator(testParams())
	md := RenderMarkdown(g.FromBatch(&orchestrator.RunResult{}))

	if !strings.Contains(md, "No runs completed.") || !strings.Contains(md, "No samples processed.") {
		t.Errorf("Empty report missing placeholders:\n%s", md)
	}
	if strings.Contains(md, "## Failures") {
		t.Error("Empty report should not list failures")
	}
}

func TestRenderCSV(t *testing.T) {
	g := NewGenerator(testParams())
	report := g.FromBatch(testBatch())

	csv := RenderCSV(report.Samples)
	lines := strings.Split(strings.TrimRight(csv, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "subject_name,sample_name,") {
		t.Errorf("Bad header: %s", lines[0])
	}
	if !strings.HasPrefix(lines[2], "Subject_1,b.mat,2,2,2,2.000000,1.000000,-7.000000") {
		t.Errorf("Bad row: %s", lines[2])
	}
}
