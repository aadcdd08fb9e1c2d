package orchestrator

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"ephys-spike-lab/internal/domain"
	"ephys-spike-lab/internal/storage/jsonfile"
)

func defaultParams() domain.DetectionParams {
	return domain.DetectionParams{
		RMSMultiplier:     4,
		Polarity:          domain.PolarityNegative,
		RefractoryBeforeS: 0.001,
		RefractoryAfterS:  0.002,
		WaveformBeforeMs:  2,
		WaveformAfterMs:   3,
	}
}

func newTestOrchestrator(t *testing.T, params domain.DetectionParams) *Orchestrator {
	t.Helper()
	store, err := jsonfile.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	o, err := New(Options{Store: store, Params: params})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return o
}

// spikeTrace builds a 1000-sample trace with a single -10 excursion at 500.
func spikeTrace() []float64 {
	trace := make([]float64, 1000)
	trace[500] = -10
	return trace
}

func subjectWith(rate float64, samples map[string]*domain.SampleRecord) *domain.SubjectRecord {
	return &domain.SubjectRecord{
		Metadata: domain.SubjectMetadata{
			SubjectName:  "Subject_1",
			SamplingRate: rate,
		},
		Samples: samples,
	}
}

func TestDetectSubject_SingleSpike(t *testing.T) {
	o := newTestOrchestrator(t, defaultParams())

	in := subjectWith(1000, map[string]*domain.SampleRecord{
		"a.mat": {SignalMV: spikeTrace()},
	})

	out, result, err := o.DetectSubject(context.Background(), in)
	if err != nil {
		t.Fatalf("DetectSubject failed: %v", err)
	}

	if result.SpikesRaw != 1 || result.SpikesValidated != 1 || result.WaveformsKept != 1 {
		t.Fatalf("Unexpected counts: %+v", result)
	}

	sample := out.Samples["a.mat"]
	ev := sample.SpikesRefractoryFiltered[0]
	if ev.Index != 500 || ev.TimeS != 0.5 || ev.AmplitudeMV != -10 {
		t.Errorf("Wrong event: %+v", ev)
	}
	// before_ms=2, after_ms=3 at 1000 Hz: 2+3+1 samples
	if len(ev.Waveform) != 6 {
		t.Errorf("Waveform length = %d, want 6", len(ev.Waveform))
	}
	meta := sample.SpikeWaveformMetadata
	if meta == nil || len(meta.TimeAxisMs) != 6 || meta.TimeAxisMs[2] != 0 {
		t.Errorf("Bad waveform metadata: %+v", meta)
	}
}

func TestDetectSubject_StampsParamsOnce(t *testing.T) {
	o := newTestOrchestrator(t, defaultParams())

	in := subjectWith(1000, map[string]*domain.SampleRecord{
		"a.mat": {SignalMV: spikeTrace()},
		"b.mat": {SignalMV: spikeTrace()},
	})

	out, _, err := o.DetectSubject(context.Background(), in)
	if err != nil {
		t.Fatalf("DetectSubject failed: %v", err)
	}

	stamp := out.Metadata.SpikeDetectionParams
	if stamp == nil {
		t.Fatal("Params not stamped into subject metadata")
	}
	if stamp.Method != "rms_multiplier_neg" || stamp.NRMSMultiplier != 4 {
		t.Errorf("Wrong stamp: %+v", stamp)
	}
	if in.Metadata.SpikeDetectionParams != nil {
		t.Error("Input record was mutated")
	}
}

func TestDetectSubject_PrefersFilteredTrace(t *testing.T) {
	o := newTestOrchestrator(t, defaultParams())

	// Raw trace has a spike at 500, filtered trace at 300. The filtered
	// trace must win.
	filtered := make([]float64, 1000)
	filtered[300] = -10

	in := subjectWith(1000, map[string]*domain.SampleRecord{
		"a.mat": {SignalMV: spikeTrace(), FilteredSignal: filtered},
	})

	out, _, err := o.DetectSubject(context.Background(), in)
	if err != nil {
		t.Fatalf("DetectSubject failed: %v", err)
	}

	events := out.Samples["a.mat"].SpikesRefractoryFiltered
	if len(events) != 1 || events[0].Index != 300 {
		t.Errorf("Expected event at 300 from filtered trace, got %+v", events)
	}
}

func TestDetectSubject_InvalidSamplingRate(t *testing.T) {
	o := newTestOrchestrator(t, defaultParams())

	in := subjectWith(0, map[string]*domain.SampleRecord{
		"a.mat": {SignalMV: spikeTrace()},
	})

	_, _, err := o.DetectSubject(context.Background(), in)
	if !errors.Is(err, domain.ErrInvalidSamplingRate) {
		t.Errorf("Expected ErrInvalidSamplingRate, got %v", err)
	}
}

func TestDetectSubject_EmptyTraceIsolated(t *testing.T) {
	o := newTestOrchestrator(t, defaultParams())

	in := subjectWith(1000, map[string]*domain.SampleRecord{
		"empty.mat": {SignalMV: nil},
		"good.mat":  {SignalMV: spikeTrace()},
	})

	out, result, err := o.DetectSubject(context.Background(), in)
	if err != nil {
		t.Fatalf("DetectSubject failed: %v", err)
	}

	// The degenerate trace yields empty lists, the sibling still processes
	empty := out.Samples["empty.mat"]
	if len(empty.SpikesRawDetected) != 0 || len(empty.SpikesRefractoryFiltered) != 0 {
		t.Error("Empty trace should yield empty event lists")
	}
	if empty.SpikesRawDetected == nil || empty.SpikesRefractoryFiltered == nil {
		t.Error("Event lists must be empty, not nil, so keys always serialize")
	}
	if len(out.Samples["good.mat"].SpikesRefractoryFiltered) != 1 {
		t.Error("Sibling trace should still be processed")
	}
	if len(result.Warnings) != 1 {
		t.Errorf("Expected 1 warning, got %v", result.Warnings)
	}
}

func TestDetectSubject_AllZeroTrace(t *testing.T) {
	o := newTestOrchestrator(t, defaultParams())

	in := subjectWith(1000, map[string]*domain.SampleRecord{
		"flat.mat": {SignalMV: make([]float64, 1000)},
	})

	out, result, err := o.DetectSubject(context.Background(), in)
	if err != nil {
		t.Fatalf("DetectSubject failed: %v", err)
	}
	if len(out.Samples["flat.mat"].SpikesRawDetected) != 0 {
		t.Error("Zero-RMS trace must yield no events")
	}
	// Degenerate, not an error: no warning either, the trace was processed
	if result.SamplesProcessed != 1 {
		t.Errorf("SamplesProcessed = %d", result.SamplesProcessed)
	}
}

func TestDetectSubject_RefractoryScenarios(t *testing.T) {
	o := newTestOrchestrator(t, defaultParams())

	// Two excursions 0.0005 s apart at 10 kHz: 5 samples. Second rejected.
	closeTrace := make([]float64, 10000)
	closeTrace[5000] = -10
	closeTrace[5005] = -10

	// Two excursions 0.01 s apart: 100 samples. Both accepted.
	farTrace := make([]float64, 10000)
	farTrace[5000] = -10
	farTrace[5100] = -10

	in := &domain.SubjectRecord{
		Metadata: domain.SubjectMetadata{SubjectName: "Subject_1", SamplingRate: 10000},
		Samples: map[string]*domain.SampleRecord{
			"close.mat": {SignalMV: closeTrace},
			"far.mat":   {SignalMV: farTrace},
		},
	}

	out, _, err := o.DetectSubject(context.Background(), in)
	if err != nil {
		t.Fatalf("DetectSubject failed: %v", err)
	}

	if n := len(out.Samples["close.mat"].SpikesRefractoryFiltered); n != 1 {
		t.Errorf("Close pair: expected 1 validated spike, got %d", n)
	}
	if n := len(out.Samples["close.mat"].SpikesRawDetected); n != 2 {
		t.Errorf("Close pair: expected 2 raw spikes, got %d", n)
	}
	if n := len(out.Samples["far.mat"].SpikesRefractoryFiltered); n != 2 {
		t.Errorf("Far pair: expected 2 validated spikes, got %d", n)
	}
}

func TestDetectSubject_Idempotent(t *testing.T) {
	o := newTestOrchestrator(t, defaultParams())

	in := subjectWith(1000, map[string]*domain.SampleRecord{
		"a.mat": {SignalMV: spikeTrace()},
	})

	first, _, err := o.DetectSubject(context.Background(), in)
	if err != nil {
		t.Fatalf("First pass failed: %v", err)
	}
	second, _, err := o.DetectSubject(context.Background(), in)
	if err != nil {
		t.Fatalf("Second pass failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("Two passes over the same input produced different records")
	}
}

func TestFlattenSpikes(t *testing.T) {
	record := &domain.SubjectRecord{
		Samples: map[string]*domain.SampleRecord{
			"b.mat": {SpikesRefractoryFiltered: []domain.SpikeEvent{
				{TimeS: 0.1, AmplitudeMV: -5, Index: 100},
			}},
			"a.mat": {SpikesRefractoryFiltered: []domain.SpikeEvent{
				{TimeS: 0.2, AmplitudeMV: -6, Index: 200, Waveform: []float64{-1, -6, -2}},
			}},
		},
	}

	spikes := FlattenSpikes("run1", record)
	if len(spikes) != 2 {
		t.Fatalf("Expected 2 spikes, got %d", len(spikes))
	}
	// Sample names in sorted order
	if spikes[0].SampleName != "a.mat" || spikes[1].SampleName != "b.mat" {
		t.Errorf("Wrong order: %s, %s", spikes[0].SampleName, spikes[1].SampleName)
	}
	if spikes[0].RunID != "run1" || len(spikes[0].Waveform) != 3 {
		t.Errorf("Spike fields not carried: %+v", spikes[0])
	}
}
