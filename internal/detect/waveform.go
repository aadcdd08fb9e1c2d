package detect

import (
	"math"

	"ephys-spike-lab/internal/domain"
)

// WaveformSet holds the fixed-width waveforms extracted around a sample's
// validated events, plus the time axis shared by all of them.
type WaveformSet struct {
	// Waveforms are the extracted windows, one per kept event, in the same
	// relative order as the source events. Every waveform has the same length.
	Waveforms [][]float64
	// TimeAxisMs maps waveform positions to milliseconds relative to the
	// peak; TimeAxisMs[samplesBefore] == 0.
	TimeAxisMs []float64
	// KeptIndices records the sample index of each event that produced a
	// waveform, for callers needing to re-associate.
	KeptIndices []int
}

// WindowSamples converts millisecond window extents to sample counts,
// flooring as the source system does.
func WindowSamples(rate, beforeMs, afterMs float64) (before, after int) {
	before = int(math.Floor(beforeMs * rate / 1000))
	after = int(math.Floor(afterMs * rate / 1000))
	return before, after
}

// ExtractWaveforms slices a window of samplesBefore+samplesAfter+1 samples
// around each event's peak. Events whose window would cross a trace boundary
// produce no waveform but remain valid events; KeptIndices identifies the
// events that did produce one.
func ExtractWaveforms(sig domain.Signal, events []domain.SpikeEvent, beforeMs, afterMs float64) WaveformSet {
	nb, na := WindowSamples(sig.Rate(), beforeMs, afterMs)
	length := nb + na + 1

	axis := make([]float64, length)
	for j := range axis {
		axis[j] = float64(j-nb) * 1000 / sig.Rate()
	}

	set := WaveformSet{TimeAxisMs: axis}
	samples := sig.Samples()

	for _, ev := range events {
		idx := ev.Index
		if idx < nb || idx+na >= len(samples) {
			continue
		}
		wf := make([]float64, length)
		copy(wf, samples[idx-nb:idx+na+1])
		set.Waveforms = append(set.Waveforms, wf)
		set.KeptIndices = append(set.KeptIndices, idx)
	}

	return set
}

// AttachWaveforms returns a new event slice with each extracted waveform
// attached to its source event. Input events are not mutated.
func AttachWaveforms(events []domain.SpikeEvent, set WaveformSet) []domain.SpikeEvent {
	out := make([]domain.SpikeEvent, len(events))
	copy(out, events)

	k := 0
	for i := range out {
		if k < len(set.KeptIndices) && out[i].Index == set.KeptIndices[k] {
			out[i].Waveform = set.Waveforms[k]
			k++
		}
	}
	return out
}
