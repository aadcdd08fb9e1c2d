// Package detect implements the spike detection engine: RMS-based
// thresholding, segment-to-peak reduction, greedy refractory suppression,
// and bounded waveform extraction. All functions are pure computations over
// in-memory traces; processing different traces concurrently is safe.
package detect

import (
	"math"
	"sort"

	"ephys-spike-lab/internal/domain"
)

// RMS computes the root-mean-square amplitude of a trace.
// An empty trace has RMS 0.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Detect locates spike candidates in a single trace.
//
// The threshold is multiplier * RMS(signal). Contiguous runs of
// supra-threshold samples are reduced to one event each: the sample with the
// largest absolute value (absolute polarity) or the most negative value
// (negative polarity), ties broken by first occurrence. A run of length one
// is its own peak; no minimum segment length is applied.
//
// Empty and all-zero traces yield no candidates. The returned list is
// sorted ascending by time.
func Detect(sig domain.Signal, multiplier float64, polarity domain.Polarity) []domain.SpikeEvent {
	samples := sig.Samples()
	if len(samples) == 0 {
		return nil
	}

	rms := RMS(samples)
	if rms == 0 {
		// Flat signal: no meaningful threshold.
		return nil
	}
	threshold := multiplier * rms

	crosses := func(v float64) bool {
		if polarity == domain.PolarityNegative {
			return v < -threshold
		}
		return math.Abs(v) > threshold
	}

	var events []domain.SpikeEvent
	for i := 0; i < len(samples); {
		if !crosses(samples[i]) {
			i++
			continue
		}

		// Maximal supra-threshold run starting at i.
		start := i
		for i < len(samples) && crosses(samples[i]) {
			i++
		}

		peak := start
		for j := start + 1; j < i; j++ {
			if betterPeak(samples[j], samples[peak], polarity) {
				peak = j
			}
		}

		events = append(events, domain.SpikeEvent{
			TimeS:       float64(peak) / sig.Rate(),
			AmplitudeMV: samples[peak],
			Index:       peak,
		})
	}

	// The left-to-right scan already yields ascending times, but the time
	// ordering is part of the contract, not an accident of scan order.
	sort.SliceStable(events, func(a, b int) bool {
		return events[a].TimeS < events[b].TimeS
	})

	return events
}

// betterPeak reports whether candidate v beats the current peak value.
// Strict comparison keeps the earliest sample on ties.
func betterPeak(v, peak float64, polarity domain.Polarity) bool {
	if polarity == domain.PolarityNegative {
		return v < peak
	}
	return math.Abs(v) > math.Abs(peak)
}
