package scoring

import (
	"context"
	"math"
	"sort"
)

// LocalScorer approximates unit quality without the external engine. It
// computes the spike SNR from the trace itself and leaves the model-based
// metrics unset. Useful for offline runs and smoke tests.
type LocalScorer struct{}

// NewLocalScorer returns a scorer that needs no external engine.
func NewLocalScorer() *LocalScorer {
	return &LocalScorer{}
}

// Score computes snr_ap as mean absolute spike amplitude over the robust
// noise estimate (median absolute deviation scaled to Gaussian sigma).
func (s *LocalScorer) Score(_ context.Context, signal []float64, spikeIndices []int) (*Scores, error) {
	if len(signal) == 0 || len(spikeIndices) == 0 {
		return &Scores{}, nil
	}

	var sumAmp float64
	n := 0
	for _, idx := range spikeIndices {
		if idx < 0 || idx >= len(signal) {
			continue
		}
		sumAmp += math.Abs(signal[idx])
		n++
	}
	if n == 0 {
		return &Scores{}, nil
	}

	noise := madSigma(signal)
	if noise == 0 {
		return &Scores{}, nil
	}

	snr := sumAmp / float64(n) / noise
	return &Scores{SNRAP: &snr}, nil
}

// Close is a no-op; the local scorer holds no resources.
func (s *LocalScorer) Close() error {
	return nil
}

// madSigma estimates the noise standard deviation as 1.4826 times the
// median absolute deviation, which is robust to the spikes themselves.
func madSigma(signal []float64) float64 {
	abs := make([]float64, len(signal))
	for i, v := range signal {
		abs[i] = math.Abs(v)
	}
	return 1.4826 * median(abs)
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
