package signalproc

import (
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// DefaultFilterOrder matches the order-4 Butterworth used by the upstream
// processing stage.
const DefaultFilterOrder = 4

// Bandpass applies a zero-phase Butterworth bandpass to a trace.
//
// The band is realized as a highpass-at-low plus lowpass-at-high cascade,
// run forward and then backward over the trace so the phase response
// cancels and peaks stay where they are, which matters because spike times
// are read off sample indices downstream.
func Bandpass(signal []float64, sampleRate, lowHz, highHz float64, order int) ([]float64, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %g", sampleRate)
	}
	if lowHz <= 0 || highHz <= lowHz {
		return nil, fmt.Errorf("invalid band %g-%g Hz: need 0 < low < high", lowHz, highHz)
	}
	if nyquist := sampleRate / 2; highHz >= nyquist {
		return nil, fmt.Errorf("high cutoff %g Hz must stay below nyquist %g Hz", highHz, nyquist)
	}
	if order <= 0 {
		order = DefaultFilterOrder
	}
	if len(signal) == 0 {
		return nil, nil
	}

	coeffs := append(
		design.ButterworthHP(lowHz, order, sampleRate),
		design.ButterworthLP(highHz, order, sampleRate)...,
	)

	out := make([]float64, len(signal))
	copy(out, signal)

	chain := biquad.NewChain(coeffs)
	chain.ProcessBlock(out)

	// Backward pass with fresh state cancels the forward phase shift.
	reverse(out)
	chain.Reset()
	chain.ProcessBlock(out)
	reverse(out)

	return out, nil
}

func reverse(buf []float64) {
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
}
