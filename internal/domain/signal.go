package domain

import "errors"

// ErrInvalidSamplingRate is returned when a signal is constructed with a
// non-positive sampling rate.
var ErrInvalidSamplingRate = errors.New("sampling rate must be positive")

// Signal is an immutable 1-D voltage trace with its sampling rate.
// Samples are in physical units (millivolts after calibration).
type Signal struct {
	samples []float64
	rate    float64 // Hz
}

// NewSignal creates a Signal. The sampling rate must be positive; an empty
// sample slice is valid and represents a degenerate trace.
// The slice is not copied: callers hand over ownership.
func NewSignal(samples []float64, rate float64) (Signal, error) {
	if rate <= 0 {
		return Signal{}, ErrInvalidSamplingRate
	}
	return Signal{samples: samples, rate: rate}, nil
}

// Samples returns the underlying sample slice. Callers must not mutate it.
func (s Signal) Samples() []float64 {
	return s.samples
}

// Rate returns the sampling rate in Hz.
func (s Signal) Rate() float64 {
	return s.rate
}

// Len returns the number of samples.
func (s Signal) Len() int {
	return len(s.samples)
}

// DurationS returns the trace duration in seconds.
func (s Signal) DurationS() float64 {
	return float64(len(s.samples)) / s.rate
}
