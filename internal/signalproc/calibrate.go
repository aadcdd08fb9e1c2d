// Package signalproc converts raw recordings to calibrated voltage traces
// and applies the optional zero-phase bandpass used before spike detection.
package signalproc

import "fmt"

// Calibration holds the per-subject conversion constants read from the
// recording headers.
type Calibration struct {
	BitResolution float64
	Gain          float64
}

// Validate reports whether the constants permit a conversion.
func (c Calibration) Validate() error {
	if c.BitResolution <= 0 {
		return fmt.Errorf("bit resolution must be positive, got %g", c.BitResolution)
	}
	if c.Gain <= 0 {
		return fmt.Errorf("gain must be positive, got %g", c.Gain)
	}
	return nil
}

// ToMillivolts converts raw integer counts to millivolts:
// mv = raw * bitResolution / gain. The input is not mutated.
func ToMillivolts(raw []float64, cal Calibration) []float64 {
	out := make([]float64, len(raw))
	scale := cal.BitResolution / cal.Gain
	for i, v := range raw {
		out[i] = v * scale
	}
	return out
}
