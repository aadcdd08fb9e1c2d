package domain

import "fmt"

// Polarity selects which threshold excursions count as spike candidates.
type Polarity string

const (
	// PolarityAbsolute thresholds on |signal| > threshold.
	PolarityAbsolute Polarity = "absolute"
	// PolarityNegative thresholds on signal < -threshold only.
	PolarityNegative Polarity = "negative"
)

// String returns the string representation of Polarity.
func (p Polarity) String() string {
	return string(p)
}

// IsValid checks if the polarity is a valid value.
func (p Polarity) IsValid() bool {
	return p == PolarityAbsolute || p == PolarityNegative
}

// Method returns the provenance method name recorded in output metadata.
func (p Polarity) Method() string {
	if p == PolarityNegative {
		return "rms_multiplier_neg"
	}
	return "rms_multiplier_abs"
}

// PolarityFromMethod maps a recorded method name back to its polarity.
func PolarityFromMethod(method string) (Polarity, error) {
	switch method {
	case "rms_multiplier_neg":
		return PolarityNegative, nil
	case "rms_multiplier_abs":
		return PolarityAbsolute, nil
	}
	return "", fmt.Errorf("unknown detection method %q", method)
}

// DetectionParams holds one run's spike-detection configuration.
// A value is immutable once validated; the same engine can serve multiple
// configurations concurrently because nothing here is global state.
type DetectionParams struct {
	RMSMultiplier     float64  // threshold = multiplier * RMS, > 0
	Polarity          Polarity // excursion polarity, required
	RefractoryBeforeS float64  // exclusion window extent before a peak, >= 0
	RefractoryAfterS  float64  // exclusion window extent after a peak, >= 0
	WaveformBeforeMs  float64  // waveform window extent before a peak, >= 0
	WaveformAfterMs   float64  // waveform window extent after a peak, >= 0
}

// Validate reports the first invalid field, if any.
func (p DetectionParams) Validate() error {
	if p.RMSMultiplier <= 0 {
		return fmt.Errorf("rms multiplier must be positive, got %g", p.RMSMultiplier)
	}
	if !p.Polarity.IsValid() {
		return fmt.Errorf("invalid polarity %q", p.Polarity)
	}
	if p.RefractoryBeforeS < 0 || p.RefractoryAfterS < 0 {
		return fmt.Errorf("refractory windows must be non-negative, got before=%g after=%g",
			p.RefractoryBeforeS, p.RefractoryAfterS)
	}
	if p.WaveformBeforeMs < 0 || p.WaveformAfterMs < 0 {
		return fmt.Errorf("waveform windows must be non-negative, got before=%g after=%g",
			p.WaveformBeforeMs, p.WaveformAfterMs)
	}
	return nil
}
