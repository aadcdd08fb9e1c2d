package domain

// SpikeEvent is one detected threshold-crossing segment reduced to its peak
// sample. Created by the detector; never mutated afterwards except to attach
// a waveform. Invariant: Index / samplingRate == TimeS.
type SpikeEvent struct {
	TimeS       float64   `json:"time_s"`
	AmplitudeMV float64   `json:"amplitude_mv"` // signed peak value, not absolute
	Index       int       `json:"index"`        // sample index into the source trace
	Waveform    []float64 `json:"waveform,omitempty"`
}

// WaveformMetadata describes the shared extraction window of a sample's
// waveforms. TimeAxisMs is identical for every waveform of the sample and
// is zero at the peak position.
type WaveformMetadata struct {
	TimeAxisMs []float64 `json:"time_axis_ms"`
	BeforeMs   float64   `json:"before_ms"`
	AfterMs    float64   `json:"after_ms"`
}

// SpikeDetectionParams is the provenance block stamped into subject metadata,
// recording the parameters that produced a spikes-detected artifact.
type SpikeDetectionParams struct {
	Method                  string  `json:"method"`
	NRMSMultiplier          float64 `json:"n_rms_multiplier"`
	RefractoryPeriodBeforeS float64 `json:"refractory_period_before_s"`
	RefractoryPeriodAfterS  float64 `json:"refractory_period_after_s"`
	WaveformBeforeMs        float64 `json:"waveform_before_ms"`
	WaveformAfterMs         float64 `json:"waveform_after_ms"`
}

// ParamsStamp builds the provenance block for a parameter set.
func ParamsStamp(p DetectionParams) *SpikeDetectionParams {
	return &SpikeDetectionParams{
		Method:                  p.Polarity.Method(),
		NRMSMultiplier:          p.RMSMultiplier,
		RefractoryPeriodBeforeS: p.RefractoryBeforeS,
		RefractoryPeriodAfterS:  p.RefractoryAfterS,
		WaveformBeforeMs:        p.WaveformBeforeMs,
		WaveformAfterMs:         p.WaveformAfterMs,
	}
}
