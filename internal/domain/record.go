package domain

// SampleInfo carries the per-sample annotations parsed from recording
// filenames during extraction.
type SampleInfo struct {
	SampleName string  `json:"sample_name"`
	Side       string  `json:"side,omitempty"` // "lt" or "rt"
	Trajectory int     `json:"trajectory,omitempty"`
	Depth      float64 `json:"depth,omitempty"` // recording depth
	FileNumber int     `json:"file_number,omitempty"`
	DurationS  float64 `json:"duration"`
	NumPoints  int     `json:"num_points"`
}

// SampleRecord owns one trace and, after a detection pass, its two event
// lists and waveform metadata. Raw-detected events are a superset of the
// refractory-filtered ones.
type SampleRecord struct {
	SignalMV       []float64  `json:"signal_mv"`
	FilteredSignal []float64  `json:"filtered_signal"`
	Info           SampleInfo `json:"metadata"`

	// Populated by a detection pass. Always serialized together so consumers
	// can rely on the keys being present; the metadata block is null when no
	// waveform could be extracted.
	SpikesRawDetected        []SpikeEvent      `json:"spikes_raw_detected"`
	SpikesRefractoryFiltered []SpikeEvent      `json:"spikes_refractory_filtered"`
	SpikeWaveformMetadata    *WaveformMetadata `json:"spike_waveform_metadata"`
}

// Trace selects the signal to analyze: the filtered trace when present and
// non-empty, otherwise the calibrated one.
func (s *SampleRecord) Trace() []float64 {
	if len(s.FilteredSignal) > 0 {
		return s.FilteredSignal
	}
	return s.SignalMV
}

// SubjectMetadata is subject-level provenance: calibration constants,
// sampling rate, the applied filter band, and, after detection, the
// parameter stamp.
type SubjectMetadata struct {
	SubjectName   string      `json:"subject_name"`
	SamplingRate  float64     `json:"sampling_rate"` // Hz
	BitResolution float64     `json:"bit_resolution,omitempty"`
	Gain          float64     `json:"gain,omitempty"`
	FilterBand    *[2]float64 `json:"filter_band"` // (low, high) Hz, nil when unfiltered

	SpikeDetectionParams *SpikeDetectionParams `json:"spike_detection_params,omitempty"`
}

// SubjectRecord maps sample names to their records plus subject metadata.
// One record exists per subject per processing run; runs are never merged.
type SubjectRecord struct {
	Metadata SubjectMetadata          `json:"subject_metadata"`
	Samples  map[string]*SampleRecord `json:"samples"`
}

// SampleNames returns the sample names in unspecified order.
func (r *SubjectRecord) SampleNames() []string {
	names := make([]string, 0, len(r.Samples))
	for name := range r.Samples {
		names = append(names, name)
	}
	return names
}
