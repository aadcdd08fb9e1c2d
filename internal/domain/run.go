package domain

// DetectionRun records one detection pass over a subject: the parameter set,
// the applied filter band, and summary counts. RunID is deterministic for a
// given subject and parameter set.
type DetectionRun struct {
	RunID       string          `json:"run_id"`
	SubjectName string          `json:"subject_name"`
	Params      DetectionParams `json:"params"`
	FilterBand  *[2]float64     `json:"filter_band"`
	CreatedAt   int64           `json:"created_at"` // unix seconds
	SampleCount int             `json:"sample_count"`
	SpikeCount  int             `json:"spike_count"`
}

// StoredSpike is one validated spike event flattened for the durable stores:
// the event fields plus the run and sample it belongs to.
type StoredSpike struct {
	RunID       string    `json:"run_id"`
	SampleName  string    `json:"sample_name"`
	TimeS       float64   `json:"time_s"`
	AmplitudeMV float64   `json:"amplitude_mv"`
	Index       int       `json:"index"`
	Waveform    []float64 `json:"waveform,omitempty"`
}
