// Package reporting summarizes detection batches and indexed runs as
// Markdown and CSV for review alongside the JSON artifacts.
package reporting

import "time"

// Report is a batch detection summary.
type Report struct {
	GeneratedAt time.Time

	// Totals
	SubjectCount    int
	SampleCount     int
	SpikesRaw       int
	SpikesValidated int

	// Detection settings echoed for the reader
	Method           string
	RMSMultiplier    float64
	RefractoryWindow string

	// Per-run rows (sorted by subject_name)
	Runs []RunRow

	// Per-sample rows (sorted by subject_name, sample_name)
	Samples []SampleRow

	// Per-subject failures
	Errors []string
}

// RunRow summarizes one subject's detection run.
type RunRow struct {
	RunID       string
	SubjectName string
	FilterBand  string // "300-3000Hz" or "none"
	SampleCount int
	SpikeCount  int
}

// SampleRow summarizes one sample within a run.
type SampleRow struct {
	SubjectName     string
	SampleName      string
	SpikesRaw       int
	SpikesValidated int
	WaveformsKept   int
	DurationS       float64
	FiringRateHz    float64 // validated spikes over trace duration
	MeanAmplitudeMV float64 // mean peak amplitude of validated spikes
}
