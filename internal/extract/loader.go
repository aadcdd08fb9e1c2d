// Package extract loads the per-subject extraction artifacts produced by the
// recording-export stage and turns them into domain records ready for
// calibration and detection.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ephys-spike-lab/internal/domain"
)

// ErrNoSamples indicates an extracted file that parsed fine but carries no
// usable recordings.
var ErrNoSamples = errors.New("extracted subject contains no samples")

// SubjectFile mirrors the on-disk schema of <subject>_extracted.json.
type SubjectFile struct {
	Metadata SubjectHeader         `json:"subject_metadata"`
	Samples  map[string]*RawSample `json:"samples"`
}

// SubjectHeader carries the acquisition constants read from the recording
// headers. KHz is the sampling rate in kilohertz as the hardware reports it.
type SubjectHeader struct {
	BitResolution float64 `json:"BitResolution"`
	Gain          float64 `json:"Gain"`
	KHz           float64 `json:"KHz"`
}

// RawSample is one recording: the uncalibrated signal plus the annotations
// parsed from its filename (hemisphere side, trajectory, depth, file number).
type RawSample struct {
	RawSignal  []float64 `json:"raw_signal"`
	Side       string    `json:"side"`
	Trajectory int       `json:"trajectory"`
	Depth      float64   `json:"depth"`
	FileNumber int       `json:"file_number"`
}

// SamplingRateHz converts the header's KHz field to hertz.
func (h SubjectHeader) SamplingRateHz() float64 {
	return h.KHz * 1000
}

// Load reads and validates a <subject>_extracted.json file.
func Load(path string) (*SubjectFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read extracted file: %w", err)
	}

	var subject SubjectFile
	if err := json.Unmarshal(data, &subject); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	if err := subject.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", filepath.Base(path), err)
	}

	return &subject, nil
}

// Validate checks the acquisition constants and that at least one sample has
// signal data.
func (s *SubjectFile) Validate() error {
	if s.Metadata.KHz <= 0 {
		return fmt.Errorf("sampling rate must be positive, got %g KHz", s.Metadata.KHz)
	}
	if s.Metadata.BitResolution <= 0 {
		return fmt.Errorf("bit resolution must be positive, got %g", s.Metadata.BitResolution)
	}
	if s.Metadata.Gain <= 0 {
		return fmt.Errorf("gain must be positive, got %g", s.Metadata.Gain)
	}

	for name, sample := range s.Samples {
		if sample == nil || len(sample.RawSignal) == 0 {
			return fmt.Errorf("sample %s: %w", name, ErrNoSamples)
		}
	}
	if len(s.Samples) == 0 {
		return ErrNoSamples
	}
	return nil
}

// SubjectName derives the subject name from an extracted-file path:
// "Subject_1_extracted.json" -> "Subject_1".
func SubjectName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimSuffix(base, "_extracted")
}

// Info builds the domain-level sample annotations for one recording.
func (r *RawSample) Info(name string, rateHz float64) domain.SampleInfo {
	n := len(r.RawSignal)
	var duration float64
	if rateHz > 0 {
		duration = float64(n) / rateHz
	}
	return domain.SampleInfo{
		SampleName: name,
		Side:       r.Side,
		Trajectory: r.Trajectory,
		Depth:      r.Depth,
		FileNumber: r.FileNumber,
		DurationS:  duration,
		NumPoints:  n,
	}
}
