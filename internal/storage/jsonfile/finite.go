package jsonfile

import (
	"errors"
	"fmt"
	"math"

	"ephys-spike-lab/internal/domain"
)

// ErrNonFinite indicates a NaN or Infinity reached the serialization
// boundary. These are always an upstream numeric bug, never valid output.
var ErrNonFinite = errors.New("non-finite value at serialization boundary")

// CheckFinite walks every numeric array of a subject record and reports the
// first non-finite value with the sample and array it was found in.
func CheckFinite(record *domain.SubjectRecord) error {
	for name, sample := range record.Samples {
		if sample == nil {
			continue
		}
		if err := checkArray(name, "signal_mv", sample.SignalMV); err != nil {
			return err
		}
		if err := checkArray(name, "filtered_signal", sample.FilteredSignal); err != nil {
			return err
		}
		if err := checkEvents(name, "spikes_raw_detected", sample.SpikesRawDetected); err != nil {
			return err
		}
		if err := checkEvents(name, "spikes_refractory_filtered", sample.SpikesRefractoryFiltered); err != nil {
			return err
		}
		if meta := sample.SpikeWaveformMetadata; meta != nil {
			if err := checkArray(name, "spike_waveform_metadata.time_axis_ms", meta.TimeAxisMs); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkEvents(sample, array string, events []domain.SpikeEvent) error {
	for i, ev := range events {
		if !isFinite(ev.TimeS) || !isFinite(ev.AmplitudeMV) {
			return fmt.Errorf("sample %s: %s[%d]: %w", sample, array, i, ErrNonFinite)
		}
		if err := checkArray(sample, fmt.Sprintf("%s[%d].waveform", array, i), ev.Waveform); err != nil {
			return err
		}
	}
	return nil
}

func checkArray(sample, array string, values []float64) error {
	for i, v := range values {
		if !isFinite(v) {
			return fmt.Errorf("sample %s: %s[%d]: %w", sample, array, i, ErrNonFinite)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
