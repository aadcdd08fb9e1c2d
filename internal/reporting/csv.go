package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the per-sample rows as CSV string.
func RenderCSV(samples []SampleRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("subject_name,sample_name,spikes_raw,spikes_validated,waveforms_kept,")
	sb.WriteString("duration_s,firing_rate_hz,mean_amplitude_mv\n")

	// Rows
	for _, s := range samples {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%d,%.6f,%.6f,%.6f\n",
			s.SubjectName,
			s.SampleName,
			s.SpikesRaw,
			s.SpikesValidated,
			s.WaveformsKept,
			s.DurationS,
			s.FiringRateHz,
			s.MeanAmplitudeMV,
		))
	}

	return sb.String()
}
