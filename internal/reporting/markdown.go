package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Spike Detection Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Subjects: %d | Samples: %d\n\n", r.SubjectCount, r.SampleCount))

	// Detection settings
	sb.WriteString("## Detection Settings\n\n")
	sb.WriteString("| Setting | Value |\n")
	sb.WriteString("|---------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Method | %s |\n", r.Method))
	sb.WriteString(fmt.Sprintf("| RMS Multiplier | %g |\n", r.RMSMultiplier))
	sb.WriteString(fmt.Sprintf("| Refractory Window | %s |\n", r.RefractoryWindow))
	sb.WriteString(fmt.Sprintf("| Raw Spikes | %d |\n", r.SpikesRaw))
	sb.WriteString(fmt.Sprintf("| Validated Spikes | %d |\n", r.SpikesValidated))
	sb.WriteString("\n")

	// Runs
	sb.WriteString("## Runs\n\n")
	if len(r.Runs) > 0 {
		sb.WriteString("| Subject | Run ID | Band | Samples | Spikes |\n")
		sb.WriteString("|---------|--------|------|---------|--------|\n")
		for _, run := range r.Runs {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %d |\n",
				run.SubjectName, shortID(run.RunID), run.FilterBand,
				run.SampleCount, run.SpikeCount))
		}
	} else {
		sb.WriteString("No runs completed.\n")
	}
	sb.WriteString("\n")

	// Per-sample table
	sb.WriteString("## Samples\n\n")
	if len(r.Samples) > 0 {
		sb.WriteString("| Subject | Sample | Raw | Validated | Waveforms | Duration (s) | Rate (Hz) | Mean Amp (mV) |\n")
		sb.WriteString("|---------|--------|-----|-----------|-----------|--------------|-----------|---------------|\n")
		for _, s := range r.Samples {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %.2f | %.3f | %.3f |\n",
				s.SubjectName, s.SampleName, s.SpikesRaw, s.SpikesValidated,
				s.WaveformsKept, s.DurationS, s.FiringRateHz, s.MeanAmplitudeMV))
		}
	} else {
		sb.WriteString("No samples processed.\n")
	}
	sb.WriteString("\n")

	// Failures
	if len(r.Errors) > 0 {
		sb.WriteString("## Failures\n\n")
		for _, err := range r.Errors {
			sb.WriteString(fmt.Sprintf("- %s\n", err))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// shortID keeps run tables readable; the full ID lives in the stores.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
