package reporting

import (
	"fmt"
	"sort"
	"time"

	"ephys-spike-lab/internal/domain"
	"ephys-spike-lab/internal/orchestrator"
)

// Generator builds reports from batch results.
type Generator struct {
	params domain.DetectionParams
	now    func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator for runs using params.
func NewGenerator(params domain.DetectionParams) *Generator {
	return &Generator{
		params: params,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// FromBatch summarizes one batch run.
func (g *Generator) FromBatch(result *orchestrator.RunResult) *Report {
	report := &Report{
		GeneratedAt:   g.now(),
		SubjectCount:  result.SubjectsProcessed,
		SampleCount:   result.SamplesProcessed,
		Method:        g.params.Polarity.Method(),
		RMSMultiplier: g.params.RMSMultiplier,
		RefractoryWindow: fmt.Sprintf("-%g/+%g ms",
			g.params.RefractoryBeforeS*1000, g.params.RefractoryAfterS*1000),
		Errors: append([]string(nil), result.Errors...),
	}

	for _, subject := range result.Subjects {
		report.SpikesRaw += subject.Result.SpikesRaw
		report.SpikesValidated += subject.Result.SpikesValidated

		report.Runs = append(report.Runs, RunRow{
			RunID:       subject.Run.RunID,
			SubjectName: subject.Run.SubjectName,
			FilterBand:  formatBand(subject.Run.FilterBand),
			SampleCount: subject.Run.SampleCount,
			SpikeCount:  subject.Run.SpikeCount,
		})

		report.Samples = append(report.Samples,
			sampleRows(subject.Run.SubjectName, subject.Record)...)
	}

	sort.Slice(report.Runs, func(i, j int) bool {
		return report.Runs[i].SubjectName < report.Runs[j].SubjectName
	})
	sort.Slice(report.Samples, func(i, j int) bool {
		if report.Samples[i].SubjectName != report.Samples[j].SubjectName {
			return report.Samples[i].SubjectName < report.Samples[j].SubjectName
		}
		return report.Samples[i].SampleName < report.Samples[j].SampleName
	})

	return report
}

// sampleRows derives the per-sample statistics from a detection record.
func sampleRows(subjectName string, record *domain.SubjectRecord) []SampleRow {
	rate := record.Metadata.SamplingRate

	var rows []SampleRow
	for name, sample := range record.Samples {
		if sample == nil {
			continue
		}

		row := SampleRow{
			SubjectName:     subjectName,
			SampleName:      name,
			SpikesRaw:       len(sample.SpikesRawDetected),
			SpikesValidated: len(sample.SpikesRefractoryFiltered),
		}

		if rate > 0 {
			row.DurationS = float64(len(sample.Trace())) / rate
		}
		if row.DurationS > 0 {
			row.FiringRateHz = float64(row.SpikesValidated) / row.DurationS
		}

		var sumAmp float64
		for _, ev := range sample.SpikesRefractoryFiltered {
			sumAmp += ev.AmplitudeMV
			if ev.Waveform != nil {
				row.WaveformsKept++
			}
		}
		if row.SpikesValidated > 0 {
			row.MeanAmplitudeMV = sumAmp / float64(row.SpikesValidated)
		}

		rows = append(rows, row)
	}
	return rows
}

func formatBand(band *[2]float64) string {
	if band == nil {
		return "none"
	}
	return fmt.Sprintf("%g-%gHz", band[0], band[1])
}
