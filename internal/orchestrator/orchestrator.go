// Package orchestrator coordinates detection passes over subjects.
// Flow per sample: trace selection → detection → refractory filtering →
// waveform extraction; subjects and traces fan out across workers.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"ephys-spike-lab/internal/detect"
	"ephys-spike-lab/internal/domain"
	"ephys-spike-lab/internal/storage"
	"ephys-spike-lab/internal/storage/jsonfile"
)

// Orchestrator runs spike detection over subject records and persists the
// resulting artifacts.
type Orchestrator struct {
	store      *jsonfile.Store
	runStore   storage.DetectionRunStore
	spikeStore storage.SpikeEventStore

	params  domain.DetectionParams
	workers int
	verbose bool
	logger  *log.Logger
}

// Options for creating an Orchestrator.
type Options struct {
	// Store receives the per-subject detection artifacts. Required.
	Store *jsonfile.Store

	// RunStore and SpikeStore index runs and validated events durably.
	// Both are optional; leave nil to keep only the JSON artifacts.
	RunStore   storage.DetectionRunStore
	SpikeStore storage.SpikeEventStore

	// Params is the detection configuration, stamped into every output.
	Params domain.DetectionParams

	// Workers bounds subject- and trace-level parallelism. Defaults to 4.
	Workers int

	Verbose bool
	Logger  *log.Logger
}

// New creates an Orchestrator, validating the detection parameters.
func New(opts Options) (*Orchestrator, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("output store is required")
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detection params: %w", err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Orchestrator{
		store:      opts.Store,
		runStore:   opts.RunStore,
		spikeStore: opts.SpikeStore,
		params:     opts.Params,
		workers:    workers,
		verbose:    opts.Verbose,
		logger:     logger,
	}, nil
}

// SubjectResult summarizes one subject's detection pass.
type SubjectResult struct {
	SamplesProcessed int
	SpikesRaw        int
	SpikesValidated  int
	WaveformsKept    int
	Warnings         []string
}

// DetectSubject runs the detection pass over one subject and returns a new
// output record; the input record is not mutated. Detection parameters are
// stamped into the output metadata exactly once. A non-positive sampling
// rate fails the whole subject: nothing is silently defaulted.
func (o *Orchestrator) DetectSubject(ctx context.Context, in *domain.SubjectRecord) (*domain.SubjectRecord, *SubjectResult, error) {
	rate := in.Metadata.SamplingRate
	if rate <= 0 {
		return nil, nil, fmt.Errorf("subject %s: %w", in.Metadata.SubjectName, domain.ErrInvalidSamplingRate)
	}

	out := &domain.SubjectRecord{
		Metadata: in.Metadata,
		Samples:  make(map[string]*domain.SampleRecord, len(in.Samples)),
	}
	out.Metadata.SpikeDetectionParams = domain.ParamsStamp(o.params)

	names := in.SampleNames()
	sort.Strings(names)

	result := &SubjectResult{}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for _, name := range names {
		name := name
		sample := in.Samples[name]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outSample, stats := o.detectSample(name, sample, rate)

			mu.Lock()
			out.Samples[name] = outSample
			result.SamplesProcessed++
			result.SpikesRaw += stats.raw
			result.SpikesValidated += stats.validated
			result.WaveformsKept += stats.waveforms
			result.Warnings = append(result.Warnings, stats.warnings...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	sort.Strings(result.Warnings)
	o.log("subject %s: %d samples, %d raw, %d validated, %d waveforms",
		in.Metadata.SubjectName, result.SamplesProcessed,
		result.SpikesRaw, result.SpikesValidated, result.WaveformsKept)

	return out, result, nil
}

type sampleStats struct {
	raw       int
	validated int
	waveforms int
	warnings  []string
}

// detectSample processes one trace. Degenerate traces are not errors: they
// yield empty event lists and a warning, and sibling traces keep going.
func (o *Orchestrator) detectSample(name string, in *domain.SampleRecord, rate float64) (*domain.SampleRecord, sampleStats) {
	out := &domain.SampleRecord{
		SignalMV:                 in.SignalMV,
		FilteredSignal:           in.FilteredSignal,
		Info:                     in.Info,
		SpikesRawDetected:        []domain.SpikeEvent{},
		SpikesRefractoryFiltered: []domain.SpikeEvent{},
	}
	var stats sampleStats

	trace := in.Trace()
	if len(trace) == 0 {
		stats.warnings = append(stats.warnings, fmt.Sprintf("sample %s: empty signal, no events", name))
		return out, stats
	}

	sig, err := domain.NewSignal(trace, rate)
	if err != nil {
		stats.warnings = append(stats.warnings, fmt.Sprintf("sample %s: %v, no events", name, err))
		return out, stats
	}

	raw := detect.Detect(sig, o.params.RMSMultiplier, o.params.Polarity)
	validated := detect.FilterRefractory(raw, o.params.RefractoryBeforeS, o.params.RefractoryAfterS)
	set := detect.ExtractWaveforms(sig, validated, o.params.WaveformBeforeMs, o.params.WaveformAfterMs)

	if raw != nil {
		out.SpikesRawDetected = raw
	}
	if validated != nil {
		out.SpikesRefractoryFiltered = detect.AttachWaveforms(validated, set)
	}
	out.SpikeWaveformMetadata = &domain.WaveformMetadata{
		TimeAxisMs: set.TimeAxisMs,
		BeforeMs:   o.params.WaveformBeforeMs,
		AfterMs:    o.params.WaveformAfterMs,
	}

	stats.raw = len(raw)
	stats.validated = len(validated)
	stats.waveforms = len(set.Waveforms)
	return out, stats
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		o.logger.Printf("[orchestrator] "+format, args...)
	}
}
