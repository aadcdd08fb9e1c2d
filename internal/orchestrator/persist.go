package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ephys-spike-lab/internal/domain"
	"ephys-spike-lab/internal/idhash"
	"ephys-spike-lab/internal/storage"
	"ephys-spike-lab/internal/storage/jsonfile"
)

// ProcessedSubject is one subject's detection outcome within a batch.
type ProcessedSubject struct {
	InputPath  string
	OutputPath string
	Run        *domain.DetectionRun
	Record     *domain.SubjectRecord
	Result     *SubjectResult
}

// RunResult aggregates a batch run. Errors holds per-subject failures;
// a failed subject never aborts its siblings.
type RunResult struct {
	SubjectsProcessed int
	SamplesProcessed  int
	SpikesValidated   int
	Subjects          []*ProcessedSubject
	Errors            []string
}

// ProcessFile loads one processed subject artifact, runs detection, writes
// the spikes-detected artifact, and indexes the run in the configured stores.
func (o *Orchestrator) ProcessFile(ctx context.Context, path string) (*ProcessedSubject, error) {
	record, err := o.store.LoadSubject(path)
	if err != nil {
		return nil, err
	}

	subjectName := record.Metadata.SubjectName
	if subjectName == "" {
		subjectName = subjectFromPath(path)
		record.Metadata.SubjectName = subjectName
	}

	out, result, err := o.DetectSubject(ctx, record)
	if err != nil {
		return nil, err
	}
	for _, w := range result.Warnings {
		o.logger.Printf("[orchestrator] %s: %s", subjectName, w)
	}

	outName := jsonfile.DetectedFileName(filepath.Base(path))
	outPath, err := o.store.WriteSubject(outName, out)
	if err != nil {
		return nil, fmt.Errorf("write detection artifact: %w", err)
	}

	run := &domain.DetectionRun{
		RunID:       idhash.ComputeRunID(subjectName, o.params, out.Metadata.FilterBand),
		SubjectName: subjectName,
		Params:      o.params,
		FilterBand:  out.Metadata.FilterBand,
		CreatedAt:   time.Now().Unix(),
		SampleCount: result.SamplesProcessed,
		SpikeCount:  result.SpikesValidated,
	}

	if err := o.indexRun(ctx, run, out); err != nil {
		return nil, err
	}

	return &ProcessedSubject{
		InputPath:  path,
		OutputPath: outPath,
		Run:        run,
		Record:     out,
		Result:     result,
	}, nil
}

// indexRun records the run and its validated spikes in the durable stores.
// A duplicate run ID means the same subject was already processed with the
// same parameters; the artifact was rewritten identically, so this is benign.
func (o *Orchestrator) indexRun(ctx context.Context, run *domain.DetectionRun, record *domain.SubjectRecord) error {
	if o.runStore != nil {
		if err := o.runStore.Insert(ctx, run); err != nil {
			if !errors.Is(err, storage.ErrDuplicateKey) {
				return fmt.Errorf("index run: %w", err)
			}
			o.log("run %s already indexed", run.RunID)
			return nil
		}
	}

	if o.spikeStore != nil {
		spikes := FlattenSpikes(run.RunID, record)
		if err := o.spikeStore.InsertBulk(ctx, spikes); err != nil {
			if !errors.Is(err, storage.ErrDuplicateKey) {
				return fmt.Errorf("index spikes: %w", err)
			}
		}
	}
	return nil
}

// FlattenSpikes converts a subject's validated events into store rows,
// ordered by sample name then time.
func FlattenSpikes(runID string, record *domain.SubjectRecord) []*domain.StoredSpike {
	names := record.SampleNames()
	sort.Strings(names)

	var spikes []*domain.StoredSpike
	for _, name := range names {
		sample := record.Samples[name]
		if sample == nil {
			continue
		}
		for _, ev := range sample.SpikesRefractoryFiltered {
			spikes = append(spikes, &domain.StoredSpike{
				RunID:       runID,
				SampleName:  name,
				TimeS:       ev.TimeS,
				AmplitudeMV: ev.AmplitudeMV,
				Index:       ev.Index,
				Waveform:    ev.Waveform,
			})
		}
	}
	return spikes
}

// RunBatch detects spikes for every processed subject artifact in inputDir,
// fanning subjects out across workers. Subject failures are collected, not
// propagated: one bad subject does not abort the batch.
func (o *Orchestrator) RunBatch(ctx context.Context, inputDir string) (*RunResult, error) {
	files, err := jsonfile.ListProcessed(inputDir)
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	o.log("batch: %d processed subjects in %s", len(files), inputDir)

	result := &RunResult{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for _, path := range files {
		path := path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			subject, err := o.ProcessFile(gctx, path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", filepath.Base(path), err))
				return nil
			}
			result.SubjectsProcessed++
			result.SamplesProcessed += subject.Result.SamplesProcessed
			result.SpikesValidated += subject.Result.SpikesValidated
			result.Subjects = append(result.Subjects, subject)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(result.Subjects, func(i, j int) bool {
		return result.Subjects[i].InputPath < result.Subjects[j].InputPath
	})
	sort.Strings(result.Errors)

	o.log("batch complete: %d subjects, %d samples, %d validated spikes, %d errors",
		result.SubjectsProcessed, result.SamplesProcessed, result.SpikesValidated, len(result.Errors))

	return result, nil
}

// subjectFromPath recovers the subject name from a processed artifact path.
func subjectFromPath(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, "_processed"); i >= 0 {
		return base[:i]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
