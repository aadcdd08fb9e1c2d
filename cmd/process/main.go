// Package main converts extracted recordings into calibrated, optionally
// bandpass-filtered subject artifacts ready for spike detection.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"ephys-spike-lab/internal/domain"
	"ephys-spike-lab/internal/extract"
	"ephys-spike-lab/internal/signalproc"
	"ephys-spike-lab/internal/storage/jsonfile"
)

func main() {
	input := flag.String("input", "", "Extracted subject file or directory of *_extracted.json files")
	outputDir := flag.String("output-dir", ".", "Output directory for processed artifacts")
	lowHz := flag.Float64("low", 0, "Bandpass low cutoff in Hz (0 disables filtering)")
	highHz := flag.Float64("high", 0, "Bandpass high cutoff in Hz (0 disables filtering)")
	order := flag.Int("order", signalproc.DefaultFilterOrder, "Butterworth filter order")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Error: -input is required")
		flag.Usage()
		os.Exit(1)
	}
	if (*lowHz == 0) != (*highHz == 0) {
		fmt.Fprintln(os.Stderr, "Error: -low and -high must be set together")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, stopping...\n", sig)
		cancel()
	}()

	store, err := jsonfile.NewStore(*outputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	files, err := inputFiles(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no extracted subject files under %s\n", *input)
		os.Exit(1)
	}

	var band *[2]float64
	if *lowHz > 0 {
		band = &[2]float64{*lowHz, *highHz}
	}

	failed := 0
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		outPath, err := processSubject(store, path, band, *order)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(path), err)
			failed++
			continue
		}
		fmt.Printf("%s -> %s\n", filepath.Base(path), filepath.Base(outPath))
	}

	fmt.Printf("Processed %d of %d subjects\n", len(files)-failed, len(files))
	if failed > 0 {
		os.Exit(1)
	}
}

// inputFiles resolves the input flag to a list of extracted subject files.
func inputFiles(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{input}, nil
	}
	return filepath.Glob(filepath.Join(input, "*_extracted.json"))
}

// processSubject calibrates one subject and writes its processed artifact.
func processSubject(store *jsonfile.Store, path string, band *[2]float64, order int) (string, error) {
	subject, err := extract.Load(path)
	if err != nil {
		return "", err
	}

	rate := subject.Metadata.SamplingRateHz()
	cal := signalproc.Calibration{
		BitResolution: subject.Metadata.BitResolution,
		Gain:          subject.Metadata.Gain,
	}
	if err := cal.Validate(); err != nil {
		return "", err
	}

	subjectName := extract.SubjectName(path)
	record := &domain.SubjectRecord{
		Metadata: domain.SubjectMetadata{
			SubjectName:   subjectName,
			SamplingRate:  rate,
			BitResolution: subject.Metadata.BitResolution,
			Gain:          subject.Metadata.Gain,
			FilterBand:    band,
		},
		Samples: make(map[string]*domain.SampleRecord, len(subject.Samples)),
	}

	for name, raw := range subject.Samples {
		sample := &domain.SampleRecord{
			SignalMV: signalproc.ToMillivolts(raw.RawSignal, cal),
			Info:     raw.Info(name, rate),
		}
		if band != nil {
			filtered, err := signalproc.Bandpass(sample.SignalMV, rate, band[0], band[1], order)
			if err != nil {
				return "", fmt.Errorf("sample %s: %w", name, err)
			}
			sample.FilteredSignal = filtered
		}
		record.Samples[name] = sample
	}

	return store.WriteSubject(jsonfile.ProcessedFileName(subjectName, band), record)
}
