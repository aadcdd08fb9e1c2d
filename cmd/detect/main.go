// Package main runs spike detection over a single processed subject artifact.
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
	"ephys-spike-lab/internal/orchestrator"
	"ephys-spike-lab/internal/storage/jsonfile"
)

func main() {
	input := flag.String("input", "", "Processed subject artifact to detect spikes in")
	multiplier := flag.Float64("rms-multiplier", 4, "Threshold as multiple of trace RMS")
	polarity := flag.String("polarity", "negative", "Excursion polarity: negative or absolute")
	refractoryBeforeMs := flag.Float64("refractory-before-ms", 1, "Exclusion window before an accepted peak")
	refractoryAfterMs := flag.Float64("refractory-after-ms", 2, "Exclusion window after an accepted peak")
	waveformBeforeMs := flag.Float64("waveform-before-ms", 2, "Waveform window before a peak")
	waveformAfterMs := flag.Float64("waveform-after-ms", 3, "Waveform window after a peak")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Error: -input is required")
		flag.Usage()
		os.Exit(1)
	}

	params := domain.DetectionParams{
		RMSMultiplier:     *multiplier,
		Polarity:          domain.Polarity(*polarity),
		RefractoryBeforeS: *refractoryBeforeMs / 1000,
		RefractoryAfterS:  *refractoryAfterMs / 1000,
		WaveformBeforeMs:  *waveformBeforeMs,
		WaveformAfterMs:   *waveformAfterMs,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling...\n", sig)
		cancel()
	}()

	// The detection artifact lands next to its input.
	store, err := jsonfile.NewStore(filepath.Dir(*input))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	orch, err := orchestrator.New(orchestrator.Options{
		Store:   store,
		Params:  params,
		Verbose: *verbose,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	subject, err := orch.ProcessFile(ctx, *input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Detection error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Subject %s:\n", subject.Run.SubjectName)
	fmt.Printf("  Samples: %d\n", subject.Result.SamplesProcessed)
	fmt.Printf("  Raw spikes: %d\n", subject.Result.SpikesRaw)
	fmt.Printf("  Validated spikes: %d\n", subject.Result.SpikesValidated)
	fmt.Printf("  Waveforms: %d\n", subject.Result.WaveformsKept)
	fmt.Printf("  Output: %s\n", subject.OutputPath)
}
