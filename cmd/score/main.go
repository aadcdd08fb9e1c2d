// Package main scores detected units against the isolation-quality engine.
// Each sample's trace and validated spike indices go to the engine; the
// per-sample metrics land in a JSON file next to the detection artifact.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"ephys-spike-lab/internal/scoring"
	"ephys-spike-lab/internal/storage/jsonfile"
)

func main() {
	input := flag.String("input", "", "Detection artifact (*_spikes_detected.json) to score")
	engineURL := flag.String("engine-url", "", "WebSocket URL of the scoring engine (empty uses the local approximation)")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Error: -input is required")
		flag.Usage()
		os.Exit(1)
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

	store, err := jsonfile.NewStore(filepath.Dir(*input))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	record, err := store.LoadSubject(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	scorer, err := buildScorer(ctx, *engineURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Scorer error: %v\n", err)
		os.Exit(1)
	}
	defer scorer.Close()

	names := record.SampleNames()
	sort.Strings(names)

	results := make(map[string]*scoring.Scores, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		sample := record.Samples[name]
		if sample == nil || len(sample.SpikesRefractoryFiltered) == 0 {
			fmt.Printf("%s: no validated spikes, skipped\n", name)
			continue
		}

		indices := make([]int, len(sample.SpikesRefractoryFiltered))
		for i, ev := range sample.SpikesRefractoryFiltered {
			indices[i] = ev.Index
		}

		scores, err := scorer.Score(ctx, sample.Trace(), indices)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			continue
		}
		results[name] = scores
		fmt.Printf("%s: snr_ap=%s isolation=%s\n",
			name, formatScore(scores.SNRAP), formatScore(scores.IsolationScore))
	}

	outPath := scoresFileName(*input)
	data, err := json.MarshalIndent(results, "", "    ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Marshal error: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Write error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Scores written to %s\n", outPath)
}

func buildScorer(ctx context.Context, engineURL string) (scoring.Scorer, error) {
	if engineURL == "" {
		return scoring.NewLocalScorer(), nil
	}
	return scoring.NewClient(ctx, scoring.DefaultClientConfig(engineURL))
}

func scoresFileName(input string) string {
	return strings.TrimSuffix(input, ".json") + "_scores.json"
}

func formatScore(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", *v)
}
