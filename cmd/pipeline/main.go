// Package main runs the batch detection pipeline: every processed subject
// artifact in a directory goes through spike detection, runs are optionally
// indexed in Postgres and ClickHouse, and a summary report is written.
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
	"ephys-spike-lab/internal/reporting"
	"ephys-spike-lab/internal/storage"
	"ephys-spike-lab/internal/storage/clickhouse"
	"ephys-spike-lab/internal/storage/jsonfile"
	"ephys-spike-lab/internal/storage/memory"
	"ephys-spike-lab/internal/storage/migrations"
	"ephys-spike-lab/internal/storage/postgres"
)

func main() {
	inputDir := flag.String("input-dir", ".", "Directory of processed subject artifacts")
	reportDir := flag.String("report-dir", "", "Directory for the Markdown and CSV report (empty skips reporting)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres DSN for run indexing (empty uses in-memory stores)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse DSN for spike timeseries (empty disables)")
	workers := flag.Int("workers", 4, "Concurrent subjects")
	multiplier := flag.Float64("rms-multiplier", 4, "Threshold as multiple of trace RMS")
	polarity := flag.String("polarity", "negative", "Excursion polarity: negative or absolute")
	refractoryBeforeMs := flag.Float64("refractory-before-ms", 1, "Exclusion window before an accepted peak")
	refractoryAfterMs := flag.Float64("refractory-after-ms", 2, "Exclusion window after an accepted peak")
	waveformBeforeMs := flag.Float64("waveform-before-ms", 2, "Waveform window before a peak")
	waveformAfterMs := flag.Float64("waveform-after-ms", 3, "Waveform window after a peak")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

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
		fmt.Printf("\nReceived signal %v, cancelling pipeline...\n", sig)
		cancel()
	}()

	runStore, spikeStore, cleanup, err := buildStores(ctx, *postgresDSN, *clickhouseDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Store setup error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	store, err := jsonfile.NewStore(*inputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	orch, err := orchestrator.New(orchestrator.Options{
		Store:      store,
		RunStore:   runStore,
		SpikeStore: spikeStore,
		Params:     params,
		Workers:    *workers,
		Verbose:    *verbose,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Spike Detection Pipeline ===")
	result, err := orch.RunBatch(ctx, *inputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pipeline error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Batch completed:\n")
	fmt.Printf("  Subjects: %d\n", result.SubjectsProcessed)
	fmt.Printf("  Samples: %d\n", result.SamplesProcessed)
	fmt.Printf("  Validated spikes: %d\n", result.SpikesValidated)
	if len(result.Errors) > 0 {
		fmt.Printf("  Errors: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}

	if *reportDir != "" {
		if err := writeReports(*reportDir, params, result); err != nil {
			fmt.Fprintf(os.Stderr, "Report error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nReports written:\n")
		fmt.Printf("  - %s/DETECTION_REPORT.md\n", *reportDir)
		fmt.Printf("  - %s/sample_summary.csv\n", *reportDir)
	}

	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}

// buildStores wires the run and spike indexes. Without DSNs everything stays
// in memory, which keeps the pipeline usable with nothing but a directory of
// artifacts.
func buildStores(ctx context.Context, postgresDSN, clickhouseDSN string) (storage.DetectionRunStore, storage.SpikeEventStore, func(), error) {
	var (
		runStore   storage.DetectionRunStore = memory.NewDetectionRunStore()
		spikeStore storage.SpikeEventStore   = memory.NewSpikeEventStore()
		closers    []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if postgresDSN != "" {
		pool, err := postgres.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, cleanup, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return nil, nil, cleanup, fmt.Errorf("postgres migrations: %w", err)
		}
		runStore = postgres.NewDetectionRunStore(pool)
		spikeStore = postgres.NewSpikeEventStore(pool)
	}

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			return nil, nil, cleanup, fmt.Errorf("clickhouse migrations: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		spikeStore = clickhouse.NewSpikeEventStore(conn)
	}

	return runStore, spikeStore, cleanup, nil
}

// writeReports renders the batch summary as Markdown and CSV.
func writeReports(dir string, params domain.DetectionParams, result *orchestrator.RunResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	report := reporting.NewGenerator(params).FromBatch(result)

	md := reporting.RenderMarkdown(report)
	if err := os.WriteFile(filepath.Join(dir, "DETECTION_REPORT.md"), []byte(md), 0o644); err != nil {
		return err
	}

	csv := reporting.RenderCSV(report.Samples)
	return os.WriteFile(filepath.Join(dir, "sample_summary.csv"), []byte(csv), 0o644)
}
