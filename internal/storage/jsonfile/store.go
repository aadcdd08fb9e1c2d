// Package jsonfile persists per-subject records as the canonical JSON
// artifacts consumed by scoring and visualization. Writes are atomic: a
// partially processed subject never leaves a partially written file behind.
package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ephys-spike-lab/internal/domain"
)

// Store reads and writes subject artifacts under a base directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the base directory.
func (s *Store) Dir() string {
	return s.dir
}

// ProcessedFileName names a calibrated subject artifact. A filtered run
// encodes the band: "Subject_1_processed_300-3000Hz.json".
func ProcessedFileName(subjectName string, filterBand *[2]float64) string {
	if filterBand != nil {
		return fmt.Sprintf("%s_processed_%d-%dHz.json",
			subjectName, int(filterBand[0]), int(filterBand[1]))
	}
	return subjectName + "_processed.json"
}

// DetectedFileName derives the detection artifact name from the processed
// file it was computed from, preserving the band suffix.
func DetectedFileName(processedName string) string {
	base := strings.TrimSuffix(processedName, ".json")
	if i := strings.Index(base, "_processed_"); i >= 0 {
		return base + "_spikes_detected.json"
	}
	return strings.TrimSuffix(base, "_processed") + "_spikes_detected.json"
}

// WriteSubject validates and atomically writes a subject record to name
// inside the store directory. Returns the full path written.
func (s *Store) WriteSubject(name string, record *domain.SubjectRecord) (string, error) {
	if err := CheckFinite(record); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(record, "", "    ")
	if err != nil {
		return "", fmt.Errorf("marshal subject %s: %w", record.Metadata.SubjectName, err)
	}

	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("rename into place: %w", err)
	}
	return path, nil
}

// LoadSubject reads a subject record. A relative path is resolved against
// the working directory first, then against the store directory.
func (s *Store) LoadSubject(path string) (*domain.SubjectRecord, error) {
	if !filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			path = filepath.Join(s.dir, path)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subject file: %w", err)
	}

	var record domain.SubjectRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return &record, nil
}

// ListProcessed returns the processed subject artifacts in dir, both
// unfiltered and band-suffixed, excluding detection outputs.
func ListProcessed(dir string) ([]string, error) {
	plain, err := filepath.Glob(filepath.Join(dir, "*_processed.json"))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	banded, err := filepath.Glob(filepath.Join(dir, "*_processed_*Hz.json"))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	var files []string
	for _, f := range append(plain, banded...) {
		if strings.HasSuffix(f, "_spikes_detected.json") {
			continue
		}
		files = append(files, f)
	}
	return files, nil
}
