// Package idhash computes deterministic identifiers so that re-running the
// same subject with the same parameters always yields the same run ID.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"ephys-spike-lab/internal/domain"
)

// ComputeRunID computes a deterministic run identifier using SHA256.
// Formula: SHA256(subject|method|multiplier|ref_before|ref_after|wf_before|wf_after|band)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(subject string, params domain.DetectionParams, filterBand *[2]float64) string {
	bandStr := ""
	if filterBand != nil {
		bandStr = fmt.Sprintf("%g-%g", filterBand[0], filterBand[1])
	}

	data := fmt.Sprintf("%s|%s|%g|%g|%g|%g|%g|%s",
		subject,
		params.Polarity.Method(),
		params.RMSMultiplier,
		params.RefractoryBeforeS,
		params.RefractoryAfterS,
		params.WaveformBeforeMs,
		params.WaveformAfterMs,
		bandStr,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeSampleID computes a deterministic per-sample identifier within a run.
func ComputeSampleID(runID, sampleName string) string {
	hash := sha256.Sum256([]byte(runID + "|" + sampleName))
	return hex.EncodeToString(hash[:])
}
