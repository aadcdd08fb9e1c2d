// Package scoring talks to the external isolation-quality engine. The engine
// receives a filtered trace plus the validated spike indices and returns
// scalar quality metrics for the putative unit.
package scoring

import "context"

// Scores holds the isolation-quality metrics for one sample. A nil field
// means the engine could not compute that metric (NaN upstream).
type Scores struct {
	SNRAP          *float64 `json:"snr_ap"`
	FNScore        *float64 `json:"fn_score"`
	FPScore        *float64 `json:"fp_score"`
	IsolationScore *float64 `json:"isolation_score"`
}

// Scorer scores one sample's spike train against its source trace.
type Scorer interface {
	Score(ctx context.Context, signal []float64, spikeIndices []int) (*Scores, error)
	Close() error
}
