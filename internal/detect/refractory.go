package detect

import "ephys-spike-lab/internal/domain"

// exclusionWindow is the suppression interval owned by an accepted event.
type exclusionWindow struct {
	start float64
	end   float64
}

// FilterRefractory applies the greedy refractory rule to a candidate list
// that is sorted ascending by time, returning an order-preserving
// subsequence.
//
// A candidate is rejected when its peak time falls inside the window
// [t - beforeS, t + afterS] of any previously accepted event, bounds
// inclusive. Accepted events contribute their own window; rejected
// candidates never do. The rule is deliberately causal and asymmetric: a
// candidate is judged only against already-accepted events, which makes the
// single forward pass deterministic for a given ordered input.
func FilterRefractory(candidates []domain.SpikeEvent, beforeS, afterS float64) []domain.SpikeEvent {
	if len(candidates) == 0 {
		return nil
	}

	validated := make([]domain.SpikeEvent, 0, len(candidates))
	var active []exclusionWindow

	for _, c := range candidates {
		t := c.TimeS

		// Windows whose after-bound has passed can never shadow this or any
		// later candidate; dropping them bounds the inner scan.
		kept := active[:0]
		for _, w := range active {
			if w.end >= t {
				kept = append(kept, w)
			}
		}
		active = kept

		shadowed := false
		for _, w := range active {
			if w.start <= t && t <= w.end {
				shadowed = true
				break
			}
		}
		if shadowed {
			continue
		}

		validated = append(validated, c)
		active = append(active, exclusionWindow{start: t - beforeS, end: t + afterS})
	}

	return validated
}
