package power

import (
	"time"

	"powersim/domain/core"
)

// Run is a completed sweep for one scenario, as persisted and exported.
type Run struct {
	ID          core.RunID  `json:"id"`
	Scenario    Scenario    `json:"scenario"`
	Params      TrialParams `json:"params"`
	Range       SampleRange `json:"range"`
	Seed        int64       `json:"seed"`
	Target      float64     `json:"target"`
	Curve       Curve       `json:"curve"`
	MinimumN    *int        `json:"minimum_n"` // nil when the range never reaches Target
	Fingerprint core.Hash   `json:"fingerprint"`
	RuntimeMs   int64       `json:"runtime_ms"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Reached reports whether the sweep found a sample size meeting the target.
func (r *Run) Reached() bool {
	return r.MinimumN != nil
}

// MinimumEstimate returns the row at MinimumN, if any.
func (r *Run) MinimumEstimate() (Estimate, bool) {
	if r.MinimumN == nil {
		return Estimate{}, false
	}
	for _, p := range r.Curve.Points {
		if p.N == *r.MinimumN {
			return p, true
		}
	}
	return Estimate{}, false
}

// RunSummary is the listing view of a persisted run.
type RunSummary struct {
	ID          core.RunID `json:"id"`
	Scenario    string     `json:"scenario"`
	Target      float64    `json:"target"`
	MinimumN    *int       `json:"minimum_n"`
	Fingerprint core.Hash  `json:"fingerprint"`
	CreatedAt   time.Time  `json:"created_at"`
}
