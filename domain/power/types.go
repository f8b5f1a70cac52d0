package power

import (
	"fmt"
	"math"
	"strings"

	"powersim/domain/core"
)

// Defaults used by the workshop scripts this toolkit reproduces.
const (
	DefaultAlpha      = 0.05
	DefaultReplicates = 1000
	DefaultConfidence = 0.95
	DefaultTarget     = 0.8
	DefaultNMin       = 2
	DefaultNMax       = 100

	// Upper bounds keep one request from allocating without limit.
	MaxSampleSize = 1_000_000
	MaxReplicates = 10_000_000
	MaxRangeRows  = 10_000
)

// TestKind selects the two-sample t-test variant.
type TestKind string

const (
	TestStudent TestKind = "student" // pooled variance
	TestWelch   TestKind = "welch"   // unequal variances, Welch-Satterthwaite df
)

// ParseTestKind accepts "student"/"pooled" and "welch"; empty means student.
func ParseTestKind(s string) (TestKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "student", "pooled":
		return TestStudent, nil
	case "welch":
		return TestWelch, nil
	}
	return "", core.NewInvalidParameterError("test", fmt.Sprintf("unknown t-test variant %q", s))
}

// TrialParams fully describes one power estimate. Immutable per run.
type TrialParams struct {
	ControlMean   float64  `json:"control_mean" yaml:"control_mean"`
	TreatmentMean float64  `json:"treatment_mean" yaml:"treatment_mean"`
	SD            float64  `json:"sd" yaml:"sd"`
	N             int      `json:"n" yaml:"n"`
	Alpha         float64  `json:"alpha" yaml:"alpha"`
	Replicates    int      `json:"replicates" yaml:"replicates"`
	Confidence    float64  `json:"confidence" yaml:"confidence"`
	Test          TestKind `json:"test" yaml:"test"`
}

// DefaultParams returns parameters with the conventional alpha, replicate
// count and confidence level filled in. Means, sd and N are left to the caller.
func DefaultParams() TrialParams {
	return TrialParams{
		Alpha:      DefaultAlpha,
		Replicates: DefaultReplicates,
		Confidence: DefaultConfidence,
		Test:       TestStudent,
	}
}

// WithN returns a copy of p with the per-group sample size replaced.
func (p TrialParams) WithN(n int) TrialParams {
	p.N = n
	return p
}

// WithScenario returns a copy of p carrying the scenario's means and sd.
func (p TrialParams) WithScenario(s Scenario) TrialParams {
	p.ControlMean = s.ControlMean
	p.TreatmentMean = s.TreatmentMean
	p.SD = s.SD
	return p
}

// EffectSize is the true mean difference used to simulate data.
func (p TrialParams) EffectSize() float64 {
	return p.TreatmentMean - p.ControlMean
}

// CohensD is the standardized effect size.
func (p TrialParams) CohensD() float64 {
	if p.SD <= 0 {
		return math.NaN()
	}
	return p.EffectSize() / p.SD
}

// Validate fails fast before any simulation is attempted.
func (p TrialParams) Validate() error {
	if err := p.validateShared(); err != nil {
		return err
	}
	if p.N < 2 {
		return core.NewInvalidParameterError("n", fmt.Sprintf("must be at least 2, got %d", p.N))
	}
	if p.N > MaxSampleSize {
		return core.NewInvalidParameterError("n", fmt.Sprintf("must be at most %d, got %d", MaxSampleSize, p.N))
	}
	return nil
}

// ValidateTemplate checks everything except N, for parameters that are about
// to be swept across a range of sample sizes.
func (p TrialParams) ValidateTemplate() error {
	return p.validateShared()
}

func (p TrialParams) validateShared() error {
	if math.IsNaN(p.ControlMean) || math.IsInf(p.ControlMean, 0) {
		return core.NewInvalidParameterError("control_mean", "must be finite")
	}
	if math.IsNaN(p.TreatmentMean) || math.IsInf(p.TreatmentMean, 0) {
		return core.NewInvalidParameterError("treatment_mean", "must be finite")
	}
	if !(p.SD > 0) || math.IsInf(p.SD, 0) {
		return core.NewInvalidParameterError("sd", fmt.Sprintf("must be positive and finite, got %v", p.SD))
	}
	if p.Replicates < 1 {
		return core.NewInvalidParameterError("replicates", fmt.Sprintf("must be at least 1, got %d", p.Replicates))
	}
	if p.Replicates > MaxReplicates {
		return core.NewInvalidParameterError("replicates", fmt.Sprintf("must be at most %d, got %d", MaxReplicates, p.Replicates))
	}
	if !(p.Alpha > 0 && p.Alpha < 1) {
		return core.NewInvalidParameterError("alpha", fmt.Sprintf("must be in (0,1), got %v", p.Alpha))
	}
	if !(p.Confidence > 0 && p.Confidence < 1) {
		return core.NewInvalidParameterError("confidence", fmt.Sprintf("must be in (0,1), got %v", p.Confidence))
	}
	if _, err := ParseTestKind(string(p.Test)); err != nil {
		return err
	}
	return nil
}

// Fingerprint identifies the inputs of a sweep for audit and dedup.
func (p TrialParams) Fingerprint(r SampleRange, seed int64) core.Hash {
	return core.ComputeFingerprint(map[string]interface{}{
		"control_mean":   p.ControlMean,
		"treatment_mean": p.TreatmentMean,
		"sd":             p.SD,
		"alpha":          p.Alpha,
		"replicates":     p.Replicates,
		"confidence":     p.Confidence,
		"test":           p.Test,
		"n_min":          r.Min,
		"n_max":          r.Max,
		"n_step":         r.Step,
		"seed":           seed,
	})
}

// SampleRange is an inclusive range of candidate per-group sample sizes.
type SampleRange struct {
	Min  int `json:"n_min" yaml:"n_min"`
	Max  int `json:"n_max" yaml:"n_max"`
	Step int `json:"n_step" yaml:"n_step"`
}

// DefaultRange sweeps N over [2,100].
func DefaultRange() SampleRange {
	return SampleRange{Min: DefaultNMin, Max: DefaultNMax, Step: 1}
}

func (r SampleRange) Validate() error {
	if r.Min < 2 {
		return fmt.Errorf("%w: minimum must be at least 2, got %d", core.ErrInvalidRange, r.Min)
	}
	if r.Max < r.Min {
		return fmt.Errorf("%w: maximum %d is below minimum %d", core.ErrInvalidRange, r.Max, r.Min)
	}
	if r.Step < 1 {
		return fmt.Errorf("%w: step must be at least 1, got %d", core.ErrInvalidRange, r.Step)
	}
	if r.Max > MaxSampleSize {
		return fmt.Errorf("%w: maximum must be at most %d, got %d", core.ErrInvalidRange, MaxSampleSize, r.Max)
	}
	if rows := (r.Max-r.Min)/r.Step + 1; rows > MaxRangeRows {
		return fmt.Errorf("%w: %d sample sizes exceed the limit of %d, raise the step", core.ErrInvalidRange, rows, MaxRangeRows)
	}
	return nil
}

// Sizes lists the candidate sample sizes in increasing order. Ranges that
// fail Validate yield nil.
func (r SampleRange) Sizes() []int {
	if r.Validate() != nil {
		return nil
	}
	sizes := make([]int, 0, (r.Max-r.Min)/r.Step+1)
	for n := r.Min; ; n += r.Step {
		sizes = append(sizes, n)
		if n > r.Max-r.Step {
			break
		}
	}
	return sizes
}

func (r SampleRange) String() string {
	if r.Step == 1 {
		return fmt.Sprintf("[%d,%d]", r.Min, r.Max)
	}
	return fmt.Sprintf("[%d,%d] step %d", r.Min, r.Max, r.Step)
}

// ValidateTarget checks a power target lies in (0,1].
func ValidateTarget(target float64) error {
	if !(target > 0 && target <= 1) {
		return core.NewInvalidParameterError("target", fmt.Sprintf("must be in (0,1], got %v", target))
	}
	return nil
}
