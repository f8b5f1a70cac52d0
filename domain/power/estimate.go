package power

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Estimate is the Monte Carlo power estimate for a single sample size.
//
// Power is Rejections/Replicates. Its sampling variance is p(1-p)/R, so the
// standard error shrinks as O(1/sqrt(R)); CILow/CIHigh are the normal
// interval at the configured confidence level, clamped to [0,1].
type Estimate struct {
	N          int     `json:"n"`
	Power      float64 `json:"power"`
	Rejections int     `json:"rejections"`
	Replicates int     `json:"replicates"`
	StdError   float64 `json:"std_error"`
	CILow      float64 `json:"ci_low"`
	CIHigh     float64 `json:"ci_high"`
}

// NewEstimate derives power, standard error and interval from raw counts.
func NewEstimate(n, rejections, replicates int, confidence float64) Estimate {
	e := Estimate{N: n, Rejections: rejections, Replicates: replicates}
	if replicates < 1 {
		return e
	}
	p := float64(rejections) / float64(replicates)
	e.Power = p
	e.StdError = math.Sqrt(p * (1 - p) / float64(replicates))

	z := distuv.UnitNormal.Quantile(1 - (1-confidence)/2)
	e.CILow = math.Max(0, p-z*e.StdError)
	e.CIHigh = math.Min(1, p+z*e.StdError)
	return e
}

// Meets reports whether the estimate reaches the power target.
func (e Estimate) Meets(target float64) bool {
	return e.Power >= target
}
