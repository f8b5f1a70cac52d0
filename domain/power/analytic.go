package power

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// AnalyticPower approximates two-sided two-sample t-test power with equal
// group sizes by shifting the central t distribution by the noncentrality
// δ = d·sqrt(n/2). It is a cross-check for the simulated estimate, accurate
// to roughly 0.01 for n ≥ 5.
func AnalyticPower(p TrialParams) float64 {
	if p.N < 2 || !(p.SD > 0) || !(p.Alpha > 0 && p.Alpha < 1) {
		return math.NaN()
	}
	df := float64(2*p.N - 2)
	delta := math.Abs(p.CohensD()) * math.Sqrt(float64(p.N)/2)

	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	tCritical := t.Quantile(1 - p.Alpha/2)
	return t.Survival(tCritical-delta) + t.CDF(-tCritical-delta)
}

// AnalyticSampleSize is the normal-approximation per-group sample size
// 2(z_{1-α/2} + z_{power})² / d², rounded up and never below 2. Returns 0
// for a zero effect, which no finite sample detects.
func AnalyticSampleSize(p TrialParams, target float64) int {
	d := math.Abs(p.CohensD())
	if d == 0 || math.IsNaN(d) || !(target > 0 && target < 1) {
		return 0
	}
	zAlpha := distuv.UnitNormal.Quantile(1 - p.Alpha/2)
	zBeta := distuv.UnitNormal.Quantile(target)
	n := int(math.Ceil(2 * (zAlpha + zBeta) * (zAlpha + zBeta) / (d * d)))
	return max(n, 2)
}
