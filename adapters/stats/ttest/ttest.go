// Package ttest implements unpaired two-sample t-tests.
package ttest

import (
	"fmt"
	"math"

	"powersim/domain/core"
	"powersim/domain/power"
	"powersim/ports"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// StudentTTest is the pooled-variance two-sample t-test.
type StudentTTest struct{}

// WelchTTest is the unequal-variance two-sample t-test with
// Welch-Satterthwaite degrees of freedom.
type WelchTTest struct{}

var (
	_ ports.TwoSampleTest = StudentTTest{}
	_ ports.TwoSampleTest = WelchTTest{}
)

// New returns the test for the configured variant.
func New(kind power.TestKind) (ports.TwoSampleTest, error) {
	kind, err := power.ParseTestKind(string(kind))
	if err != nil {
		return nil, err
	}
	if kind == power.TestWelch {
		return WelchTTest{}, nil
	}
	return StudentTTest{}, nil
}

func (StudentTTest) Name() string { return string(power.TestStudent) }

// Test computes t = (m1-m2) / sqrt(sp² (1/n1 + 1/n2)) with n1+n2-2 df.
func (StudentTTest) Test(control, treatment []float64) (ports.TestResult, error) {
	if err := checkSamples(control, treatment); err != nil {
		return ports.TestResult{}, err
	}
	n1, n2 := float64(len(control)), float64(len(treatment))
	mean1, var1 := stat.MeanVariance(control, nil)
	mean2, var2 := stat.MeanVariance(treatment, nil)

	df := n1 + n2 - 2
	pooled := ((n1-1)*var1 + (n2-1)*var2) / df
	se := math.Sqrt(pooled * (1/n1 + 1/n2))
	return result(mean1-mean2, se, df), nil
}

func (WelchTTest) Name() string { return string(power.TestWelch) }

// Test computes t = (m1-m2) / sqrt(v1/n1 + v2/n2).
func (WelchTTest) Test(control, treatment []float64) (ports.TestResult, error) {
	if err := checkSamples(control, treatment); err != nil {
		return ports.TestResult{}, err
	}
	n1, n2 := float64(len(control)), float64(len(treatment))
	mean1, var1 := stat.MeanVariance(control, nil)
	mean2, var2 := stat.MeanVariance(treatment, nil)

	a, b := var1/n1, var2/n2
	se := math.Sqrt(a + b)
	df := (a + b) * (a + b) / (a*a/(n1-1) + b*b/(n2-1))
	return result(mean1-mean2, se, df), nil
}

// result converts a mean difference and its standard error into a
// two-sided p-value. Zero standard error means both samples are constant:
// identical means are indistinguishable (p=1), different means are certain (p=0).
func result(diff, se, df float64) ports.TestResult {
	if se == 0 || math.IsNaN(df) {
		if diff == 0 {
			return ports.TestResult{T: 0, DF: df, PValue: 1}
		}
		return ports.TestResult{T: math.Copysign(math.Inf(1), diff), DF: df, PValue: 0}
	}
	t := diff / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(math.Abs(t))
	return ports.TestResult{T: t, DF: df, PValue: math.Min(1, math.Max(0, p))}
}

func checkSamples(control, treatment []float64) error {
	if len(control) < 2 || len(treatment) < 2 {
		return core.NewInvalidParameterError("sample", fmt.Sprintf("each group needs at least 2 observations, got %d and %d", len(control), len(treatment)))
	}
	return nil
}
