package ports

import "powersim/domain/power"

// TestResult is the outcome of a two-sample test.
type TestResult struct {
	T      float64 `json:"t"`
	DF     float64 `json:"df"`
	PValue float64 `json:"p_value"`
}

// TwoSampleTest compares a control sample against a treatment sample.
type TwoSampleTest interface {
	Name() string
	Test(control, treatment []float64) (TestResult, error)
}

// TestSelector resolves the configured t-test variant.
type TestSelector func(kind power.TestKind) (TwoSampleTest, error)
