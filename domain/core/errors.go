package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound       = errors.New("resource not found")
	ErrRunNotFound    = fmt.Errorf("%w: run", ErrNotFound)
	ErrTargetNotFound = fmt.Errorf("%w: no sample size reaches target power", ErrNotFound)

	// Validation errors
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidRange     = fmt.Errorf("%w: sample size range", ErrInvalidParameter)
	ErrInvalidScenario  = fmt.Errorf("%w: scenario", ErrInvalidParameter)
)

// NewInvalidParameterError reports which parameter failed validation and why.
func NewInvalidParameterError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidParameter, field, reason)
}

func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewTargetNotFoundError is returned by the minimum-N lookup when the swept
// range never reaches the target; callers should widen the range.
func NewTargetNotFoundError(target float64, nMin, nMax int) error {
	return fmt.Errorf("%w %.2f in N=[%d,%d]", ErrTargetNotFound, target, nMin, nMax)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidParameterError(err error) bool {
	return errors.Is(err, ErrInvalidParameter)
}
