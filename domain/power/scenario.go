package power

import (
	"fmt"
	"math"
	"regexp"

	"powersim/domain/core"
)

// Scenario is a named effect-size configuration. Sweeping several scenarios
// with the same base parameters replaces duplicated per-effect scripts.
type Scenario struct {
	Name          string  `json:"name" yaml:"name"`
	Description   string  `json:"description,omitempty" yaml:"description,omitempty"`
	ControlMean   float64 `json:"control_mean" yaml:"control_mean"`
	TreatmentMean float64 `json:"treatment_mean" yaml:"treatment_mean"`
	SD            float64 `json:"sd" yaml:"sd"`
}

// Built-in scenario names.
const (
	ScenarioBiologicallyImportant = "biologically_important"
	ScenarioMinimumDetectable     = "minimum_detectable"
	ScenarioCustom                = "custom"
)

var scenarioNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]{0,63}$`)

// DefaultScenarios returns the two effect sizes the experiment design
// workshop compares: the effect that would matter biologically and the
// smallest effect worth detecting.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{
			Name:          ScenarioBiologicallyImportant,
			Description:   "Effect large enough to matter biologically",
			ControlMean:   10,
			TreatmentMean: 12,
			SD:            3,
		},
		{
			Name:          ScenarioMinimumDetectable,
			Description:   "Smallest effect the experiment should still detect",
			ControlMean:   10,
			TreatmentMean: 11,
			SD:            3,
		},
	}
}

// Validate checks the scenario name and its distribution parameters.
func (s Scenario) Validate() error {
	if !scenarioNamePattern.MatchString(s.Name) {
		return fmt.Errorf("%w: name %q must be lowercase letters, digits, '_' or '-'", core.ErrInvalidScenario, s.Name)
	}
	if math.IsNaN(s.ControlMean) || math.IsInf(s.ControlMean, 0) ||
		math.IsNaN(s.TreatmentMean) || math.IsInf(s.TreatmentMean, 0) {
		return fmt.Errorf("%w: %s means must be finite", core.ErrInvalidScenario, s.Name)
	}
	if !(s.SD > 0) || math.IsInf(s.SD, 0) {
		return fmt.Errorf("%w: %s sd must be positive, got %v", core.ErrInvalidScenario, s.Name, s.SD)
	}
	return nil
}

// ScenarioFromParams wraps ad-hoc parameters as the "custom" scenario.
func ScenarioFromParams(p TrialParams) Scenario {
	return Scenario{
		Name:          ScenarioCustom,
		ControlMean:   p.ControlMean,
		TreatmentMean: p.TreatmentMean,
		SD:            p.SD,
	}
}

// ValidateScenarios rejects empty lists, invalid entries and duplicate names.
func ValidateScenarios(scenarios []Scenario) error {
	if len(scenarios) == 0 {
		return fmt.Errorf("%w: at least one scenario is required", core.ErrInvalidScenario)
	}
	seen := make(map[string]bool, len(scenarios))
	for _, s := range scenarios {
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: duplicate name %q", core.ErrInvalidScenario, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}
