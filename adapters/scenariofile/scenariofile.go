// Package scenariofile reads and writes named effect-size scenarios as YAML.
//
//	scenarios:
//	  - name: biologically_important
//	    control_mean: 10
//	    treatment_mean: 12
//	    sd: 3
package scenariofile

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"powersim/domain/power"

	"gopkg.in/yaml.v3"
)

type document struct {
	Scenarios []power.Scenario `yaml:"scenarios"`
}

// Load reads and validates a scenario file. An empty path returns the
// built-in scenarios.
func Load(path string) ([]power.Scenario, error) {
	if path == "" {
		return power.DefaultScenarios(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario file: %w", err)
	}
	defer f.Close()

	scenarios, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scenarios, nil
}

// Decode parses a scenario document. Unknown keys are rejected so typos in
// parameter names do not silently fall back to zero.
func Decode(r io.Reader) ([]power.Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, power.ValidateScenarios(nil)
		}
		return nil, fmt.Errorf("decode scenarios: %w", err)
	}
	if err := power.ValidateScenarios(doc.Scenarios); err != nil {
		return nil, err
	}
	return doc.Scenarios, nil
}

// Encode writes scenarios in the format Decode reads.
func Encode(w io.Writer, scenarios []power.Scenario) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(document{Scenarios: scenarios}); err != nil {
		return fmt.Errorf("encode scenarios: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Save writes scenarios to path.
func Save(path string, scenarios []power.Scenario) error {
	if err := power.ValidateScenarios(scenarios); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, scenarios); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
