package scenariofile

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"powersim/domain/core"
	"powersim/domain/power"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	scenarios, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, power.DefaultScenarios(), scenarios)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	want := append(power.DefaultScenarios(), power.Scenario{
		Name: "large", ControlMean: 0, TreatmentMean: 1.5, SD: 1,
	})

	require.NoError(t, Save(path, want))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecode(t *testing.T) {
	doc := `
scenarios:
  - name: pilot
    description: pilot study estimate
    control_mean: 5
    treatment_mean: 6.5
    sd: 2
`
	scenarios, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "pilot", scenarios[0].Name)
	assert.Equal(t, 6.5, scenarios[0].TreatmentMean)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"no scenarios", "scenarios: []\n"},
		{"unknown field", "scenarios:\n  - name: a\n    control_mean: 1\n    treatment_mean: 2\n    stdev: 1\n"},
		{"zero sd", "scenarios:\n  - name: a\n    control_mean: 1\n    treatment_mean: 2\n    sd: 0\n"},
		{"bad name", "scenarios:\n  - name: Bad Name\n    control_mean: 1\n    treatment_mean: 2\n    sd: 1\n"},
		{"duplicate", "scenarios:\n  - {name: a, control_mean: 1, treatment_mean: 2, sd: 1}\n  - {name: a, control_mean: 1, treatment_mean: 3, sd: 1}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestDecode_InvalidScenarioSentinel(t *testing.T) {
	_, err := Decode(strings.NewReader("scenarios:\n  - {name: a, control_mean: 1, treatment_mean: 2, sd: -1}\n"))
	assert.ErrorIs(t, err, core.ErrInvalidScenario)
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, power.DefaultScenarios()))
	assert.Contains(t, buf.String(), "name: biologically_important")
	assert.Contains(t, buf.String(), "treatment_mean: 11")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
