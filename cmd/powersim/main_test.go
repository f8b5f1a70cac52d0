package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"powersim/adapters/scenariofile"
	"powersim/domain/core"
	"powersim/domain/power"
	"powersim/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromEnv()
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.Storage.DatabaseURL = "file:" + filepath.Join(dir, "runs.db")
	cfg.Storage.OutputDir = filepath.Join(dir, "out")
	cfg.Simulation.Replicates = 200
	cfg.Simulation.NMax = 30
	cfg.Log.Format = "json"
	cfg.Log.Level = "ERROR"
	return cfg
}

func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd, e := newRootCmd(cfg)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	require.NoError(t, e.close(context.Background()))
	return out.String(), err
}

func TestEstimateCommand(t *testing.T) {
	cfg := testConfig(t)
	out, err := run(t, cfg, "estimate", "--control", "0", "--treatment", "5", "--sd", "1", "--n", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "power:          1.0000")
	assert.Contains(t, out, "analytic power: 1.0000")
}

func TestEstimateCommand_Invalid(t *testing.T) {
	cfg := testConfig(t)
	_, err := run(t, cfg, "estimate", "--n", "1")
	assert.Error(t, err)
}

func TestSweepSaveAndShow(t *testing.T) {
	cfg := testConfig(t)
	svg := filepath.Join(cfg.Storage.OutputDir, "curve.svg")
	csv := filepath.Join(cfg.Storage.OutputDir, "curve.csv")

	out, err := run(t, cfg, "sweep", "--control", "0", "--treatment", "1.5", "--sd", "1",
		"--n-max", "20", "--save", "--svg", svg, "--csv", csv)
	require.NoError(t, err)
	assert.Contains(t, out, "minimum N =")
	assert.FileExists(t, svg)
	assert.FileExists(t, csv)

	var id string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "saved run ") {
			id = strings.TrimPrefix(line, "saved run ")
		}
	}
	require.NotEmpty(t, id)

	out, err = run(t, cfg, "runs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)

	out, err = run(t, cfg, "runs", "show", id, "--format", "csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "n,power,se,ci_low,ci_high"))

	want, err := os.ReadFile(csv)
	require.NoError(t, err)
	assert.Equal(t, string(want), out)
}

func TestSweepTargetNotReached(t *testing.T) {
	cfg := testConfig(t)
	out, err := run(t, cfg, "sweep", "--scenario", "minimum_detectable", "--n-max", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "not reached")
}

func TestScenariosCommand(t *testing.T) {
	cfg := testConfig(t)
	out, err := run(t, cfg, "scenarios", "--plots")
	require.NoError(t, err)
	assert.Contains(t, out, "biologically_important")
	assert.Contains(t, out, "minimum_detectable")
	assert.FileExists(t, filepath.Join(cfg.Storage.OutputDir, "biologically_important.svg"))
}

func TestMigrateStatus(t *testing.T) {
	cfg := testConfig(t)
	out, err := run(t, cfg, "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "001  pending")

	_, err = run(t, cfg, "migrate", "up")
	require.NoError(t, err)

	out, err = run(t, cfg, "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "001  applied")
}

func TestFailedCommandStillClosesDatabase(t *testing.T) {
	cfg := testConfig(t)
	cmd, e := newRootCmd(cfg)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"runs", "show", "5f0c2f8e-7b7a-4d5e-9a11-2c3d4e5f6a7b"})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)
	require.NotNil(t, e.deps)
	assert.NotNil(t, e.deps.DB)

	require.NoError(t, e.close(context.Background()))
	assert.Nil(t, e.deps.DB)
}

func TestSweepWritesOutputsInFixedOrder(t *testing.T) {
	cfg := testConfig(t)
	dir := cfg.Storage.OutputDir
	paths := []string{
		filepath.Join(dir, "curve.svg"),
		filepath.Join(dir, "curve.xlsx"),
		filepath.Join(dir, "curve.csv"),
		filepath.Join(dir, "curve.html"),
		filepath.Join(dir, "curve.md"),
	}

	for range 3 {
		out, err := run(t, cfg, "sweep", "--control", "0", "--treatment", "1.5", "--sd", "1",
			"--n-max", "10", "--md", paths[4], "--csv", paths[2], "--html", paths[3],
			"--svg", paths[0], "--xlsx", paths[1])
		require.NoError(t, err)

		var wrote []string
		for _, line := range strings.Split(out, "\n") {
			if path, ok := strings.CutPrefix(line, "wrote "); ok {
				wrote = append(wrote, path)
			}
		}
		assert.Equal(t, paths, wrote)
	}
}

func TestScenariosInitWritesEditableFile(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "scenarios.yaml")

	out, err := run(t, cfg, "scenarios", "--init", path)
	require.NoError(t, err)
	assert.Equal(t, "wrote "+path+"\n", out)

	scenarios, err := scenariofile.Load(path)
	require.NoError(t, err)
	assert.Equal(t, power.DefaultScenarios(), scenarios)

	out, err = run(t, cfg, "scenarios", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "biologically_important")
	assert.Contains(t, out, "minimum_detectable")
}

func TestLookupReadsExportedTables(t *testing.T) {
	cfg := testConfig(t)
	csv := filepath.Join(cfg.Storage.OutputDir, "curve.csv")
	xlsx := filepath.Join(cfg.Storage.OutputDir, "curve.xlsx")

	out, err := run(t, cfg, "sweep", "--control", "0", "--treatment", "1.5", "--sd", "1",
		"--n-max", "20", "--csv", csv, "--xlsx", xlsx)
	require.NoError(t, err)
	var minimumLine string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "minimum N =") {
			minimumLine = line
		}
	}
	require.NotEmpty(t, minimumLine)
	n := strings.Fields(strings.SplitN(minimumLine, "minimum N = ", 2)[1])[0]

	for _, path := range []string{csv, xlsx} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			out, err := run(t, cfg, "lookup", path, "--target", "0.8")
			require.NoError(t, err)
			assert.Contains(t, out, "minimum N = "+n+" per group")
		})
	}
}

func TestLookupTargetNotReached(t *testing.T) {
	cfg := testConfig(t)
	csv := filepath.Join(cfg.Storage.OutputDir, "curve.csv")
	_, err := run(t, cfg, "sweep", "--scenario", "minimum_detectable", "--n-max", "5", "--csv", csv)
	require.NoError(t, err)

	out, err := run(t, cfg, "lookup", csv, "--target", "0.99")
	require.NoError(t, err)
	assert.Contains(t, out, "no sample size reaches target power")
}

func TestLookupRejectsUnknownExtension(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "curve.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	_, err := run(t, cfg, "lookup", path)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}
