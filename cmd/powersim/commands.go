package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"powersim/adapters/excel"
	"powersim/adapters/report"
	"powersim/adapters/scenariofile"
	"powersim/app"
	"powersim/domain/core"
	"powersim/domain/power"
	apperrors "powersim/internal/errors"
	"powersim/ports"

	"github.com/spf13/cobra"
)

// trialFlags are the parameters shared by estimate and sweep.
type trialFlags struct {
	control, treatment, sd float64
	replicates             int
	alpha, confidence      float64
	welch                  bool
	seed                   int64
}

func (f *trialFlags) register(cmd *cobra.Command, e *env) {
	sim := e.cfg.Simulation
	cmd.Flags().Float64Var(&f.control, "control", 10, "Control group mean")
	cmd.Flags().Float64Var(&f.treatment, "treatment", 12, "Treatment group mean")
	cmd.Flags().Float64Var(&f.sd, "sd", 3, "Shared standard deviation")
	cmd.Flags().IntVar(&f.replicates, "replicates", sim.Replicates, "Simulated experiments per sample size")
	cmd.Flags().Float64Var(&f.alpha, "alpha", sim.Alpha, "Significance level")
	cmd.Flags().Float64Var(&f.confidence, "confidence", sim.Confidence, "Confidence level of the power interval")
	cmd.Flags().BoolVar(&f.welch, "welch", sim.Test == "welch", "Use Welch's unequal-variance t-test")
	cmd.Flags().Int64Var(&f.seed, "seed", sim.Seed, "Random seed for deterministic runs")
}

func (f *trialFlags) params(e *env) power.TrialParams {
	p := e.cfg.BaseParams()
	p.ControlMean = f.control
	p.TreatmentMean = f.treatment
	p.SD = f.sd
	p.Replicates = f.replicates
	p.Alpha = f.alpha
	p.Confidence = f.confidence
	p.Test = power.TestStudent
	if f.welch {
		p.Test = power.TestWelch
	}
	return p
}

func newEstimateCmd(e *env) *cobra.Command {
	var tf trialFlags
	var n int

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate power at one sample size",
		Long: `Estimate power at a single sample size per group and compare it with the
analytic approximation.

Example: powersim estimate --control 10 --treatment 12 --sd 3 --n 30 --replicates 5000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			params := tf.params(e).WithN(n)
			est, err := svc.Estimate(cmd.Context(), params, tf.seed)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "n per group:    %d\n", est.N)
			fmt.Fprintf(out, "cohen's d:      %.3f\n", params.CohensD())
			fmt.Fprintf(out, "test:           %s\n", params.Test)
			fmt.Fprintf(out, "power:          %.4f (%d/%d rejections)\n", est.Power, est.Rejections, est.Replicates)
			fmt.Fprintf(out, "std error:      %.4f\n", est.StdError)
			fmt.Fprintf(out, "%.0f%% interval:   [%.4f, %.4f]\n", params.Confidence*100, est.CILow, est.CIHigh)
			fmt.Fprintf(out, "analytic power: %.4f\n", power.AnalyticPower(params))
			if n := power.AnalyticSampleSize(params, e.cfg.Simulation.Target); n > 0 {
				fmt.Fprintf(out, "analytic N for power %.2f: %d\n", e.cfg.Simulation.Target, n)
			}
			return nil
		},
	}
	tf.register(cmd, e)
	cmd.Flags().IntVar(&n, "n", 30, "Sample size per group")
	return cmd
}

// outputFlags name files a finished run is exported to.
type outputFlags struct {
	svg, xlsx, csv, html, md string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.svg, "svg", "", "Write the power curve plot to this SVG file")
	cmd.Flags().StringVar(&o.xlsx, "xlsx", "", "Write the power table and chart to this workbook")
	cmd.Flags().StringVar(&o.csv, "csv", "", "Write the power table to this CSV file")
	cmd.Flags().StringVar(&o.html, "html", "", "Write an HTML report to this file")
	cmd.Flags().StringVar(&o.md, "md", "", "Write a markdown report to this file")
}

func (o *outputFlags) write(run *power.Run) ([]string, error) {
	outputs := []struct{ format, path string }{
		{"svg", o.svg},
		{"xlsx", o.xlsx},
		{"csv", o.csv},
		{"html", o.html},
		{"md", o.md},
	}
	var written []string
	for _, out := range outputs {
		if out.path == "" {
			continue
		}
		if err := exportRun(out.path, out.format, run); err != nil {
			return written, err
		}
		written = append(written, out.path)
	}
	return written, nil
}

func newSweepCmd(e *env) *cobra.Command {
	var tf trialFlags
	var out outputFlags
	var scenarioName string
	var nMin, nMax, nStep int
	var target float64
	var save bool
	var seeds int

	sim := e.cfg.Simulation
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Sweep power across sample sizes and find the minimum N",
		Long: `Estimate power for every N in [n-min, n-max] and report the smallest N whose
power reaches the target. Each N uses its own random stream derived from the
seed, so the table does not depend on the number of workers.

Example: powersim sweep --scenario minimum_detectable --n-max 200 --svg power.svg --save`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := e.service(ctx, save)
			if err != nil {
				return err
			}

			params := tf.params(e)
			scenario := power.ScenarioFromParams(params)
			if scenarioName != "" {
				if scenario, err = findScenario(sim.ScenariosFile, scenarioName); err != nil {
					return err
				}
			}
			r := power.SampleRange{Min: nMin, Max: nMax, Step: nStep}

			if seeds > 1 {
				return runAveragedSweep(cmd, svc, params.WithScenario(scenario), scenario.Name, r, tf.seed, seeds, target)
			}

			run, err := svc.RunSweep(ctx, app.SweepRequest{
				Scenario: scenario,
				Params:   params,
				Range:    r,
				Target:   target,
				Seed:     tf.seed,
				Save:     save,
			})
			if err != nil && !errors.Is(err, core.ErrTargetNotFound) {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, report.CurveTable(run))
			fmt.Fprintln(w, report.MinimumLine(run))
			if save {
				fmt.Fprintf(w, "saved run %s\n", run.ID)
			}
			written, werr := out.write(run)
			for _, path := range written {
				fmt.Fprintf(w, "wrote %s\n", path)
			}
			return werr
		},
	}
	tf.register(cmd, e)
	out.register(cmd)
	cmd.Flags().StringVar(&scenarioName, "scenario", "", "Named scenario to sweep instead of --control/--treatment/--sd")
	cmd.Flags().IntVar(&nMin, "n-min", sim.NMin, "Smallest sample size per group")
	cmd.Flags().IntVar(&nMax, "n-max", sim.NMax, "Largest sample size per group")
	cmd.Flags().IntVar(&nStep, "n-step", sim.NStep, "Step between sample sizes")
	cmd.Flags().Float64Var(&target, "target", sim.Target, "Target power")
	cmd.Flags().BoolVar(&save, "save", false, "Persist the run to the database")
	cmd.Flags().IntVar(&seeds, "seeds", 1, "Average the curve over this many consecutive seeds")
	return cmd
}

func runAveragedSweep(cmd *cobra.Command, svc *app.PowerService, params power.TrialParams, scenario string, r power.SampleRange, seed int64, count int, target float64) error {
	seeds := make([]int64, count)
	for i := range seeds {
		seeds[i] = seed + int64(i)
	}
	avg, err := svc.AverageSweep(cmd.Context(), params, r, seeds)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%6s  %10s  %8s  %8s  %8s\n", "N", "mean power", "sd", "min", "max")
	for _, p := range avg.Points {
		fmt.Fprintf(w, "%6d  %10.4f  %8.4f  %8.4f  %8.4f\n", p.N, p.MeanPower, p.SDPower, p.MinPower, p.MaxPower)
	}
	fmt.Fprintf(w, "decreasing steps beyond 0.01: %d\n", avg.Decreases(0.01))

	minimum, err := avg.MeanCurve(scenario).MinimumN(target)
	if err != nil {
		fmt.Fprintf(w, "%s: %v\n", scenario, err)
		return nil
	}
	fmt.Fprintf(w, "%s: minimum N = %d per group (mean power %.3f over %d seeds)\n", scenario, minimum.N, minimum.Power, count)
	return nil
}

func newScenariosCmd(e *env) *cobra.Command {
	var file, initPath string
	var save, plots bool
	var target float64
	var seed int64

	sim := e.cfg.Simulation
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "Sweep every named scenario and compare minimum N",
		Long: `Sweep each scenario in a YAML file (or the built-in biologically_important and
minimum_detectable scenarios) over the configured sample size range.

Example: powersim scenarios --file scenarios.yaml --plots`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if initPath != "" {
				if err := scenariofile.Save(initPath, power.DefaultScenarios()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", initPath)
				return nil
			}

			scenarios, err := scenariofile.Load(file)
			if err != nil {
				return err
			}
			svc, err := e.service(ctx, save)
			if err != nil {
				return err
			}

			runs, err := svc.RunScenarios(ctx, scenarios, app.SweepRequest{
				Params: e.cfg.BaseParams(),
				Range:  e.cfg.Range(),
				Target: target,
				Seed:   seed,
				Save:   save,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, report.SummaryTable(runs))
			if plots {
				for _, run := range runs {
					path := filepath.Join(e.cfg.Storage.OutputDir, run.Scenario.Name+".svg")
					if err := exportRun(path, "svg", run); err != nil {
						return err
					}
					fmt.Fprintf(w, "wrote %s\n", path)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", sim.ScenariosFile, "YAML scenario file (default: built-in scenarios)")
	cmd.Flags().BoolVar(&save, "save", false, "Persist every run to the database")
	cmd.Flags().StringVar(&initPath, "init", "", "Write the built-in scenarios to this YAML file and exit")
	cmd.Flags().BoolVar(&plots, "plots", false, "Write one SVG plot per scenario to the output directory")
	cmd.Flags().Float64Var(&target, "target", sim.Target, "Target power")
	cmd.Flags().Int64Var(&seed, "seed", sim.Seed, "Random seed for deterministic runs")
	return cmd
}

func newRunsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect persisted sweep runs",
	}

	var scenario string
	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.service(cmd.Context(), true)
			if err != nil {
				return err
			}
			runs, err := svc.ListRuns(cmd.Context(), ports.RunFilters{Scenario: scenario, Limit: limit})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, r := range runs {
				minimum := "-"
				if r.MinimumN != nil {
					minimum = fmt.Sprint(*r.MinimumN)
				}
				fmt.Fprintf(w, "%s  %-24s  target %.2f  minimum N %-5s  %s\n",
					r.ID, r.Scenario, r.Target, minimum, r.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
	listCmd.Flags().StringVar(&scenario, "scenario", "", "Only runs of this scenario")
	listCmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")

	var format, output string
	showCmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show a saved run, or export it with --format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseRunID(args[0])
			if err != nil {
				return err
			}
			svc, err := e.service(cmd.Context(), true)
			if err != nil {
				return err
			}
			run, err := svc.GetRun(cmd.Context(), id)
			if err != nil {
				return err
			}

			if format == "" {
				w := cmd.OutOrStdout()
				fmt.Fprintln(w, report.CurveTable(run))
				fmt.Fprintln(w, report.MinimumLine(run))
				return nil
			}
			if output != "" {
				return exportRun(output, format, run)
			}
			exporter, err := report.ExporterFor(format)
			if err != nil {
				return err
			}
			return exporter.Export(cmd.OutOrStdout(), run)
		},
	}
	showCmd.Flags().StringVar(&format, "format", "", "Export format: svg, csv, md, html or xlsx")
	showCmd.Flags().StringVarP(&output, "output", "o", "", "Write the export to this file instead of stdout")

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}

func newServeCmd(e *env) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the power analysis HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.deps.InitWithDatabase(cmd.Context()); err != nil {
				return err
			}
			return e.deps.APIServer().ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", e.cfg.Server.Addr, "Listen address")
	return cmd
}

func newLookupCmd(e *env) *cobra.Command {
	var target float64

	cmd := &cobra.Command{
		Use:   "lookup [table.csv|table.xlsx]",
		Short: "Find the minimum N in an exported power table",
		Long: `Read a power table written by --csv or --xlsx and report the smallest N whose
power reaches the target, without re-running the simulation.

Example: powersim lookup results/curve.csv --target 0.9`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			curve, err := readTable(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			minimum, err := curve.MinimumN(target)
			if errors.Is(err, core.ErrTargetNotFound) {
				fmt.Fprintf(w, "%s: %v\n", args[0], err)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s: minimum N = %d per group (power %.3f >= %.2f)\n", args[0], minimum.N, minimum.Power, target)
			return nil
		},
	}
	cmd.Flags().Float64Var(&target, "target", e.cfg.Simulation.Target, "Target power")
	return cmd
}

func readTable(path string) (power.Curve, error) {
	f, err := os.Open(path)
	if err != nil {
		return power.Curve{}, err
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return excel.ReadCurve(f, name)
	case ".csv":
		return report.ReadCSV(f, name)
	}
	return power.Curve{}, core.NewInvalidParameterError("table", fmt.Sprintf("%s: expected a .csv or .xlsx file", path))
}

func findScenario(file, name string) (power.Scenario, error) {
	scenarios, err := scenariofile.Load(file)
	if err != nil {
		return power.Scenario{}, err
	}
	names := make([]string, 0, len(scenarios))
	for _, s := range scenarios {
		if s.Name == name {
			return s, nil
		}
		names = append(names, s.Name)
	}
	return power.Scenario{}, core.NewInvalidParameterError("scenario",
		fmt.Sprintf("unknown %q, expected one of %s", name, strings.Join(names, ", ")))
}

func exportRun(path, format string, run *power.Run) error {
	exporter, err := report.ExporterFor(format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := exporter.Export(f, run); err != nil {
		_ = f.Close()
		return apperrors.ExportFailed(format, fmt.Errorf("%s: %w", path, err))
	}
	return f.Close()
}
