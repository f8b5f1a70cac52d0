package report

import (
	"bytes"
	"fmt"
	"io"

	"powersim/domain/power"
	"powersim/ports"
)

// MarkdownExporter writes a run summary and its power table as markdown.
type MarkdownExporter struct{}

var _ ports.RunExporter = MarkdownExporter{}

func (MarkdownExporter) Format() string { return "md" }

func (MarkdownExporter) Export(w io.Writer, run *power.Run) error {
	_, err := w.Write(Markdown(run))
	return err
}

// Markdown renders the run report.
func Markdown(run *power.Run) []byte {
	var b bytes.Buffer
	p := run.Params

	fmt.Fprintf(&b, "# Power analysis: %s\n\n", run.Scenario.Name)
	if run.Scenario.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", run.Scenario.Description)
	}

	fmt.Fprintf(&b, "| Parameter | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Control mean | %g |\n", p.ControlMean)
	fmt.Fprintf(&b, "| Treatment mean | %g |\n", p.TreatmentMean)
	fmt.Fprintf(&b, "| SD | %g |\n", p.SD)
	fmt.Fprintf(&b, "| Cohen's d | %.3f |\n", p.CohensD())
	fmt.Fprintf(&b, "| Test | %s |\n", p.Test)
	fmt.Fprintf(&b, "| Alpha | %g |\n", p.Alpha)
	fmt.Fprintf(&b, "| Replicates | %d |\n", p.Replicates)
	fmt.Fprintf(&b, "| Sample sizes | %s |\n", run.Range.String())
	fmt.Fprintf(&b, "| Seed | %d |\n", run.Seed)
	fmt.Fprintf(&b, "| Target power | %g |\n\n", run.Target)

	if est, ok := run.MinimumEstimate(); ok {
		fmt.Fprintf(&b, "**Minimum N per group: %d** (power %.3f, %.0f%% CI %.3f to %.3f)\n\n",
			est.N, est.Power, p.Confidence*100, est.CILow, est.CIHigh)
	} else {
		fmt.Fprintf(&b, "**Target power %g not reached in %s.** Widen the sample size range.\n\n",
			run.Target, run.Range.String())
	}

	fmt.Fprintf(&b, "## Power table\n\n| N | Power | SE | CI low | CI high |\n|---:|---:|---:|---:|---:|\n")
	for _, e := range run.Curve.Sorted().Points {
		marker := ""
		if run.MinimumN != nil && e.N == *run.MinimumN {
			marker = " *"
		}
		fmt.Fprintf(&b, "| %d%s | %.3f | %.4f | %.3f | %.3f |\n", e.N, marker, e.Power, e.StdError, e.CILow, e.CIHigh)
	}

	fmt.Fprintf(&b, "\nRun `%s`, fingerprint `%s`.\n", run.ID, run.Fingerprint.Short())
	return b.Bytes()
}
