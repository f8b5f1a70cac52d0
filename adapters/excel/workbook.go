package excel

import (
	"fmt"
	"io"

	"powersim/domain/power"
	"powersim/ports"

	"github.com/xuri/excelize/v2"
)

const (
	curveSheet   = "power"
	summarySheet = "summary"
)

var curveHeader = []interface{}{"n", "power", "std_error", "ci_low", "ci_high", "target"}

// WorkbookExporter writes the power table and a native line chart with the
// target as a second, flat series.
type WorkbookExporter struct{}

var _ ports.RunExporter = WorkbookExporter{}

func (WorkbookExporter) Format() string { return "xlsx" }

// Export writes an .xlsx workbook to w
func (WorkbookExporter) Export(w io.Writer, run *power.Run) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", curveSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeCurve(f, run); err != nil {
		return err
	}
	if err := writeSummary(f, run); err != nil {
		return err
	}
	if len(run.Curve.Points) > 0 {
		if err := addChart(f, run); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeCurve(f *excelize.File, run *power.Run) error {
	if err := f.SetSheetRow(curveSheet, "A1", &curveHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, p := range run.Curve.Sorted().Points {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{p.N, p.Power, p.StdError, p.CILow, p.CIHigh, run.Target}
		if err := f.SetSheetRow(curveSheet, cell, &row); err != nil {
			return fmt.Errorf("write row n=%d: %w", p.N, err)
		}
	}
	return f.SetColWidth(curveSheet, "A", "F", 12)
}

func writeSummary(f *excelize.File, run *power.Run) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}

	minimum := interface{}("not reached")
	if run.MinimumN != nil {
		minimum = *run.MinimumN
	}
	rows := [][]interface{}{
		{"run_id", run.ID.String()},
		{"scenario", run.Scenario.Name},
		{"control_mean", run.Params.ControlMean},
		{"treatment_mean", run.Params.TreatmentMean},
		{"sd", run.Params.SD},
		{"cohens_d", run.Params.CohensD()},
		{"test", string(run.Params.Test)},
		{"alpha", run.Params.Alpha},
		{"replicates", run.Params.Replicates},
		{"seed", run.Seed},
		{"target", run.Target},
		{"minimum_n", minimum},
		{"fingerprint", run.Fingerprint.String()},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	return f.SetColWidth(summarySheet, "A", "B", 20)
}

func addChart(f *excelize.File, run *power.Run) error {
	last := len(run.Curve.Points) + 1
	categories := fmt.Sprintf("%s!$A$2:$A$%d", curveSheet, last)
	yMin, yMax := 0.0, 1.0

	title := fmt.Sprintf("Power curve: %s", run.Scenario.Name)
	if run.MinimumN != nil {
		title = fmt.Sprintf("%s (minimum N = %d)", title, *run.MinimumN)
	}

	err := f.AddChart(curveSheet, "H2", &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{
			{
				Name:       fmt.Sprintf("%s!$B$1", curveSheet),
				Categories: categories,
				Values:     fmt.Sprintf("%s!$B$2:$B$%d", curveSheet, last),
			},
			{
				Name:       fmt.Sprintf("%s!$F$1", curveSheet),
				Categories: categories,
				Values:     fmt.Sprintf("%s!$F$2:$F$%d", curveSheet, last),
				Marker:     excelize.ChartMarker{Symbol: "none"},
			},
		},
		Title: []excelize.RichTextRun{{Text: title}},
		XAxis: excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "N per group"}}},
		YAxis: excelize.ChartAxis{
			Title:   []excelize.RichTextRun{{Text: "Power"}},
			Minimum: &yMin,
			Maximum: &yMax,
		},
		Dimension: excelize.ChartDimension{Width: 640, Height: 360},
	})
	if err != nil {
		return fmt.Errorf("add chart: %w", err)
	}
	return nil
}
