package report

import (
	"fmt"
	"strconv"

	"powersim/domain/power"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
	minimumStyle = cellStyle.Foreground(lipgloss.Color("42")).Bold(true)
	missStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// CurveTable renders the power table of a run for the terminal, with the
// minimum-N row highlighted.
func CurveTable(run *power.Run) string {
	points := run.Curve.Sorted().Points
	rows := make([][]string, len(points))
	highlight := -1
	for i, p := range points {
		rows[i] = []string{
			strconv.Itoa(p.N),
			fmt.Sprintf("%.3f", p.Power),
			fmt.Sprintf("%.4f", p.StdError),
			fmt.Sprintf("[%.3f, %.3f]", p.CILow, p.CIHigh),
		}
		if run.MinimumN != nil && p.N == *run.MinimumN {
			highlight = i
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("N", "Power", "SE", "CI").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == highlight:
				return minimumStyle
			default:
				return cellStyle
			}
		})
	return t.String()
}

// SummaryTable renders one line per run: scenario, effect size and minimum N.
func SummaryTable(runs []*power.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		minimum := missStyle.Render("not reached")
		if run.MinimumN != nil {
			minimum = strconv.Itoa(*run.MinimumN)
		}
		rows = append(rows, []string{
			run.Scenario.Name,
			fmt.Sprintf("%.3f", run.Params.CohensD()),
			run.Range.String(),
			fmt.Sprintf("%.2f", run.Target),
			minimum,
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Scenario", "d", "N range", "Target", "Minimum N").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		String()
}

// MinimumLine is the one-line verdict printed after a sweep.
func MinimumLine(run *power.Run) string {
	if est, ok := run.MinimumEstimate(); ok {
		return fmt.Sprintf("%s: minimum N = %d per group (power %.3f >= %.2f)",
			run.Scenario.Name, est.N, est.Power, run.Target)
	}
	return missStyle.Render(fmt.Sprintf("%s: target %.2f not reached in %s",
		run.Scenario.Name, run.Target, run.Range.String()))
}
