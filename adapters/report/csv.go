package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"powersim/domain/power"
	"powersim/ports"
)

var csvHeader = []string{"n", "power", "se", "ci_low", "ci_high"}

// CSVExporter writes the power table, one row per N.
type CSVExporter struct{}

var _ ports.RunExporter = CSVExporter{}

func (CSVExporter) Format() string { return "csv" }

func (CSVExporter) Export(w io.Writer, run *power.Run) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range run.Curve.Sorted().Points {
		record := []string{
			strconv.Itoa(p.N),
			formatFloat(p.Power),
			formatFloat(p.StdError),
			formatFloat(p.CILow),
			formatFloat(p.CIHigh),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write n=%d: %w", p.N, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table written by CSVExporter.
func ReadCSV(r io.Reader, scenario string) (power.Curve, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return power.Curve{}, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return power.Curve{}, fmt.Errorf("read csv: missing header")
	}
	for i, col := range csvHeader {
		if i >= len(records[0]) || records[0][i] != col {
			return power.Curve{}, fmt.Errorf("read csv: unexpected header %v", records[0])
		}
	}

	curve := power.Curve{Scenario: scenario, Points: make([]power.Estimate, 0, len(records)-1)}
	for line, rec := range records[1:] {
		n, err := strconv.Atoi(rec[0])
		if err != nil {
			return power.Curve{}, fmt.Errorf("line %d: n: %w", line+2, err)
		}
		var vals [4]float64
		for j := range vals {
			if vals[j], err = strconv.ParseFloat(rec[j+1], 64); err != nil {
				return power.Curve{}, fmt.Errorf("line %d: %s: %w", line+2, csvHeader[j+1], err)
			}
		}
		curve.Points = append(curve.Points, power.Estimate{
			N: n, Power: vals[0], StdError: vals[1], CILow: vals[2], CIHigh: vals[3],
		})
	}
	return curve, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
