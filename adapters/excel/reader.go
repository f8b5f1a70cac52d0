package excel

import (
	"fmt"
	"io"
	"strconv"

	"powersim/domain/power"

	"github.com/xuri/excelize/v2"
)

// ReadCurve reads the power sheet of a workbook written by WorkbookExporter.
func ReadCurve(r io.Reader, scenario string) (power.Curve, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return power.Curve{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(curveSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return power.Curve{}, fmt.Errorf("read sheet %s: %w", curveSheet, err)
	}
	if len(rows) == 0 {
		return power.Curve{}, fmt.Errorf("sheet %s is empty", curveSheet)
	}

	curve := power.Curve{Scenario: scenario}
	for i, row := range rows[1:] {
		if len(row) < 5 {
			return power.Curve{}, fmt.Errorf("row %d: expected 5 columns, got %d", i+2, len(row))
		}
		var vals [5]float64
		for j := range vals {
			if vals[j], err = strconv.ParseFloat(row[j], 64); err != nil {
				return power.Curve{}, fmt.Errorf("row %d column %s: %w", i+2, curveHeader[j], err)
			}
		}
		curve.Points = append(curve.Points, power.Estimate{
			N:        int(vals[0]),
			Power:    vals[1],
			StdError: vals[2],
			CILow:    vals[3],
			CIHigh:   vals[4],
		})
	}
	return curve, nil
}
