package power

import (
	"sort"

	"powersim/domain/core"
)

// Curve is the power table of a sweep: one estimate per candidate N, in
// increasing N order.
type Curve struct {
	Scenario string     `json:"scenario"`
	Points   []Estimate `json:"points"`
}

// Len returns the number of rows.
func (c Curve) Len() int { return len(c.Points) }

// Sizes returns the N column.
func (c Curve) Sizes() []int {
	sizes := make([]int, len(c.Points))
	for i, p := range c.Points {
		sizes[i] = p.N
	}
	return sizes
}

// Sorted returns a copy of the curve ordered by increasing N.
func (c Curve) Sorted() Curve {
	points := make([]Estimate, len(c.Points))
	copy(points, c.Points)
	sort.SliceStable(points, func(i, j int) bool { return points[i].N < points[j].N })
	return Curve{Scenario: c.Scenario, Points: points}
}

// MinimumN scans the table in increasing N order and returns the first row
// whose power reaches target. It fails with core.ErrTargetNotFound when no
// row does; the caller decides whether to widen the range.
func (c Curve) MinimumN(target float64) (Estimate, error) {
	if err := ValidateTarget(target); err != nil {
		return Estimate{}, err
	}
	sorted := c.Sorted()
	for _, p := range sorted.Points {
		if p.Meets(target) {
			return p, nil
		}
	}
	nMin, nMax := 0, 0
	if len(sorted.Points) > 0 {
		nMin, nMax = sorted.Points[0].N, sorted.Points[len(sorted.Points)-1].N
	}
	return Estimate{}, core.NewTargetNotFoundError(target, nMin, nMax)
}

// CurveFromTable builds a curve from bare (N, power) pairs.
func CurveFromTable(scenario string, table map[int]float64) Curve {
	points := make([]Estimate, 0, len(table))
	for n, p := range table {
		points = append(points, Estimate{N: n, Power: p})
	}
	return Curve{Scenario: scenario, Points: points}.Sorted()
}
