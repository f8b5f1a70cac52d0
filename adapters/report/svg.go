package report

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"math"

	"powersim/domain/power"
	"powersim/ports"
)

// Plot geometry in SVG user units.
const (
	plotWidth   = 720
	plotHeight  = 420
	marginLeft  = 64
	marginRight = 24
	marginTop   = 48
	marginBot   = 56
)

// SVGExporter draws power against N with a dashed reference line at the
// target and a vertical line at the minimum N.
type SVGExporter struct{}

var _ ports.RunExporter = SVGExporter{}

func (SVGExporter) Format() string { return "svg" }

func (SVGExporter) Export(w io.Writer, run *power.Run) error {
	bw := bufio.NewWriter(w)
	writeSVG(bw, run)
	return bw.Flush()
}

type axes struct {
	nMin, nMax float64
}

func (a axes) x(n float64) float64 {
	inner := float64(plotWidth - marginLeft - marginRight)
	if a.nMax == a.nMin {
		return marginLeft + inner/2
	}
	return marginLeft + (n-a.nMin)/(a.nMax-a.nMin)*inner
}

func (a axes) y(p float64) float64 {
	inner := float64(plotHeight - marginTop - marginBot)
	return marginTop + (1-p)*inner
}

func writeSVG(w *bufio.Writer, run *power.Run) {
	curve := run.Curve.Sorted()
	ax := axes{nMin: float64(run.Range.Min), nMax: float64(run.Range.Max)}
	if len(curve.Points) > 0 {
		ax.nMin = math.Min(ax.nMin, float64(curve.Points[0].N))
		ax.nMax = math.Max(ax.nMax, float64(curve.Points[len(curve.Points)-1].N))
	}

	fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif" font-size="12">`+"\n",
		plotWidth, plotHeight, plotWidth, plotHeight)
	fmt.Fprintf(w, `<rect width="%d" height="%d" fill="white"/>`+"\n", plotWidth, plotHeight)
	fmt.Fprintf(w, `<text x="%d" y="%d" font-size="15" text-anchor="middle">%s</text>`+"\n",
		plotWidth/2, marginTop/2+4, html.EscapeString(plotTitle(run)))

	left, right := ax.x(ax.nMin), ax.x(ax.nMax)
	top, bottom := ax.y(1), ax.y(0)

	// y grid and labels
	for i := 0; i <= 5; i++ {
		p := float64(i) / 5
		y := ax.y(p)
		fmt.Fprintf(w, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#e5e5e5"/>`+"\n", left, y, right, y)
		fmt.Fprintf(w, `<text x="%.1f" y="%.1f" text-anchor="end">%.1f</text>`+"\n", left-6, y+4, p)
	}
	// x ticks
	step := tickStep(ax.nMax - ax.nMin)
	for n := math.Ceil(ax.nMin/step) * step; n <= ax.nMax; n += step {
		x := ax.x(n)
		fmt.Fprintf(w, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333"/>`+"\n", x, bottom, x, bottom+5)
		fmt.Fprintf(w, `<text x="%.1f" y="%.1f" text-anchor="middle">%g</text>`+"\n", x, bottom+18, n)
	}
	fmt.Fprintf(w, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333"/>`+"\n", left, bottom, right, bottom)
	fmt.Fprintf(w, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333"/>`+"\n", left, top, left, bottom)
	fmt.Fprintf(w, `<text x="%.1f" y="%d" text-anchor="middle">Sample size per group (N)</text>`+"\n", (left+right)/2, plotHeight-14)
	fmt.Fprintf(w, `<text x="16" y="%.1f" text-anchor="middle" transform="rotate(-90 16 %.1f)">Power</text>`+"\n", (top+bottom)/2, (top+bottom)/2)

	// target
	ty := ax.y(run.Target)
	fmt.Fprintf(w, `<line class="target" x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#d62728" stroke-dasharray="6 4"/>`+"\n", left, ty, right, ty)
	fmt.Fprintf(w, `<text x="%.1f" y="%.1f" text-anchor="end" fill="#d62728">target %.2f</text>`+"\n", right, ty-6, run.Target)

	if len(curve.Points) > 0 {
		fmt.Fprint(w, `<polyline class="power" fill="none" stroke="#1f77b4" stroke-width="2" points="`)
		for i, p := range curve.Points {
			if i > 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprintf(w, "%.1f,%.1f", ax.x(float64(p.N)), ax.y(p.Power))
		}
		fmt.Fprint(w, `"/>`+"\n")
	}

	if run.MinimumN != nil {
		mx := ax.x(float64(*run.MinimumN))
		fmt.Fprintf(w, `<line class="minimum-n" x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#2ca02c" stroke-width="1.5"/>`+"\n", mx, top, mx, bottom)
		fmt.Fprintf(w, `<text x="%.1f" y="%.1f" fill="#2ca02c">N = %d</text>`+"\n", mx+6, top+14, *run.MinimumN)
	}

	fmt.Fprint(w, "</svg>\n")
}

func plotTitle(run *power.Run) string {
	return fmt.Sprintf("Power curve: %s (d = %.2f, %s t-test, alpha = %g)",
		run.Scenario.Name, run.Params.CohensD(), run.Params.Test, run.Params.Alpha)
}

// tickStep picks a 1/2/5 step giving roughly eight ticks over span.
func tickStep(span float64) float64 {
	if span <= 0 {
		return 1
	}
	raw := span / 8
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range []float64{1, 2, 5, 10} {
		if step := m * mag; step >= raw {
			return math.Max(1, step)
		}
	}
	return math.Max(1, 10*mag)
}
