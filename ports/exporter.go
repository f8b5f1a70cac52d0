package ports

import (
	"io"

	"powersim/domain/power"
)

// RunExporter renders a completed run into a file format (svg, csv, xlsx, html).
type RunExporter interface {
	Format() string
	Export(w io.Writer, run *power.Run) error
}
