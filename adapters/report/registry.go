package report

import (
	"fmt"
	"sort"

	"powersim/adapters/excel"
	"powersim/domain/core"
	"powersim/ports"
)

// Exporters returns every run exporter keyed by format.
func Exporters() map[string]ports.RunExporter {
	all := []ports.RunExporter{
		SVGExporter{},
		CSVExporter{},
		MarkdownExporter{},
		HTMLExporter{},
		excel.WorkbookExporter{},
	}
	out := make(map[string]ports.RunExporter, len(all))
	for _, e := range all {
		out[e.Format()] = e
	}
	return out
}

// ExporterFor looks up an exporter by format name.
func ExporterFor(format string) (ports.RunExporter, error) {
	all := Exporters()
	if e, ok := all[format]; ok {
		return e, nil
	}
	formats := make([]string, 0, len(all))
	for f := range all {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return nil, core.NewInvalidParameterError("format", fmt.Sprintf("unknown %q, expected one of %v", format, formats))
}
