package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"powersim/domain/power"
	"powersim/ports"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// HTMLExporter renders the markdown report as a standalone HTML page with
// the SVG plot inlined as a data URI.
type HTMLExporter struct{}

var _ ports.RunExporter = HTMLExporter{}

func (HTMLExporter) Format() string { return "html" }

func (HTMLExporter) Export(w io.Writer, run *power.Run) error {
	var plot bytes.Buffer
	if err := (SVGExporter{}).Export(&plot, run); err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	md := Markdown(run)
	md = append(md, fmt.Sprintf("\n![power curve](data:image/svg+xml;base64,%s)\n",
		base64.StdEncoding.EncodeToString(plot.Bytes()))...)

	_, err := w.Write(RenderHTML(md, "Power analysis: "+run.Scenario.Name))
	return err
}

// RenderHTML converts markdown to a complete HTML page.
func RenderHTML(md []byte, title string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML(md, p, renderer)
}
