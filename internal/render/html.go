// Package render produces the self-contained HTML visualization of a call graph.
package render

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"

	"github.com/mvp-joe/py-flow-trace/internal/graph"
)

// DefaultOutputFile is the name of the visualization page.
const DefaultOutputFile = "template.html"

// D3URL is the d3 v5 bundle the page loads.
const D3URL = "https://d3js.org/d3.v5.min.js"

//go:embed templates/graph.html.tmpl
var graphTemplate string

var page = template.Must(template.New("graph").Parse(graphTemplate))

// Options controls the rendered page.
type Options struct {
	Title  string
	Width  int
	Height int
}

// DefaultOptions returns the standard page settings.
func DefaultOptions() Options {
	return Options{
		Title:  "Call Relations Visualization",
		Width:  2000,
		Height: 1500,
	}
}

type pageData struct {
	Title  string
	D3URL  string
	Data   template.JS
	Width  int
	Height int
}

// Render writes the page for g to w. The graph is embedded inline with the
// same nested {caller: {callee: count}} shape as the JSON artifact.
func Render(w io.Writer, g *graph.CallGraph, opts Options) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal call graph: %w", err)
	}

	return page.Execute(w, pageData{
		Title:  opts.Title,
		D3URL:  D3URL,
		Data:   template.JS(data),
		Width:  opts.Width,
		Height: opts.Height,
	})
}

// HTMLExporter writes the visualization page after each analysis.
type HTMLExporter struct {
	path string
	opts Options
}

// NewHTMLExporter creates an exporter writing to path.
func NewHTMLExporter(path string, opts Options) *HTMLExporter {
	return &HTMLExporter{path: path, opts: opts}
}

// Name identifies the exporter.
func (e *HTMLExporter) Name() string {
	return "html"
}

// Export renders g and writes it atomically to the configured path.
func (e *HTMLExporter) Export(ctx context.Context, g *graph.CallGraph) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, g, e.opts); err != nil {
		return "", err
	}

	if dir := filepath.Dir(e.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Write to temp file
	tmpPath := e.path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, e.path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to rename temp file: %w", err)
	}

	return e.path, nil
}
