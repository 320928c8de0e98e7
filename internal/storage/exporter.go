package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mvp-joe/py-flow-trace/internal/graph"
)

// Exporter appends each analyzed call graph as a new run in a SQLite database.
type Exporter struct {
	dbPath string
	root   string
}

// NewExporter creates an exporter writing to dbPath, recording root on every run.
func NewExporter(dbPath, root string) *Exporter {
	return &Exporter{dbPath: dbPath, root: root}
}

// Name identifies the exporter.
func (e *Exporter) Name() string {
	return "sqlite"
}

// Export writes g as a new run and returns the database path.
func (e *Exporter) Export(ctx context.Context, g *graph.CallGraph) (string, error) {
	if dir := filepath.Dir(e.dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	writer, err := NewGraphWriter(e.dbPath)
	if err != nil {
		return "", err
	}
	defer writer.Close()

	if _, err := writer.WriteRun(ctx, e.root, g); err != nil {
		return "", err
	}
	return e.dbPath, nil
}
