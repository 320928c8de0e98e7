package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/mvp-joe/py-flow-trace/internal/graph"
)

// sqliteStorage implements graph.Storage using the latest exported run.
// This allows the graph searcher to load data from SQLite instead of JSON files.
type sqliteStorage struct {
	reader *GraphReader
	path   string
}

// NewSQLiteGraphStorage creates a graph.Storage implementation backed by SQLite.
func NewSQLiteGraphStorage(reader *GraphReader, path string) graph.Storage {
	return &sqliteStorage{reader: reader, path: path}
}

// Load loads the latest run. Returns nil if nothing was exported yet.
func (s *sqliteStorage) Load() (*graph.CallGraph, error) {
	ctx := context.Background()

	run, err := s.reader.LatestRun(ctx)
	if errors.Is(err, ErrNoRuns) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.reader.ReadGraph(ctx, run.ID)
}

// Save is not supported for SQLite storage.
// Use GraphWriter directly to write runs.
func (s *sqliteStorage) Save(g *graph.CallGraph) error {
	return fmt.Errorf("save not supported for SQLite storage (use storage.GraphWriter directly)")
}

// Exists checks if at least one run was exported.
func (s *sqliteStorage) Exists() bool {
	_, err := s.reader.LatestRun(context.Background())
	return err == nil
}

// Path returns the database location.
func (s *sqliteStorage) Path() string {
	return s.path
}
