package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultOutputFile is the name of the call graph artifact.
const DefaultOutputFile = "analysis_result.json"

// jsonIndent matches the 4-space layout of the artifact.
const jsonIndent = "    "

// Storage handles reading and writing the call graph artifact.
type Storage interface {
	// Load loads the graph from disk. Returns nil if the file doesn't exist.
	Load() (*CallGraph, error)

	// Save saves the graph to disk using atomic write pattern.
	Save(g *CallGraph) error

	// Exists checks if the artifact exists.
	Exists() bool

	// Path returns the artifact location.
	Path() string
}

// storage implements Storage with atomic write support.
type storage struct {
	path string
}

// NewStorage creates a storage for the artifact at path.
func NewStorage(path string) (Storage, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return &storage{path: path}, nil
}

// Load loads the call graph from disk.
func (s *storage) Load() (*CallGraph, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil, nil // No artifact yet
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read call graph file: %w", err)
	}

	g := NewCallGraph()
	if err := json.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("failed to parse call graph JSON: %w", err)
	}
	return g, nil
}

// Save writes the graph as {caller: {callee: count}}.
func (s *storage) Save(g *CallGraph) error {
	data, err := MarshalIndent(g)
	if err != nil {
		return err
	}

	// Write to temp file in the same directory, then rename over the target
	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp call graph file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp call graph file: %w", err)
	}

	return nil
}

// Exists checks if the artifact exists.
func (s *storage) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

func (s *storage) Path() string {
	return s.path
}

// MarshalIndent encodes the graph in the artifact layout.
func MarshalIndent(g *CallGraph) ([]byte, error) {
	data, err := json.MarshalIndent(g, "", jsonIndent)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal call graph: %w", err)
	}
	return data, nil
}
