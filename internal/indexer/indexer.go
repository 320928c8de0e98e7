package indexer

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/mvp-joe/py-flow-trace/internal/cache"
	"github.com/mvp-joe/py-flow-trace/internal/config"
	"github.com/mvp-joe/py-flow-trace/internal/graph"
	"github.com/mvp-joe/py-flow-trace/internal/indexer/parsers"
	"github.com/mvp-joe/py-flow-trace/internal/watcher"
)

// Indexer runs the analysis pipeline: discover, extract, aggregate, persist, export.
type Indexer interface {
	// Index analyzes every discovered file and writes the artifact and exports.
	Index(ctx context.Context) (*Stats, error)

	// Watch runs Index once, then again after each debounced batch of changes.
	// Unchanged files are served from the extraction cache.
	// Blocks until context is cancelled.
	Watch(ctx context.Context) error

	// Close releases all resources held by the indexer.
	Close() error
}

// Exporter writes an additional representation of a finished call graph.
type Exporter interface {
	// Name identifies the exporter in progress output.
	Name() string

	// Export writes the graph and returns where it went.
	Export(ctx context.Context, g *graph.CallGraph) (string, error)
}

// Config contains configuration for the indexer.
type Config struct {
	// Root directory of the Python project
	RootDir string

	// Ignore substrings (defaults included) and ignore globs
	Ignore      []string
	IgnoreGlobs []string

	// Number of files extracted concurrently, 0 = NumCPU
	Workers int

	// Record per-file failures instead of aborting the run
	KeepGoing bool

	// Call resolution options
	Extraction graph.Options
}

// NewConfig derives indexer settings from the loaded project configuration.
func NewConfig(cfg *config.Config) *Config {
	return &Config{
		RootDir:     cfg.Path,
		Ignore:      cfg.IgnoreList(),
		IgnoreGlobs: cfg.IgnoreGlobs,
		Workers:     cfg.Workers,
		KeepGoing:   cfg.KeepGoing,
		Extraction: graph.Options{
			RecordUnresolved: cfg.RecordUnresolved,
			ResolveAliases:   cfg.ResolveAliases,
		},
	}
}

// Stats summarizes one analysis run.
type Stats struct {
	Files    int           `json:"files"`
	Callers  int           `json:"callers"`
	Edges    int           `json:"edges"`
	Calls    int           `json:"calls"`
	Failures int           `json:"failures"`
	Duration time.Duration `json:"duration"`
}

// Option configures an indexer.
type Option func(*indexer)

// WithProgress configures progress reporting.
func WithProgress(progress ProgressReporter) Option {
	return func(idx *indexer) {
		idx.progress = progress
	}
}

// WithExporters adds exporters run after the artifact is saved.
func WithExporters(exporters ...Exporter) Option {
	return func(idx *indexer) {
		idx.exporters = append(idx.exporters, exporters...)
	}
}

// WithCache shares an extraction cache across runs.
func WithCache(c *cache.ExtractionCache) Option {
	return func(idx *indexer) {
		idx.cache = c
	}
}

// WithDebounce sets the watch-mode quiet period.
func WithDebounce(d time.Duration) Option {
	return func(idx *indexer) {
		idx.debounce = d
	}
}

// indexer implements the Indexer interface.
type indexer struct {
	config    *Config
	discovery *FileDiscovery
	storage   graph.Storage
	exporters []Exporter
	progress  ProgressReporter
	cache     *cache.ExtractionCache
	ownsCache bool
	debounce  time.Duration
	mu        sync.Mutex // Serializes runs
}

// New creates a new indexer writing its artifact through storage.
func New(cfg *Config, storage graph.Storage, opts ...Option) (Indexer, error) {
	discovery, err := NewFileDiscovery(cfg.RootDir, cfg.Ignore, cfg.IgnoreGlobs)
	if err != nil {
		return nil, fmt.Errorf("failed to create file discovery: %w", err)
	}

	idx := &indexer{
		config:    cfg,
		discovery: discovery,
		storage:   storage,
		progress:  &NoOpProgressReporter{},
	}
	for _, opt := range opts {
		opt(idx)
	}

	return idx, nil
}

// Index performs a full analysis of the project.
func (idx *indexer) Index(ctx context.Context) (*Stats, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	return idx.run(ctx)
}

func (idx *indexer) run(ctx context.Context) (*Stats, error) {
	startTime := time.Now()

	idx.progress.OnDiscoveryStart()
	files, err := idx.discovery.DiscoverFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	idx.progress.OnDiscoveryComplete(len(files))

	builderOpts := []graph.BuilderOption{
		graph.WithProgress(idx.progress),
		graph.WithWorkers(idx.config.Workers),
		graph.WithKeepGoing(idx.config.KeepGoing),
		graph.WithExtractionOptions(idx.config.Extraction),
	}
	if idx.cache != nil {
		builderOpts = append(builderOpts, graph.WithCache(idx.cache))
	}

	result, err := graph.NewBuilder(idx.config.RootDir, builderOpts...).Build(ctx, files)
	if err != nil {
		return nil, err
	}

	if err := idx.storage.Save(result.Graph); err != nil {
		return nil, fmt.Errorf("failed to save call graph: %w", err)
	}
	idx.progress.OnExported("json", idx.storage.Path())

	for _, exporter := range idx.exporters {
		path, err := exporter.Export(ctx, result.Graph)
		if err != nil {
			return nil, fmt.Errorf("failed to export %s: %w", exporter.Name(), err)
		}
		idx.progress.OnExported(exporter.Name(), path)
	}

	stats := &Stats{
		Files:    result.Files,
		Callers:  result.Graph.Len(),
		Edges:    result.Graph.EdgeCount(),
		Calls:    result.Graph.TotalCalls(),
		Failures: len(result.Failures),
		Duration: time.Since(startTime),
	}
	idx.progress.OnComplete(stats)

	return stats, nil
}

// Watch performs an initial analysis and re-runs it on file changes.
func (idx *indexer) Watch(ctx context.Context) error {
	if idx.cache == nil {
		c, err := cache.NewExtractionCache(cache.DefaultCapacity)
		if err != nil {
			return fmt.Errorf("failed to create extraction cache: %w", err)
		}
		idx.cache = c
		idx.ownsCache = true
	}

	if _, err := idx.Index(ctx); err != nil {
		return err
	}

	fw, err := watcher.NewFileWatcher([]string{idx.config.RootDir}, watcher.Options{
		Extensions: []string{parsers.PythonExtension},
		Debounce:   idx.debounce,
		Ignore:     idx.discovery.ShouldIgnore,
	})
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Stop()

	if err := fw.Start(ctx, func(files []string) {
		idx.handleChanges(ctx, files)
	}); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	log.Printf("Watching %s for changes...", idx.config.RootDir)
	<-ctx.Done()
	return nil
}

// handleChanges re-runs the analysis after a batch of changes.
// A failing run is logged and the previous artifact is left in place.
func (idx *indexer) handleChanges(ctx context.Context, files []string) {
	var removed []string
	for _, file := range files {
		if _, err := os.Stat(file); os.IsNotExist(err) {
			removed = append(removed, file)
		}
	}
	idx.cache.Invalidate(removed...)

	log.Printf("Detected %d changed file(s), re-analyzing...", len(files))
	stats, err := idx.Index(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("Warning: re-analysis failed: %v", err)
		}
		return
	}
	log.Printf("Re-analysis complete: %d callers, %d edges in %v", stats.Callers, stats.Edges, stats.Duration)
}

// Close releases resources.
func (idx *indexer) Close() error {
	if idx.ownsCache && idx.cache != nil {
		idx.cache.Close()
		idx.cache = nil
	}
	return nil
}
