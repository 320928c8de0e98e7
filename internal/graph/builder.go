package graph

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/py-flow-trace/internal/indexer/parsers"
)

// GraphProgressReporter reports progress during graph building.
type GraphProgressReporter interface {
	OnGraphBuildingStart(totalFiles int)
	OnGraphFileProcessed(processedFiles, totalFiles int, fileName string)
	OnGraphBuildingComplete(callerCount, edgeCount int, duration time.Duration)
}

// ExtractionCache stores per-file extraction results between builds.
// A hit must only be returned for identical source text.
type ExtractionCache interface {
	Get(filePath string, source []byte) (*FileCalls, bool)
	Put(filePath string, source []byte, calls *FileCalls)
}

// Builder builds a call graph from Python source files.
type Builder interface {
	// Build extracts every file and folds the call sites into one graph.
	// Files are folded in input order regardless of the number of workers.
	Build(ctx context.Context, files []string) (*Result, error)
}

// builder implements Builder.
type builder struct {
	extractor Extractor
	rootDir   string
	progress  GraphProgressReporter
	cache     ExtractionCache
	workers   int
	keepGoing bool
}

// BuilderOption configures a Builder.
type BuilderOption func(*builder)

// WithProgress configures progress reporting.
func WithProgress(progress GraphProgressReporter) BuilderOption {
	return func(b *builder) {
		b.progress = progress
	}
}

// WithWorkers sets the number of files extracted concurrently.
// Zero or negative means runtime.NumCPU().
func WithWorkers(n int) BuilderOption {
	return func(b *builder) {
		b.workers = n
	}
}

// WithKeepGoing isolates per-file failures instead of aborting the build.
func WithKeepGoing(keepGoing bool) BuilderOption {
	return func(b *builder) {
		b.keepGoing = keepGoing
	}
}

// WithExtractionOptions configures call resolution.
func WithExtractionOptions(opts Options) BuilderOption {
	return func(b *builder) {
		b.extractor = NewExtractor(b.rootDir, opts)
	}
}

// WithCache reuses extraction results for files whose content is unchanged.
func WithCache(cache ExtractionCache) BuilderOption {
	return func(b *builder) {
		b.cache = cache
	}
}

// NewBuilder creates a new graph builder.
func NewBuilder(rootDir string, opts ...BuilderOption) Builder {
	b := &builder{
		extractor: NewExtractor(rootDir, Options{}),
		rootDir:   rootDir,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.workers <= 0 {
		b.workers = runtime.NumCPU()
	}
	return b
}

// outcome is the extraction result for one input file.
type outcome struct {
	calls *FileCalls
	err   error
}

// Build extracts call sites from all Python files and aggregates them.
//
// In strict mode the error of the lowest-indexed failing file is returned
// and no graph is produced. In keep-going mode failures are collected in
// the result and the graph holds successful files only.
func (b *builder) Build(ctx context.Context, files []string) (*Result, error) {
	startTime := time.Now()

	var pyFiles []string
	for _, file := range files {
		if filepath.Ext(file) == parsers.PythonExtension {
			pyFiles = append(pyFiles, file)
		}
	}

	if b.progress != nil {
		b.progress.OnGraphBuildingStart(len(pyFiles))
	}

	outcomes := make([]outcome, len(pyFiles))

	var mu sync.Mutex // Serializes progress callbacks
	processed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, file := range pyFiles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			calls, err := b.extractOne(gctx, file)
			outcomes[i] = outcome{calls: calls, err: err}

			mu.Lock()
			processed++
			if b.progress != nil {
				b.progress.OnGraphFileProcessed(processed, len(pyFiles), filepath.Base(file))
			}
			mu.Unlock()

			// Extraction errors are resolved in input order after Wait.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{Graph: NewCallGraph()}
	for i, out := range outcomes {
		if out.err != nil {
			if !b.keepGoing {
				return nil, fmt.Errorf("failed to extract call graph from %s: %w", pyFiles[i], out.err)
			}
			log.Printf("Warning: failed to extract call graph from %s: %v", pyFiles[i], out.err)
			result.Failures = append(result.Failures, FileFailure{FilePath: pyFiles[i], Err: out.err})
			continue
		}
		result.Graph.RecordFile(out.calls)
		result.Files++
	}

	if b.progress != nil {
		b.progress.OnGraphBuildingComplete(result.Graph.Len(), result.Graph.EdgeCount(), time.Since(startTime))
	}

	return result, nil
}

// extractOne extracts a single file, consulting the cache when configured.
func (b *builder) extractOne(ctx context.Context, file string) (*FileCalls, error) {
	if b.cache == nil {
		return b.extractor.ExtractFile(ctx, file)
	}

	source, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}
	if calls, ok := b.cache.Get(file, source); ok {
		return calls, nil
	}

	calls, err := b.extractor.ExtractSource(ctx, file, source)
	if err != nil {
		return nil, err
	}
	b.cache.Put(file, source, calls)
	return calls, nil
}
