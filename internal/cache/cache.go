package cache

import (
	"fmt"

	"github.com/maypok86/otter"

	"github.com/mvp-joe/py-flow-trace/internal/graph"
)

// DefaultCapacity is the number of files kept when no capacity is given.
const DefaultCapacity = 10_000

// entry pairs an extraction result with the hash of the source it came from.
type entry struct {
	hash  string
	calls *graph.FileCalls
}

// ExtractionCache keeps per-file extraction results in memory between builds.
// A hit requires byte-identical source, so edited files are always re-parsed.
// Safe for concurrent use.
type ExtractionCache struct {
	store otter.Cache[string, entry]
}

var _ graph.ExtractionCache = (*ExtractionCache)(nil)

// NewExtractionCache creates a cache holding up to capacity files.
// Capacity <= 0 uses DefaultCapacity.
func NewExtractionCache(capacity int) (*ExtractionCache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	store, err := otter.MustBuilder[string, entry](capacity).
		CollectStats().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction cache: %w", err)
	}

	return &ExtractionCache{store: store}, nil
}

// Get returns the cached result for filePath if source is unchanged.
func (c *ExtractionCache) Get(filePath string, source []byte) (*graph.FileCalls, bool) {
	e, ok := c.store.Get(GetCacheKey(filePath))
	if !ok || e.hash != hashContent(source) {
		return nil, false
	}
	return e.calls, true
}

// Put stores the extraction result for filePath.
func (c *ExtractionCache) Put(filePath string, source []byte, calls *graph.FileCalls) {
	c.store.Set(GetCacheKey(filePath), entry{hash: hashContent(source), calls: calls})
}

// Invalidate drops the entries for the given paths.
func (c *ExtractionCache) Invalidate(paths ...string) {
	for _, p := range paths {
		c.store.Delete(GetCacheKey(p))
	}
}

// Len returns the number of cached files.
func (c *ExtractionCache) Len() int {
	return c.store.Size()
}

// Stats returns hit and miss counts since creation.
func (c *ExtractionCache) Stats() (hits, misses int64) {
	stats := c.store.Stats()
	return stats.Hits(), stats.Misses()
}

// Close releases cache resources.
func (c *ExtractionCache) Close() {
	c.store.Close()
}
