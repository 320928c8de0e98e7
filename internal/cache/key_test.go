package cache

// Test Plan for Cache Keys and Extraction Cache:
// - GetCacheKey makes relative paths absolute and cleans them
// - hashContent produces valid SHA-256 hex strings (64 characters, lowercase)
// - hashContent is deterministic and content sensitive
// - Get misses for unknown files
// - Get hits only when the source is byte-identical
// - Relative and absolute spellings of a path share one entry
// - Invalidate drops entries
// - Stats counts hits and misses

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/py-flow-trace/internal/graph"
)

func TestGetCacheKey(t *testing.T) {
	t.Parallel()

	wd, err := os.Getwd()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(wd, "pkg", "mod.py"), GetCacheKey(filepath.Join("pkg", ".", "mod.py")))

	abs := filepath.Join(wd, "a.py")
	assert.Equal(t, abs, GetCacheKey(abs))
}

func TestHashContent(t *testing.T) {
	t.Parallel()

	hash := hashContent([]byte("import os\n"))
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), hash)
	assert.Equal(t, hash, hashContent([]byte("import os\n")))
	assert.NotEqual(t, hash, hashContent([]byte("import sys\n")))
}

func newTestCache(t *testing.T) *ExtractionCache {
	t.Helper()

	c, err := NewExtractionCache(100)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func sampleCalls(path string) *graph.FileCalls {
	return &graph.FileCalls{
		FilePath: path,
		Module:   "pkg.mod",
		Sites:    []graph.CallSite{{Caller: "pkg.mod", Callee: "os.getcwd", Line: 2}},
	}
}

func TestExtractionCache_Miss(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)

	calls, ok := c.Get("pkg/mod.py", []byte("x = 1\n"))
	assert.False(t, ok)
	assert.Nil(t, calls)
}

func TestExtractionCache_HitRequiresSameContent(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	source := []byte("import os\nos.getcwd()\n")
	c.Put("pkg/mod.py", source, sampleCalls("pkg/mod.py"))

	calls, ok := c.Get("pkg/mod.py", source)
	require.True(t, ok)
	assert.Equal(t, "pkg.mod", calls.Module)

	_, ok = c.Get("pkg/mod.py", []byte("import os\n"))
	assert.False(t, ok, "changed content must miss")
}

func TestExtractionCache_PathSpellings(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	source := []byte("x = 1\n")
	c.Put("pkg/mod.py", source, sampleCalls("pkg/mod.py"))

	abs, err := filepath.Abs("pkg/mod.py")
	require.NoError(t, err)

	_, ok := c.Get(abs, source)
	assert.True(t, ok)
}

func TestExtractionCache_Invalidate(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	source := []byte("x = 1\n")
	c.Put("a.py", source, sampleCalls("a.py"))
	c.Put("b.py", source, sampleCalls("b.py"))

	c.Invalidate("a.py")

	_, ok := c.Get("a.py", source)
	assert.False(t, ok)
	_, ok = c.Get("b.py", source)
	assert.True(t, ok)
}

func TestExtractionCache_Stats(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	source := []byte("x = 1\n")
	c.Put("a.py", source, sampleCalls("a.py"))

	c.Get("a.py", source)
	c.Get("a.py", source)
	c.Get("missing.py", source)

	hits, misses := c.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}
