package graph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/py-flow-trace/internal/indexer/parsers"
)

// Test Plan for Builder:
// - Build aggregates call sites across multiple files
// - Non-Python files are ignored
// - Strict mode fails the whole run on invalid syntax
// - Strict mode reports the first failing file in input order
// - Strict mode fails on a Python 2 file that the grammar alone accepts
// - Keep-going mode isolates failures and keeps successful files
// - Result is identical across runs and worker counts
// - Context cancellation aborts the build
// - Progress reporter sees start, every file, and completion
// - Cache hits skip re-extraction of unchanged files

func writePy(t *testing.T, dir, rel, content string) string {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestBuilder_Build_MultipleFiles(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	file1 := writePy(t, tmpDir, "pkg/a.py", "import os\nos.getcwd()\n")
	file2 := writePy(t, tmpDir, "pkg/b.py", `from pkg import item

class C:
    def run(self):
        item.method()
        item.method()
`)

	result, err := NewBuilder(tmpDir).Build(context.Background(), []string{file1, file2})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, 2, result.Files)
	assert.Empty(t, result.Failures)
	assert.Equal(t, []Edge{
		{Caller: "pkg.a", Callee: "os.getcwd", Count: 1},
		{Caller: "pkg.b.C.run", Callee: "pkg.item.method", Count: 2},
	}, result.Graph.Edges())
}

func TestBuilder_Build_IgnoresNonPythonFiles(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	py := writePy(t, tmpDir, "a.py", "import os\nos.getcwd()\n")
	txt := writePy(t, tmpDir, "notes.txt", "not python (")

	result, err := NewBuilder(tmpDir).Build(context.Background(), []string{py, txt})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Files)
}

func TestBuilder_Build_StrictFailsOnInvalidSyntax(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	good := writePy(t, tmpDir, "good.py", "import os\nos.getcwd()\n")
	bad := writePy(t, tmpDir, "bad.py", "def broken(:\n    pass\n")

	result, err := NewBuilder(tmpDir).Build(context.Background(), []string{good, bad})
	require.Error(t, err)
	assert.Nil(t, result, "no partial graph in strict mode")

	var parseErr *parsers.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, bad, parseErr.Path)
}

func TestBuilder_Build_StrictFailsOnPython2File(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	good := writePy(t, tmpDir, "good.py", "import os\nos.getcwd()\n")
	legacy := writePy(t, tmpDir, "legacy.py", "import os\nprint \"cwd\", os.getcwd()\n")

	result, err := NewBuilder(tmpDir).Build(context.Background(), []string{good, legacy})
	require.Error(t, err)
	assert.Nil(t, result)

	var parseErr *parsers.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, legacy, parseErr.Path)
	assert.Equal(t, 2, parseErr.Line)

	result, err = NewBuilder(tmpDir, WithKeepGoing(true)).Build(context.Background(), []string{good, legacy})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Files)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, legacy, result.Failures[0].FilePath)
}

func TestBuilder_Build_StrictReportsFirstFailureInInputOrder(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	var files []string
	for i := 0; i < 8; i++ {
		files = append(files, writePy(t, tmpDir, filepath.Join("ok", string(rune('a'+i))+".py"), "x = 1\n"))
	}
	first := writePy(t, tmpDir, "bad1.py", "def broken(:\n")
	second := writePy(t, tmpDir, "bad2.py", "class (:\n")
	files = append(files, first, second)

	for i := 0; i < 5; i++ {
		_, err := NewBuilder(tmpDir, WithWorkers(4)).Build(context.Background(), files)
		require.Error(t, err)

		var parseErr *parsers.ParseError
		require.True(t, errors.As(err, &parseErr))
		assert.Equal(t, first, parseErr.Path)
	}
}

func TestBuilder_Build_KeepGoing(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	good := writePy(t, tmpDir, "good.py", "import os\nos.getcwd()\n")
	bad := writePy(t, tmpDir, "bad.py", "def broken(:\n    pass\n")
	missing := filepath.Join(tmpDir, "missing.py")

	result, err := NewBuilder(tmpDir, WithKeepGoing(true)).Build(context.Background(), []string{bad, good, missing})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Files)
	assert.Equal(t, 1, result.Graph.Count("good", "os.getcwd"))

	require.Len(t, result.Failures, 2)
	assert.Equal(t, bad, result.Failures[0].FilePath)
	assert.True(t, errors.Is(result.Failures[0].Err, parsers.ErrSyntax))
	assert.Equal(t, missing, result.Failures[1].FilePath)
	assert.True(t, errors.Is(result.Failures[1].Err, os.ErrNotExist))
}

func TestBuilder_Build_Deterministic(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	var files []string
	for i := 0; i < 20; i++ {
		name := string(rune('a'+i)) + ".py"
		files = append(files, writePy(t, tmpDir, name, `import os
from lib import helper

class Handler:
    def handle(self):
        helper.run()
        os.getcwd()

os.getcwd()
`))
	}

	sequential, err := NewBuilder(tmpDir, WithWorkers(1)).Build(context.Background(), files)
	require.NoError(t, err)

	for _, workers := range []int{2, 8, 32} {
		parallel, err := NewBuilder(tmpDir, WithWorkers(workers)).Build(context.Background(), files)
		require.NoError(t, err)
		assert.Equal(t, sequential.Graph.Edges(), parallel.Graph.Edges(), "workers=%d", workers)
	}

	again, err := NewBuilder(tmpDir, WithWorkers(1)).Build(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, sequential.Graph.Edges(), again.Graph.Edges())
}

func TestBuilder_Build_ContextCancellation(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	file := writePy(t, tmpDir, "a.py", "import os\nos.getcwd()\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewBuilder(tmpDir).Build(ctx, []string{file})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuilder_Build_ExtractionOptions(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	file := writePy(t, tmpDir, "a.py", "import numpy as np\nnp.array()\nlocal()\n")

	result, err := NewBuilder(tmpDir,
		WithExtractionOptions(Options{ResolveAliases: true, RecordUnresolved: true}),
	).Build(context.Background(), []string{file})
	require.NoError(t, err)

	assert.Equal(t, []string{"numpy.array", "local"}, result.Graph.Callees("a"))
}

type recordingProgress struct {
	mu        sync.Mutex
	total     int
	processed []int
	callers   int
	edges     int
	completed bool
}

func (p *recordingProgress) OnGraphBuildingStart(totalFiles int) {
	p.total = totalFiles
}

func (p *recordingProgress) OnGraphFileProcessed(processedFiles, totalFiles int, fileName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed = append(p.processed, processedFiles)
}

func (p *recordingProgress) OnGraphBuildingComplete(callerCount, edgeCount int, duration time.Duration) {
	p.callers = callerCount
	p.edges = edgeCount
	p.completed = true
}

func TestBuilder_Build_Progress(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	files := []string{
		writePy(t, tmpDir, "a.py", "import os\nos.getcwd()\nos.listdir()\n"),
		writePy(t, tmpDir, "b.py", "import os\nos.getcwd()\n"),
		writePy(t, tmpDir, "c.py", "x = 1\n"),
	}

	progress := &recordingProgress{}
	_, err := NewBuilder(tmpDir, WithProgress(progress), WithWorkers(3)).Build(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, 3, progress.total)
	assert.ElementsMatch(t, []int{1, 2, 3}, progress.processed)
	assert.True(t, progress.completed)
	assert.Equal(t, 2, progress.callers)
	assert.Equal(t, 3, progress.edges)
}

type countingCache struct {
	mu    sync.Mutex
	items map[string]*FileCalls
	hits  int
}

func (c *countingCache) Get(filePath string, source []byte) (*FileCalls, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fc, ok := c.items[filePath+"\x00"+string(source)]
	if ok {
		c.hits++
	}
	return fc, ok
}

func (c *countingCache) Put(filePath string, source []byte, calls *FileCalls) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[filePath+"\x00"+string(source)] = calls
}

func TestBuilder_Build_UsesCache(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	a := writePy(t, tmpDir, "a.py", "import os\nos.getcwd()\n")
	b := writePy(t, tmpDir, "b.py", "import os\nos.listdir()\n")

	cache := &countingCache{items: make(map[string]*FileCalls)}
	builder := NewBuilder(tmpDir, WithCache(cache))

	first, err := builder.Build(context.Background(), []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, 0, cache.hits)

	writePy(t, tmpDir, "b.py", "import os\nos.remove('x')\n")

	second, err := builder.Build(context.Background(), []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits, "only the unchanged file is served from cache")

	assert.Equal(t, 1, first.Graph.Count("b", "os.listdir"))
	assert.Equal(t, 0, second.Graph.Count("b", "os.listdir"))
	assert.Equal(t, 1, second.Graph.Count("b", "os.remove"))
}
