package storage

// Test Plan for Graph Reader and SQLite exporter:
// - ReadRuns returns newest first
// - LatestRun returns ErrNoRuns on an empty database
// - ReadGraph rebuilds the graph in artifact order with counts
// - Exporter creates the database file and appends a run per export
// - SQLite-backed graph.Storage loads the latest run and rejects Save
// - SQLite-backed graph.Storage reports no data before the first export

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/py-flow-trace/internal/graph"
)

func TestGraphReader_ReadRunsNewestFirst(t *testing.T) {
	t.Parallel()

	db := NewTestDB(t)
	w := NewGraphWriterWithDB(db)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return base }
	older, err := w.WriteRun(ctx, "a", sampleGraph())
	require.NoError(t, err)

	w.now = func() time.Time { return base.Add(time.Hour) }
	newer, err := w.WriteRun(ctx, "b", sampleGraph())
	require.NoError(t, err)

	r := NewGraphReaderWithDB(db)
	runs, err := r.ReadRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer, runs[0].ID)
	assert.Equal(t, "b", runs[0].Root)
	assert.Equal(t, older, runs[1].ID)

	latest, err := r.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer, latest.ID)
}

func TestGraphReader_LatestRunEmpty(t *testing.T) {
	t.Parallel()

	r := NewGraphReaderWithDB(NewTestDB(t))
	_, err := r.LatestRun(context.Background())
	assert.ErrorIs(t, err, ErrNoRuns)
}

func TestGraphReader_ReadGraph(t *testing.T) {
	t.Parallel()

	db := NewTestDB(t)
	ctx := context.Background()

	runID, err := NewGraphWriterWithDB(db).WriteRun(ctx, ".", sampleGraph())
	require.NoError(t, err)

	g, err := NewGraphReaderWithDB(db).ReadGraph(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, sampleGraph().Edges(), g.Edges())
	assert.Equal(t, []string{"pkg.mod", "pkg.mod.C.run"}, g.Callers())
}

func TestExporter_Export(t *testing.T) {
	t.Parallel()

	dbPath := NewTestDBPath(t)
	exporter := NewExporter(dbPath, "/src/project")
	assert.Equal(t, "sqlite", exporter.Name())

	ctx := context.Background()
	path, err := exporter.Export(ctx, sampleGraph())
	require.NoError(t, err)
	assert.Equal(t, dbPath, path)

	_, err = exporter.Export(ctx, sampleGraph())
	require.NoError(t, err)

	r, err := NewGraphReader(dbPath)
	require.NoError(t, err)
	defer r.Close()

	runs, err := r.ReadRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.Equal(t, "/src/project", runs[0].Root)
}

func TestSQLiteGraphStorage(t *testing.T) {
	t.Parallel()

	db := NewTestDB(t)
	s := NewSQLiteGraphStorage(NewGraphReaderWithDB(db), "calls.db")
	assert.Equal(t, "calls.db", s.Path())

	// Nothing exported yet
	assert.False(t, s.Exists())
	g, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, g)

	_, err = NewGraphWriterWithDB(db).WriteRun(context.Background(), ".", sampleGraph())
	require.NoError(t, err)

	assert.True(t, s.Exists())
	g, err = s.Load()
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, 2, g.Count("pkg.mod.C.run", "pkg.item.method"))

	assert.Error(t, s.Save(graph.NewCallGraph()))
}
