package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/py-flow-trace/internal/graph"
)

// ErrNoRuns indicates the database holds no exported runs.
var ErrNoRuns = errors.New("no runs exported")

// GraphReader reads exported call graphs from SQLite storage.
type GraphReader struct {
	db     *sql.DB
	ownsDB bool
}

// NewGraphReader creates a new GraphReader for the specified database.
// Opens database in read-only mode for safety.
func NewGraphReader(dbPath string) (*GraphReader, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &GraphReader{db: db, ownsDB: true}, nil
}

// NewGraphReaderWithDB creates a GraphReader using an existing database connection.
func NewGraphReaderWithDB(db *sql.DB) *GraphReader {
	return &GraphReader{db: db}
}

// Close closes the database connection if owned by this reader.
func (r *GraphReader) Close() error {
	if r.ownsDB && r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReadRuns returns all runs, newest first.
func (r *GraphReader) ReadRuns(ctx context.Context) ([]*Run, error) {
	rows, err := sq.Select("id", "root", "created_at").
		From("runs").
		OrderBy("created_at DESC", "rowid DESC").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		if err := rows.Scan(&run.ID, &run.Root, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LatestRun returns the most recent run, or ErrNoRuns.
func (r *GraphReader) LatestRun(ctx context.Context) (*Run, error) {
	runs, err := r.ReadRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	return runs[0], nil
}

// ReadCalls returns the calls of a run in artifact order.
func (r *GraphReader) ReadCalls(ctx context.Context, runID string) ([]*Call, error) {
	rows, err := sq.Select("run_id", "caller", "callee", "count", "ordinal").
		From("calls").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("ordinal").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query calls: %w", err)
	}
	defer rows.Close()

	var calls []*Call
	for rows.Next() {
		c := &Call{}
		if err := rows.Scan(&c.RunID, &c.Caller, &c.Callee, &c.Count, &c.Ordinal); err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// ReadGraph rebuilds the call graph of a run, preserving artifact order.
func (r *GraphReader) ReadGraph(ctx context.Context, runID string) (*graph.CallGraph, error) {
	calls, err := r.ReadCalls(ctx, runID)
	if err != nil {
		return nil, err
	}

	g := graph.NewCallGraph()
	for _, c := range calls {
		g.AddEdge(graph.Edge{Caller: c.Caller, Callee: c.Callee, Count: c.Count})
	}
	return g, nil
}
