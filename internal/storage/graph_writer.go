package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/mvp-joe/py-flow-trace/internal/graph"
)

// GraphWriter writes call graphs to SQLite, one run per write.
type GraphWriter struct {
	db     *sql.DB
	ownsDB bool // true if we opened the connection, false if shared
	now    func() time.Time
}

// NewGraphWriter opens the database at dbPath, creating the schema if needed.
func NewGraphWriter(dbPath string) (*GraphWriter, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &GraphWriter{db: db, ownsDB: true, now: time.Now}, nil
}

// NewGraphWriterWithDB creates a GraphWriter using an existing database connection.
// The caller is responsible for managing the database lifecycle (schema, foreign keys, close).
func NewGraphWriterWithDB(db *sql.DB) *GraphWriter {
	return &GraphWriter{db: db, ownsDB: false, now: time.Now}
}

// Close closes the database connection if owned by this writer.
// If created via NewGraphWriterWithDB (shared connection), this is a no-op.
func (w *GraphWriter) Close() error {
	if !w.ownsDB {
		return nil
	}
	if w.db != nil {
		return w.db.Close()
	}
	return nil
}

// WriteRun stores g as a new run in a single transaction and returns the run ID.
// Earlier runs are kept.
func (w *GraphWriter) WriteRun(ctx context.Context, root string, g *graph.CallGraph) (string, error) {
	if g == nil {
		return "", fmt.Errorf("graph cannot be nil")
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	run := &Run{
		ID:        uuid.New().String(),
		Root:      root,
		CreatedAt: w.now().UTC(),
	}

	_, err = sq.Insert("runs").
		Columns("id", "root", "created_at").
		Values(run.ID, run.Root, run.CreatedAt).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	if err := writeCalls(ctx, tx, toCalls(run.ID, g)); err != nil {
		return "", fmt.Errorf("failed to write calls: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return run.ID, nil
}

// DeleteRun removes a run and, by cascade, its calls.
func (w *GraphWriter) DeleteRun(ctx context.Context, runID string) error {
	_, err := sq.Delete("runs").
		Where(sq.Eq{"id": runID}).
		RunWith(w.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", runID, err)
	}
	return nil
}

// toCalls flattens g into rows in artifact order.
func toCalls(runID string, g *graph.CallGraph) []*Call {
	edges := g.Edges()
	calls := make([]*Call, 0, len(edges))
	for i, edge := range edges {
		calls = append(calls, &Call{
			RunID:   runID,
			Caller:  edge.Caller,
			Callee:  edge.Callee,
			Count:   edge.Count,
			Ordinal: i,
		})
	}
	return calls
}

func writeCalls(ctx context.Context, tx *sql.Tx, calls []*Call) error {
	if len(calls) == 0 {
		return nil
	}

	for _, call := range calls {
		_, err := sq.Insert("calls").
			Columns("run_id", "caller", "callee", "count", "ordinal").
			Values(call.RunID, call.Caller, call.Callee, call.Count, call.Ordinal).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert call %s -> %s: %w", call.Caller, call.Callee, err)
		}
	}

	return nil
}
