package storage

import "time"

// Domain models that mirror SQL tables in schema.go.
// These are lightweight data transfer structs, NOT ORM models.

// Run represents one export of a call graph.
// Maps to the runs table.
type Run struct {
	ID        string    // id: UUID
	Root      string    // root: analyzed project root
	CreatedAt time.Time // created_at
}

// Call represents one weighted caller/callee edge of a run.
// Maps to the calls table.
type Call struct {
	RunID   string // run_id: FK to runs
	Caller  string // caller: scope identity
	Callee  string // callee: resolved callee identity
	Count   int    // count: number of observed call sites, always > 0
	Ordinal int    // ordinal: 0-indexed position in artifact order
}
