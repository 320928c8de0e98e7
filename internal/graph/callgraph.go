package graph

import (
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type calleeCounts = orderedmap.OrderedMap[string, int]

// Edge is a (caller, callee, count) triple read out of a CallGraph.
type Edge struct {
	Caller string `json:"caller"`
	Callee string `json:"callee"`
	Count  int    `json:"count"`
}

// CallGraph maps caller identity -> callee identity -> occurrence count.
// Both levels keep first-insertion order so the serialized artifact follows
// file/traversal order. A CallGraph is not safe for concurrent writes.
type CallGraph struct {
	callers *orderedmap.OrderedMap[string, *calleeCounts]
	total   int
}

// NewCallGraph creates an empty call graph.
func NewCallGraph() *CallGraph {
	return &CallGraph{
		callers: orderedmap.New[string, *calleeCounts](),
	}
}

// Record increments the count for the ordered (caller, callee) pair.
func (g *CallGraph) Record(caller, callee string) {
	g.add(caller, callee, 1)
}

func (g *CallGraph) add(caller, callee string, n int) {
	callees, ok := g.callers.Get(caller)
	if !ok {
		callees = orderedmap.New[string, int]()
		g.callers.Set(caller, callees)
	}
	count, _ := callees.Get(callee)
	callees.Set(callee, count+n)
	g.total += n
}

// AddEdge adds e.Count calls for the ordered (caller, callee) pair.
// Non-positive counts are ignored.
func (g *CallGraph) AddEdge(e Edge) {
	if e.Count > 0 {
		g.add(e.Caller, e.Callee, e.Count)
	}
}

// RecordFile folds every call site of a file into the graph.
func (g *CallGraph) RecordFile(fc *FileCalls) {
	for _, site := range fc.Sites {
		g.Record(site.Caller, site.Callee)
	}
}

// Merge adds all counts from other, appending unseen callers/callees in
// other's order.
func (g *CallGraph) Merge(other *CallGraph) {
	for _, e := range other.Edges() {
		g.add(e.Caller, e.Callee, e.Count)
	}
}

// Count returns the number of recorded calls from caller to callee.
func (g *CallGraph) Count(caller, callee string) int {
	callees, ok := g.callers.Get(caller)
	if !ok {
		return 0
	}
	count, _ := callees.Get(callee)
	return count
}

// Callers returns caller identities in insertion order.
func (g *CallGraph) Callers() []string {
	out := make([]string, 0, g.callers.Len())
	for pair := g.callers.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Callees returns the callees of caller in insertion order.
func (g *CallGraph) Callees(caller string) []string {
	callees, ok := g.callers.Get(caller)
	if !ok {
		return nil
	}
	out := make([]string, 0, callees.Len())
	for pair := callees.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Edges returns every (caller, callee, count) triple in insertion order.
func (g *CallGraph) Edges() []Edge {
	var edges []Edge
	for outer := g.callers.Oldest(); outer != nil; outer = outer.Next() {
		for inner := outer.Value.Oldest(); inner != nil; inner = inner.Next() {
			edges = append(edges, Edge{Caller: outer.Key, Callee: inner.Key, Count: inner.Value})
		}
	}
	return edges
}

// Len returns the number of distinct callers.
func (g *CallGraph) Len() int {
	return g.callers.Len()
}

// EdgeCount returns the number of distinct (caller, callee) pairs.
func (g *CallGraph) EdgeCount() int {
	n := 0
	for pair := g.callers.Oldest(); pair != nil; pair = pair.Next() {
		n += pair.Value.Len()
	}
	return n
}

// TotalCalls returns the sum of all counts.
func (g *CallGraph) TotalCalls() int {
	return g.total
}

// MarshalJSON encodes the graph as {caller: {callee: count}} preserving order.
func (g *CallGraph) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.callers)
}

// UnmarshalJSON decodes the nested object shape produced by MarshalJSON.
func (g *CallGraph) UnmarshalJSON(data []byte) error {
	raw := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(data, raw); err != nil {
		return fmt.Errorf("failed to decode call graph: %w", err)
	}

	decoded := NewCallGraph()
	for outer := raw.Oldest(); outer != nil; outer = outer.Next() {
		callees := orderedmap.New[string, int]()
		if err := json.Unmarshal(outer.Value, callees); err != nil {
			return fmt.Errorf("failed to decode callees of %s: %w", outer.Key, err)
		}
		for inner := callees.Oldest(); inner != nil; inner = inner.Next() {
			if inner.Value <= 0 {
				return fmt.Errorf("invalid count %d for %s -> %s", inner.Value, outer.Key, inner.Key)
			}
			decoded.add(outer.Key, inner.Key, inner.Value)
		}
	}

	*g = *decoded
	return nil
}
