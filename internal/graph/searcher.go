package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dominikbraun/graph"
)

// ErrUnsupportedOperation is returned for unknown query operations.
var ErrUnsupportedOperation = errors.New("unsupported operation")

// searcher implements Searcher over an in-memory weighted graph.
type searcher struct {
	storage Storage
	mu      sync.RWMutex // Protects graph and indexes

	// Edge weights are call counts
	graph graph.Graph[string, string]

	// Adjacency in artifact order; the graph's own maps are unordered
	callers map[string][]string // callee -> [callers]
	callees map[string][]string // caller -> [callees]
}

// resultWithDepth is an internal type for tracking depth in traversal.
type resultWithDepth struct {
	id    string
	via   string
	depth int
}

// NewSearcher creates a new graph searcher and loads the artifact.
func NewSearcher(storage Storage) (Searcher, error) {
	s := &searcher{storage: storage}

	if err := s.Reload(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

// Reload reloads the graph from storage and rebuilds indexes.
func (s *searcher) Reload(ctx context.Context) error {
	data, err := s.storage.Load()
	if err != nil {
		return fmt.Errorf("failed to load graph: %w", err)
	}
	if data == nil {
		// No artifact yet, initialize empty
		data = NewCallGraph()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index(data)
}

func (s *searcher) index(data *CallGraph) error {
	g := graph.New(graph.StringHash, graph.Directed(), graph.Weighted())
	callers := make(map[string][]string)
	callees := make(map[string][]string)

	for _, edge := range data.Edges() {
		for _, v := range []string{edge.Caller, edge.Callee} {
			if err := g.AddVertex(v); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
				return fmt.Errorf("failed to add node %s: %w", v, err)
			}
		}
		if err := g.AddEdge(edge.Caller, edge.Callee, graph.EdgeWeight(edge.Count)); err != nil {
			return fmt.Errorf("failed to add edge %s -> %s: %w", edge.Caller, edge.Callee, err)
		}
		callees[edge.Caller] = append(callees[edge.Caller], edge.Callee)
		callers[edge.Callee] = append(callers[edge.Callee], edge.Caller)
	}

	s.graph = g
	s.callers = callers
	s.callees = callees
	return nil
}

// Query executes a graph query.
func (s *searcher) Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	startTime := time.Now()

	// Set defaults
	if req.Depth <= 0 {
		req.Depth = DefaultDepth
	}
	if req.Depth > MaxDepth {
		req.Depth = MaxDepth
	}
	if req.MaxResults <= 0 {
		req.MaxResults = DefaultMaxResults
	}

	var found []resultWithDepth
	switch req.Operation {
	case OperationCallers:
		found = traverse(s.callers, req.Target, req.Depth)
	case OperationCallees:
		found = traverse(s.callees, req.Target, req.Depth)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperation, req.Operation)
	}

	results := []QueryResult{}
	for _, rd := range found {
		if len(results) >= req.MaxResults {
			break
		}
		results = append(results, QueryResult{
			Symbol: rd.id,
			Depth:  rd.depth,
			Via:    rd.via,
			Count:  s.weight(req.Operation, rd),
		})
	}

	_, vertexErr := s.graph.Vertex(req.Target)

	return &QueryResponse{
		Operation:     string(req.Operation),
		Target:        req.Target,
		Found:         vertexErr == nil,
		Results:       results,
		TotalFound:    len(found),
		TotalReturned: len(results),
		Truncated:     len(results) < len(found),
		Metadata: ResponseMeta{
			TookMs: int(time.Since(startTime).Milliseconds()),
			Source: "graph",
		},
	}, nil
}

// weight returns the call count of the edge that led to rd.
func (s *searcher) weight(op QueryOperation, rd resultWithDepth) int {
	from, to := rd.via, rd.id
	if op == OperationCallers {
		from, to = rd.id, rd.via
	}
	edge, err := s.graph.Edge(from, to)
	if err != nil {
		return 0
	}
	return edge.Properties.Weight
}

// traverse walks adjacency breadth-first from target up to depth levels.
// Each symbol is reported once, at the shallowest depth it is reached.
func traverse(adjacency map[string][]string, target string, depth int) []resultWithDepth {
	results := []resultWithDepth{}
	visited := map[string]bool{target: true}

	frontier := []string{target}
	for level := 1; level <= depth && len(frontier) > 0; level++ {
		var next []string
		for _, id := range frontier {
			for _, neighbor := range adjacency[id] {
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				results = append(results, resultWithDepth{id: neighbor, via: id, depth: level})
				next = append(next, neighbor)
			}
		}
		frontier = next
	}

	return results
}

// Close releases resources.
func (s *searcher) Close() error {
	return nil
}
