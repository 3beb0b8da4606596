package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dominikbraun/graph"
)

// QueryOperation represents the type of graph query to perform.
type QueryOperation string

const (
	OperationCallers QueryOperation = "callers"
	OperationCallees QueryOperation = "callees"
)

// Query defaults and limits
const (
	DefaultDepth      = 1
	DefaultMaxResults = 100
	MaxDepth          = 10
)

// QueryRequest represents a graph query request.
type QueryRequest struct {
	Operation  QueryOperation // Type of query
	Target     string         // Qualified callable name, e.g. org.example.User.log()
	Depth      int            // Traversal depth (default: 1)
	MaxResults int            // Maximum number of results (default: 100)
}

// QueryResponse represents the response to a graph query.
type QueryResponse struct {
	Operation     string        `json:"operation"`
	Target        string        `json:"target"`
	Results       []QueryResult `json:"results"`
	TotalFound    int           `json:"total_found"`
	TotalReturned int           `json:"total_returned"`
	Truncated     bool          `json:"truncated"`
	TookMs        int           `json:"took_ms"`
}

// QueryResult represents a single callable found by a query.
type QueryResult struct {
	Vertex Vertex `json:"vertex"`
	Depth  int    `json:"depth"`  // Distance from the target
	Weight int    `json:"weight"` // Call sites on the edge that reached it
}

// Searcher answers caller and callee queries over the call edges of a
// dependency graph. It is safe for concurrent use once built.
type Searcher struct {
	graph   graph.Graph[string, Vertex]
	byName  map[string][]string       // Qualified name -> vertex IDs
	callers map[string]map[string]int // callee -> caller -> weight
	callees map[string]map[string]int // caller -> callee -> weight
}

type resultWithDepth struct {
	id     string
	depth  int
	weight int
}

// NewSearcher indexes the call edges among edges. Statement dependency edges
// are ignored.
func NewSearcher(edges []Edge) (*Searcher, error) {
	s := &Searcher{
		graph:   graph.New(Vertex.ID, graph.Directed(), graph.Weighted()),
		byName:  make(map[string][]string),
		callers: make(map[string]map[string]int),
		callees: make(map[string]map[string]int),
	}
	for _, e := range edges {
		if !e.IsCall() {
			continue
		}
		for _, v := range []Vertex{e.Source, e.Target} {
			if _, err := s.graph.Vertex(v.ID()); err == nil {
				continue
			}
			if err := s.graph.AddVertex(v); err != nil {
				return nil, fmt.Errorf("failed to add vertex %s: %w", v.ID(), err)
			}
			s.byName[v.Name()] = append(s.byName[v.Name()], v.ID())
		}
		err := s.graph.AddEdge(e.Source.ID(), e.Target.ID(), graph.EdgeWeight(e.Weight))
		if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return nil, fmt.Errorf("failed to add edge %s -> %s: %w", e.Source.Name(), e.Target.Name(), err)
		}
		link(s.callees, e.Source.ID(), e.Target.ID(), e.Weight)
		link(s.callers, e.Target.ID(), e.Source.ID(), e.Weight)
	}
	return s, nil
}

func link(index map[string]map[string]int, from, to string, weight int) {
	m, ok := index[from]
	if !ok {
		m = make(map[string]int)
		index[from] = m
	}
	m[to] += weight
}

// Query executes a graph query. An unknown target yields no results.
func (s *Searcher) Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	start := time.Now()

	depth := req.Depth
	if depth <= 0 {
		depth = DefaultDepth
	}
	if depth > MaxDepth {
		depth = MaxDepth
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	var index map[string]map[string]int
	switch req.Operation {
	case OperationCallers:
		index = s.callers
	case OperationCallees:
		index = s.callees
	default:
		return nil, fmt.Errorf("unsupported operation: %s", req.Operation)
	}

	found, err := s.traverse(ctx, index, s.byName[req.Target], depth)
	if err != nil {
		return nil, err
	}

	results := []QueryResult{}
	for _, rd := range found {
		if len(results) >= maxResults {
			break
		}
		v, err := s.graph.Vertex(rd.id)
		if err != nil {
			continue
		}
		results = append(results, QueryResult{Vertex: v, Depth: rd.depth, Weight: rd.weight})
	}

	return &QueryResponse{
		Operation:     string(req.Operation),
		Target:        req.Target,
		Results:       results,
		TotalFound:    len(found),
		TotalReturned: len(results),
		Truncated:     len(results) < len(found),
		TookMs:        int(time.Since(start).Milliseconds()),
	}, nil
}

// traverse walks index breadth first from the start vertices. Every vertex is
// reported once, at the depth it is first reached, ordered by depth and name.
func (s *Searcher) traverse(ctx context.Context, index map[string]map[string]int, start []string, depth int) ([]resultWithDepth, error) {
	visited := make(map[string]bool, len(start))
	for _, id := range start {
		visited[id] = true
	}

	var results []resultWithDepth
	frontier := start
	for d := 1; d <= depth && len(frontier) > 0; d++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var level []resultWithDepth
		for _, id := range frontier {
			for next, weight := range index[id] {
				if visited[next] {
					continue
				}
				visited[next] = true
				level = append(level, resultWithDepth{id: next, depth: d, weight: weight})
			}
		}
		sort.Slice(level, func(i, j int) bool { return level[i].id < level[j].id })

		frontier = frontier[:0:0]
		for _, rd := range level {
			frontier = append(frontier, rd.id)
		}
		results = append(results, level...)
	}
	return results, nil
}

// Path returns the call chain of least total weight from one callable to
// another by qualified name, or nil when the target is unreachable.
func (s *Searcher) Path(from, to string) ([]Vertex, error) {
	var best []string
	for _, src := range s.byName[from] {
		for _, dst := range s.byName[to] {
			path, err := graph.ShortestPath(s.graph, src, dst)
			if err != nil {
				continue
			}
			if best == nil || len(path) < len(best) {
				best = path
			}
		}
	}
	if best == nil {
		return nil, nil
	}

	out := make([]Vertex, 0, len(best))
	for _, id := range best {
		v, err := s.graph.Vertex(id)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Names returns the qualified names of every indexed callable, sorted.
func (s *Searcher) Names() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FormatPath renders a call chain as "a -> b -> c".
func FormatPath(path []Vertex) string {
	names := make([]string, len(path))
	for i, v := range path {
		names[i] = v.Name()
	}
	return strings.Join(names, " -> ")
}
