// Package graph builds the system dependency graph: callables connected by
// weighted call edges and, optionally, statement level dependency edges.
package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/sirupsen/logrus"

	"github.com/mvp-joe/codeanalyzer/internal/callgraph"
	"github.com/mvp-joe/codeanalyzer/internal/registry"
	"github.com/mvp-joe/codeanalyzer/internal/symtab"
)

// Builder turns a call graph into dependency edges. Callables are looked up in
// the registry; methods it does not know are added to it as implicit stubs.
type Builder struct {
	registry   *registry.Registry
	logger     *logrus.Logger
	systemDeps bool
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithSystemDependencies adds the call graph's statement dependencies as
// edges next to the call edges.
func WithSystemDependencies(enabled bool) BuilderOption {
	return func(b *Builder) {
		b.systemDeps = enabled
	}
}

// NewBuilder creates a builder over the registry the extractor filled.
func NewBuilder(reg *registry.Registry, opts ...BuilderOption) *Builder {
	b := &Builder{registry: reg}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logrus.New()
	}
	return b
}

// Build returns the dependency edges of cg sorted by source, target and type.
// Complexity computed by the call graph replaces the extracted estimate of
// every callable it reached. Edges only lead to methods of the analyzed
// application; a library source is registered as an implicit stub.
func (b *Builder) Build(ctx context.Context, cg *callgraph.Graph) ([]Edge, error) {
	start := time.Now()
	if err := cg.Validate(); err != nil {
		return nil, err
	}

	updated := b.updateComplexity(cg)

	run := &buildRun{
		builder:  b,
		cg:       cg,
		vertices: make(map[int]Vertex),
		graphs:   make(map[kind]graph.Graph[string, Vertex]),
	}

	for _, node := range cg.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, site := range node.CallSites {
			for _, target := range site.Targets {
				if err := run.add(callKind, node.Method, target); err != nil {
					return nil, err
				}
			}
		}
	}

	if b.systemDeps {
		for _, dep := range cg.Dependencies {
			k := kind{Type: dep.Type, SourceKind: dep.SourceKind, DestinationKind: dep.DestinationKind}
			if err := run.add(k, dep.Source, dep.Target); err != nil {
				return nil, err
			}
		}
	}

	edges, err := run.edges()
	if err != nil {
		return nil, err
	}

	b.logger.WithFields(logrus.Fields{
		"edges":       len(edges),
		"vertices":    len(run.vertices),
		"stubs":       run.stubs,
		"complexity":  updated,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("dependency graph built")
	return edges, nil
}

// updateComplexity overwrites the complexity of every registered callable
// the call graph has a body summary for and returns how many it changed.
func (b *Builder) updateComplexity(cg *callgraph.Graph) int {
	updated := 0
	for _, m := range cg.Methods {
		if m.IR == nil || !m.Application {
			continue
		}
		key, err := m.Key()
		if err != nil {
			continue
		}
		c, _, ok := b.registry.Lookup(m.DeclaringType(), key)
		if !ok {
			continue
		}
		c.CyclomaticComplexity = m.IR.Complexity()
		updated++
	}
	return updated
}

type buildRun struct {
	builder  *Builder
	cg       *callgraph.Graph
	vertices map[int]Vertex // Method index -> vertex
	graphs   map[kind]graph.Graph[string, Vertex]
	order    []kind
	stubs    int
}

// add records one dependency of kind k, or raises the weight of the existing one.
// Dependencies into library methods are dropped.
func (r *buildRun) add(k kind, source, target int) error {
	if !r.cg.Methods[target].Application {
		return nil
	}
	sv, err := r.vertex(source)
	if err != nil {
		return err
	}
	tv, err := r.vertex(target)
	if err != nil {
		return err
	}
	if sv.ID() == tv.ID() {
		return nil
	}

	g, ok := r.graphs[k]
	if !ok {
		g = graph.New(Vertex.ID, graph.Directed(), graph.Weighted())
		r.graphs[k] = g
		r.order = append(r.order, k)
	}
	for _, v := range []Vertex{sv, tv} {
		if err := g.AddVertex(v); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			return fmt.Errorf("failed to add vertex %s: %w", v.ID(), err)
		}
	}

	existing, err := g.Edge(sv.ID(), tv.ID())
	switch {
	case err == nil:
		err = g.UpdateEdge(sv.ID(), tv.ID(), graph.EdgeWeight(existing.Properties.Weight+1))
	case errors.Is(err, graph.ErrEdgeNotFound):
		err = g.AddEdge(sv.ID(), tv.ID(), graph.EdgeWeight(1))
	}
	if err != nil {
		return fmt.Errorf("failed to add %s edge %s -> %s: %w", k.Type, sv.Signature, tv.Signature, err)
	}
	return nil
}

// vertex resolves a call graph method against the registry, registering an
// implicit stub for methods without one.
func (r *buildRun) vertex(i int) (Vertex, error) {
	if v, ok := r.vertices[i]; ok {
		return v, nil
	}
	m := r.cg.Methods[i]
	key, err := m.Key()
	if err != nil {
		return Vertex{}, err
	}
	typeName := m.DeclaringType()

	c, stored, ok := r.builder.registry.Lookup(typeName, key)
	if !ok {
		c, err = implicitCallable(m, key)
		if err != nil {
			return Vertex{}, err
		}
		if !r.builder.registry.Put(typeName, key, c) {
			c, _ = r.builder.registry.Get(typeName, key)
		}
		stored = key
		r.stubs++
		r.builder.logger.WithField("type", typeName).WithField("signature", key).Debug("registered implicit callable")
	}

	path := c.FilePath
	if c.IsImplicit || path == "" {
		path = ImplicitPath
	}
	v := Vertex{
		TypeDeclaration:     typeName,
		Signature:           displaySignature(stored, typeName),
		CallableDeclaration: c.Declaration,
		FilePath:            path,
	}
	r.vertices[i] = v
	return v, nil
}

// edges flattens every graph into a sorted edge list.
func (r *buildRun) edges() ([]Edge, error) {
	out := []Edge{}
	for _, k := range r.order {
		g := r.graphs[k]
		list, err := g.Edges()
		if err != nil {
			return nil, fmt.Errorf("failed to list %s edges: %w", k.Type, err)
		}
		for _, e := range list {
			src, err := g.Vertex(e.Source)
			if err != nil {
				return nil, err
			}
			dst, err := g.Vertex(e.Target)
			if err != nil {
				return nil, err
			}
			out = append(out, Edge{
				Source:          src,
				Target:          dst,
				Type:            k.Type,
				SourceKind:      k.SourceKind,
				DestinationKind: k.DestinationKind,
				Weight:          e.Properties.Weight,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Source.ID() != b.Source.ID() {
			return a.Source.ID() < b.Source.ID()
		}
		if a.Target.ID() != b.Target.ID() {
			return a.Target.ID() < b.Target.ID()
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.SourceKind != b.SourceKind {
			return a.SourceKind < b.SourceKind
		}
		return a.DestinationKind < b.DestinationKind
	})
	return out, nil
}

// implicitCallable builds a stub for a method known only from the call graph.
func implicitCallable(m callgraph.Method, key string) (*symtab.Callable, error) {
	params, ret, err := callgraph.ParseMethodDescriptor(m.Descriptor)
	if err != nil {
		return nil, err
	}

	c := symtab.NewCallable()
	c.Signature = key
	c.Declaration = key
	c.IsImplicit = true
	c.IsConstructor = strings.Contains(m.Name, symtab.ConstructorName)
	c.StartLine = symtab.Unknown
	c.EndLine = symtab.Unknown
	c.CodeStartLine = symtab.Unknown
	c.CyclomaticComplexity = 1
	if m.IR != nil {
		c.CyclomaticComplexity = m.IR.Complexity()
	}
	c.Modifiers = append(c.Modifiers, m.Flags...)
	c.Annotations = append(c.Annotations, m.Annotations...)
	for _, p := range params {
		c.Parameters = append(c.Parameters, symtab.Parameter{
			Type:        p,
			Annotations: []string{},
			Modifiers:   []string{},
			Span:        symtab.NoSpan(),
		})
	}
	if !c.IsConstructor {
		c.ReturnType = &ret
	}
	return c, nil
}

// displaySignature names constructors and class initializers after their type.
func displaySignature(sig, typeName string) string {
	simple := symtab.SimpleName(typeName)
	sig = strings.Replace(sig, symtab.ConstructorName, simple, 1)
	return strings.Replace(sig, symtab.StaticInitializerName, simple, 1)
}
