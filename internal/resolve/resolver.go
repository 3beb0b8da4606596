package resolve

import (
	"fmt"
	"strings"
	"sync"

	"github.com/maypok86/otter"
	"github.com/mvp-joe/codeanalyzer/internal/parser"
	"github.com/sirupsen/logrus"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

const defaultCacheSize = 10_000

// Resolver resolves syntactic types and expressions to canonical type names
// against the project index.
//
// Failed resolutions are remembered by their spelling within the failing
// context and are never attempted again. Successful simple-name lookups are
// kept in a bounded cache.
type Resolver struct {
	index  *Index
	logger *logrus.Logger
	cache  otter.Cache[string, string]

	typeFailures sync.Map
	exprFailures sync.Map
}

// Option configures a Resolver.
type Option func(*resolverOptions)

type resolverOptions struct {
	logger    *logrus.Logger
	cacheSize int
}

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(logger *logrus.Logger) Option {
	return func(o *resolverOptions) {
		o.logger = logger
	}
}

// WithCacheSize sets the capacity of the success cache.
func WithCacheSize(size int) Option {
	return func(o *resolverOptions) {
		o.cacheSize = size
	}
}

// New creates a resolver over a populated index.
func New(index *Index, opts ...Option) (*Resolver, error) {
	o := resolverOptions{cacheSize: defaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logrus.New()
		o.logger.SetLevel(logrus.WarnLevel)
	}

	cache, err := otter.MustBuilder[string, string](o.cacheSize).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create resolution cache: %w", err)
	}

	return &Resolver{
		index:  index,
		logger: o.logger,
		cache:  cache,
	}, nil
}

// Index returns the index the resolver works on.
func (r *Resolver) Index() *Index {
	return r.index
}

// Close releases the success cache.
func (r *Resolver) Close() {
	r.cache.Close()
}

func (r *Resolver) reset() {
	r.cache.Clear()
	r.typeFailures.Range(func(key, _ any) bool {
		r.typeFailures.Delete(key)
		return true
	})
	r.exprFailures.Range(func(key, _ any) bool {
		r.exprFailures.Delete(key)
		return true
	})
}

// ResolveType resolves a type node to its canonical name.
func (r *Resolver) ResolveType(s *Scope, n *sitter.Node) Result {
	if n == nil {
		return unresolved("type", "", "no type")
	}
	text := s.Unit.Text(n)
	key := s.Unit.Path + "|" + s.EnclosingType(n) + "|" + text
	if _, failed := r.typeFailures.Load(key); failed {
		return unresolved("type", text, "previously failed")
	}

	res := r.resolveType(s, n, nil)
	if !res.OK() {
		r.typeFailures.Store(key, struct{}{})
		r.logger.WithField("file", s.Unit.Path).WithError(res.Err).Debug("type resolution failed")
	}
	return res
}

// ResolveExpr resolves the static type of an expression node.
func (r *Resolver) ResolveExpr(s *Scope, n *sitter.Node) Result {
	if n == nil {
		return unresolved("expression", "", "no expression")
	}
	text := s.Unit.Text(n)
	key := s.Unit.Path + "|" + contextKey(n) + "|" + text
	if _, failed := r.exprFailures.Load(key); failed {
		return unresolved("expression", text, "previously failed")
	}

	res := r.exprType(s, n)
	if !res.OK() {
		r.exprFailures.Store(key, struct{}{})
		r.logger.WithField("file", s.Unit.Path).WithError(res.Err).Debug("expression resolution failed")
	}
	return res
}

// contextKey identifies the callable an expression belongs to, so that equal
// spellings in different bodies are memoized separately.
func contextKey(n *sitter.Node) string {
	if c := enclosingCallable(n); c != nil {
		return fmt.Sprintf("%d", c.StartByte())
	}
	return "-"
}

// TypeText returns the as-written text of a type node with whitespace collapsed.
func TypeText(u *parser.Unit, n *sitter.Node) string {
	return strings.Join(strings.Fields(u.Text(n)), " ")
}
