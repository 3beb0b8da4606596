package callgraph

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	cerrors "github.com/mvp-joe/codeanalyzer/internal/errors"
	"github.com/mvp-joe/codeanalyzer/internal/extract"
	"github.com/mvp-joe/codeanalyzer/internal/parser"
	"github.com/mvp-joe/codeanalyzer/internal/resolve"
	"github.com/mvp-joe/codeanalyzer/internal/symtab"
)

// CHAProvider builds a call graph by class-hierarchy analysis over an
// extracted project. Every callable with a body is a node. A call site
// targets the method its callee signature names plus every override
// declared in a project subtype of the receiver type. The project's syntax
// trees must still be open.
type CHAProvider struct {
	project  *extract.Project
	table    symtab.SymbolTable
	dataDeps bool
	logger   *logrus.Logger
}

// CHAOption configures a CHAProvider.
type CHAOption func(*CHAProvider)

// WithDataDependencies makes the provider emit parameter and return value
// dependencies for every resolved call.
func WithDataDependencies(enabled bool) CHAOption {
	return func(p *CHAProvider) { p.dataDeps = enabled }
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) CHAOption {
	return func(p *CHAProvider) { p.logger = logger }
}

// NewCHAProvider creates a provider over a loaded project and its symbol table.
func NewCHAProvider(project *extract.Project, table symtab.SymbolTable, opts ...CHAOption) *CHAProvider {
	p := &CHAProvider{project: project, table: table}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logrus.New()
	}
	return p
}

// Build computes the graph. It fails when the project declares no types or
// its class hierarchy has a cycle.
func (p *CHAProvider) Build(ctx context.Context) (*Graph, error) {
	idx := p.project.Index
	if idx.Len() == 0 {
		return nil, cerrors.CallGraphErrorf("class hierarchy is empty")
	}
	if err := checkHierarchy(idx); err != nil {
		return nil, cerrors.CallGraphError(err, "invalid class hierarchy")
	}

	b := &chaBuilder{
		idx:      idx,
		ir:       p.intermediate(),
		dataDeps: p.dataDeps,
		logger:   p.logger,
		ids:      make(map[string]int),
		returns:  make(map[int]bool),
		subtypes: make(map[string][]string),
		graph:    &Graph{Methods: []Method{}, Nodes: []Node{}},
	}

	for _, path := range sortedKeys(p.table) {
		unit := p.table[path]
		for _, typeName := range sortedKeys(unit.TypeDeclarations) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			b.typeNodes(typeName, unit.TypeDeclarations[typeName])
		}
	}

	p.logger.WithFields(logrus.Fields{
		"methods":    len(b.graph.Methods),
		"nodes":      len(b.graph.Nodes),
		"edges":      b.graph.EdgeCount(),
		"unresolved": b.unresolve,
	}).Debug("class hierarchy call graph built")
	return b.graph, nil
}

// intermediate counts the branches of every callable body in the project.
func (p *CHAProvider) intermediate() map[*resolve.MethodInfo]IR {
	out := make(map[*resolve.MethodInfo]IR)
	for _, u := range p.project.Units {
		for _, decl := range u.TypeDecls() {
			typeName := resolve.QualifiedName(u, decl)
			for _, member := range parser.Members(decl) {
				if !parser.IsCallableDecl(member) {
					continue
				}
				m, ok := p.project.Index.MethodAt(typeName, member.StartByte())
				if !ok {
					continue
				}
				br := parser.CountBranches(member)
				out[m] = IR{
					ConditionalBranches: br.Conditionals,
					SwitchCases:         br.SwitchCases,
					CatchBlocks:         br.Catches,
				}
			}
		}
	}
	return out
}

type chaBuilder struct {
	idx      *resolve.Index
	ir       map[*resolve.MethodInfo]IR
	dataDeps bool
	logger   *logrus.Logger

	graph     *Graph
	ids       map[string]int // Method ID -> index in graph.Methods
	returns   map[int]bool   // Methods returning a value
	subtypes  map[string][]string
	unresolve int
}

// typeNodes adds a node per callable of a type. Instance initializers run as
// part of every constructor, so their calls are attributed to each of them;
// static initializers form the <clinit> node.
func (b *chaBuilder) typeNodes(typeName string, t *symtab.Type) {
	var instanceSites, staticSites []symtab.CallSite
	for _, block := range t.InitializationBlocks {
		if block.IsStatic {
			staticSites = append(staticSites, block.CallSites...)
		} else {
			instanceSites = append(instanceSites, block.CallSites...)
		}
	}

	hasConstructor := false
	for _, key := range sortedKeys(t.CallableDeclarations) {
		c := t.CallableDeclarations[key]
		m := b.declared(typeName, key)
		if m == nil {
			b.logger.WithField("type", typeName).WithField("signature", key).Debug("callable missing from index")
			continue
		}
		sites := c.CallSites
		if c.IsConstructor {
			hasConstructor = true
			sites = append(append([]symtab.CallSite{}, sites...), instanceSites...)
		}
		b.node(typeName, b.method(m), sites)
	}

	if !hasConstructor && len(instanceSites) > 0 {
		for _, m := range b.idx.Methods(typeName) {
			if m.Constructor && m.Implicit {
				b.node(typeName, b.method(m), instanceSites)
				break
			}
		}
	}
	if len(staticSites) > 0 {
		b.node(typeName, b.staticInit(typeName), staticSites)
	}
}

func (b *chaBuilder) node(typeName string, src int, sites []symtab.CallSite) {
	node := Node{Method: src, CallSites: []CallSite{}}
	for _, site := range sites {
		targets := b.targets(typeName, site)
		if len(targets) == 0 {
			continue
		}
		node.CallSites = append(node.CallSites, CallSite{Targets: targets})
		if !b.dataDeps {
			continue
		}
		for _, t := range targets {
			if len(site.ArgumentExpr) > 0 {
				b.graph.Dependencies = append(b.graph.Dependencies, StatementDependency{
					Source: src, Target: t,
					SourceKind: KindParamCaller, DestinationKind: KindParamCallee,
					Type: DataDependency,
				})
			}
			if b.returns[t] {
				b.graph.Dependencies = append(b.graph.Dependencies, StatementDependency{
					Source: t, Target: src,
					SourceKind: KindNormalRetCallee, DestinationKind: KindNormalRetCaller,
					Type: DataDependency,
				})
			}
		}
	}
	b.graph.Nodes = append(b.graph.Nodes, node)
}

// declared finds the index entry of a callable by its signature key.
func (b *chaBuilder) declared(typeName, key string) *resolve.MethodInfo {
	for _, m := range b.idx.Methods(typeName) {
		if m.Key == key {
			return m
		}
	}
	return nil
}

// targets returns the possible targets of a call site, or nil when its
// callee is unknown.
func (b *chaBuilder) targets(callerType string, site symtab.CallSite) []int {
	if site.CalleeSignature == "" {
		b.unresolve++
		return nil
	}

	m, owner := b.callee(callerType, site)
	if m == nil {
		b.unresolve++
		return nil
	}

	targets := []int{}
	if !b.isAbstract(m) {
		targets = append(targets, b.method(m))
	}
	if site.IsConstructorCall || m.IsStatic() || m.Access() == "private" {
		return targets
	}
	for _, sub := range b.subtypesOf(owner) {
		for _, o := range b.idx.Methods(sub) {
			if o.Name == m.Name && !o.IsStatic() && !b.isAbstract(o) && sameParams(o.Params, m.Params) {
				targets = append(targets, b.method(o))
			}
		}
	}
	return targets
}

// callee finds the method a call site's signature names, and the type whose
// subtypes may override it. Calls without a receiver search the caller and
// its enclosing types.
func (b *chaBuilder) callee(callerType string, site symtab.CallSite) (*resolve.MethodInfo, string) {
	var owners []string
	if site.ReceiverType != "" {
		owners = []string{symtab.EraseTypeArguments(site.ReceiverType)}
	} else {
		for t := callerType; t != ""; {
			owners = append(owners, t)
			info, ok := b.idx.Type(t)
			if !ok {
				break
			}
			t = info.Outer
		}
	}

	for _, owner := range owners {
		for _, m := range b.idx.FindMethods(owner, site.MethodName) {
			if site.IsConstructorCall && m.Declaring != owner {
				continue
			}
			if m.Signature() == site.CalleeSignature {
				return m, owner
			}
		}
	}
	return nil, ""
}

func (b *chaBuilder) subtypesOf(owner string) []string {
	subs, ok := b.subtypes[owner]
	if !ok {
		subs = b.idx.Subtypes(owner)
		b.subtypes[owner] = subs
	}
	return subs
}

// isAbstract reports whether a method has no body to dispatch to.
func (b *chaBuilder) isAbstract(m *resolve.MethodInfo) bool {
	for _, mod := range m.Modifiers {
		switch mod {
		case "abstract":
			return true
		case "default", "static", "private":
			return false
		}
	}
	info, ok := b.idx.Type(m.Declaring)
	return ok && info.Kind == resolve.KindInterface && !m.Implicit
}

// method returns the graph index of m, adding it on first sight.
func (b *chaBuilder) method(m *resolve.MethodInfo) int {
	ret := m.Return
	if m.Constructor {
		ret = "void"
	}
	gm := Method{
		Class:       b.internalName(m.Declaring),
		Name:        m.Name,
		Descriptor:  MethodDescriptor(m.Params, ret, b.internalName),
		Flags:       append([]string{}, m.Modifiers...),
		Annotations: append([]string{}, m.Annotations...),
		Application: b.idx.IsApplication(m.Declaring),
	}
	if ir, ok := b.ir[m]; ok {
		gm.IR = &ir
	}
	i := b.add(gm)
	b.returns[i] = !m.Constructor && ret != "void"
	return i
}

func (b *chaBuilder) staticInit(typeName string) int {
	return b.add(Method{
		Class:       b.internalName(typeName),
		Name:        symtab.StaticInitializerName,
		Descriptor:  "()V",
		Flags:       []string{"static"},
		Annotations: []string{},
		Application: true,
	})
}

func (b *chaBuilder) add(m Method) int {
	if i, ok := b.ids[m.ID()]; ok {
		return i
	}
	i := len(b.graph.Methods)
	b.graph.Methods = append(b.graph.Methods, m)
	b.ids[m.ID()] = i
	return i
}

// internalName renders a qualified name in JVM form, with $ between a
// nested type and its enclosing type.
func (b *chaBuilder) internalName(fqn string) string {
	fqn = symtab.EraseTypeArguments(fqn)
	if info, ok := b.idx.Type(fqn); ok && info.Outer != "" {
		return b.internalName(info.Outer) + "$" + symtab.SimpleName(fqn)
	}
	return DefaultInternalName(fqn)
}

func sameParams(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if symtab.EraseTypeArguments(a[i]) != symtab.EraseTypeArguments(b[i]) {
			return false
		}
	}
	return true
}

// checkHierarchy fails when a project type is its own ancestor.
func checkHierarchy(idx *resolve.Index) error {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int)
	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			return fmt.Errorf("inheritance cycle through %s", name)
		case done:
			return nil
		}
		if !idx.IsApplication(name) {
			state[name] = done
			return nil
		}
		state[name] = visiting
		for _, super := range idx.DirectSupertypes(name) {
			if err := visit(super); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}
	for _, name := range idx.TypeNames() {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
