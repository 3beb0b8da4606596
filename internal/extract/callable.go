package extract

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/codeanalyzer/internal/entrypoint"
	"github.com/mvp-joe/codeanalyzer/internal/parser"
	"github.com/mvp-joe/codeanalyzer/internal/resolve"
	"github.com/mvp-joe/codeanalyzer/internal/symtab"
)

// callable extracts a method or constructor of typeName and returns it with
// its signature key and the view entrypoint rules see of it.
func (x *unitExtractor) callable(decl *sitter.Node, typeName string, fields []string, parent *entrypoint.TypeView) (string, *symtab.Callable, entrypoint.MethodView) {
	m, ok := x.index.MethodAt(typeName, decl.StartByte())
	if !ok {
		m = x.r.Method(x.scope, decl, typeName)
		m.Key = symtab.SignatureKey(m.Name, m.Params)
	}

	c := symtab.NewCallable()
	c.FilePath = x.u.Path
	c.Signature = m.Signature()
	c.Comments = orEmpty(x.u.Comments(decl))
	if doc := x.u.DocComment(decl); doc != nil {
		c.Comments = append(c.Comments, *doc)
	}
	c.Annotations = orEmpty(m.Annotations)
	c.Modifiers = orEmpty(m.Modifiers)
	c.ThrownExceptions = orEmpty(m.Throws)
	c.Declaration = x.declaration(decl)
	c.IsConstructor = m.Constructor
	if !m.Constructor {
		ret := m.Return
		c.ReturnType = &ret
	}
	c.StartLine = parser.StartLine(decl)
	c.EndLine = parser.EndLine(decl)
	c.CyclomaticComplexity = parser.CountBranches(decl).Complexity()

	params := resolve.Params(decl)
	if decl.Kind() == "compact_constructor_declaration" {
		params = resolve.Params(parser.EnclosingTypeDecl(decl))
	}
	for _, p := range params {
		c.Parameters = append(c.Parameters, symtab.Parameter{
			Type:        x.r.ParamType(x.scope, p),
			Name:        resolve.ParamName(x.u, p),
			Annotations: resolve.Annotations(x.u, p),
			Modifiers:   resolve.Modifiers(x.u, p),
			Span:        parser.SpanOf(p),
		})
	}

	view := entrypoint.MethodView{
		Name:           x.u.Name(decl),
		Annotations:    c.Annotations,
		ParameterTypes: m.Params,
		Parent:         parent,
	}
	c.IsEntrypoint = x.e.entrypoints.IsEntrypointMethod(view)

	c.CodeStartLine = symtab.Unknown
	if body := decl.ChildByFieldName("body"); body != nil {
		c.Code = x.u.Text(body)
		c.CodeStartLine = parser.StartLine(body)

		facts := x.bodyFacts(body, typeName, fields)
		c.ReferencedTypes = facts.referencedTypes
		c.AccessedFields = facts.accessedFields
		c.CallSites = facts.callSites
		c.VariableDeclarations = facts.variables
		for _, site := range c.CallSites {
			if site.CRUDOperation != nil {
				c.CRUDOperations = append(c.CRUDOperations, *site.CRUDOperation)
			}
			if site.CRUDQuery != nil {
				c.CRUDQueries = append(c.CRUDQueries, *site.CRUDQuery)
			}
		}
	}
	return m.Key, c, view
}

// initBlock extracts a static or instance initializer of typeName.
func (x *unitExtractor) initBlock(decl *sitter.Node, typeName string, fields []string) symtab.InitializationBlock {
	body := decl
	if decl.Kind() == "static_initializer" {
		body = parser.ChildOfKind(decl, "block")
	}

	b := symtab.InitializationBlock{
		FilePath:             x.u.Path,
		Comments:             orEmpty(x.u.Comments(decl)),
		Annotations:          []string{},
		ThrownExceptions:     []string{},
		Code:                 x.u.Text(body),
		StartLine:            parser.StartLine(decl),
		EndLine:              parser.EndLine(decl),
		IsStatic:             decl.Kind() == "static_initializer",
		CyclomaticComplexity: parser.CountBranches(decl).Complexity(),
	}
	if doc := x.u.DocComment(decl); doc != nil {
		b.Comments = append(b.Comments, *doc)
	}
	for _, stmt := range parser.ChildrenOfKind(body, "throw_statement") {
		thrown := parser.NamedChildren(stmt)
		if len(thrown) == 0 {
			continue
		}
		b.ThrownExceptions = append(b.ThrownExceptions,
			x.r.ResolveExpr(x.scope, thrown[0]).Or(x.u.Text(thrown[0])))
	}

	facts := x.bodyFacts(body, typeName, fields)
	b.ReferencedTypes = facts.referencedTypes
	b.AccessedFields = facts.accessedFields
	b.CallSites = facts.callSites
	b.VariableDeclarations = facts.variables
	return b
}

// declaration renders a callable header the way it reads in source, without
// annotations, comments or body: modifiers, type parameters, return type,
// name with parameters and the throws clause.
func (x *unitExtractor) declaration(decl *sitter.Node) string {
	var parts []string
	if mods := resolve.Modifiers(x.u, decl); len(mods) > 0 {
		parts = append(parts, strings.Join(mods, " "))
	}
	for i := uint(0); i < decl.ChildCount(); i++ {
		child := decl.Child(i)
		switch {
		case child.Kind() == "modifiers", parser.IsComment(child):
			continue
		case decl.FieldNameForChild(uint32(i)) == "body":
			continue
		}
		text := parser.CollapseSpace(x.textWithoutComments(child))
		if child.Kind() == "formal_parameters" && len(parts) > 0 {
			parts[len(parts)-1] += text
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

// textWithoutComments returns the source of n with every comment cut out.
func (x *unitExtractor) textWithoutComments(n *sitter.Node) string {
	var b strings.Builder
	pos := n.StartByte()
	parser.Walk(n, func(c *sitter.Node) bool {
		if parser.IsComment(c) {
			b.Write(x.u.Source[pos:c.StartByte()])
			b.WriteByte(' ')
			pos = c.EndByte()
			return false
		}
		return true
	})
	b.Write(x.u.Source[pos:n.EndByte()])
	return b.String()
}
