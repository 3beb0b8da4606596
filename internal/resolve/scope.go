package resolve

import (
	"github.com/mvp-joe/codeanalyzer/internal/parser"
	"github.com/mvp-joe/codeanalyzer/internal/symtab"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Scope is the resolution context of one compilation unit: its package and
// imports. Positions inside the unit supply the rest of the context.
type Scope struct {
	Unit    *parser.Unit
	Package string

	single         map[string]string // Simple name -> imported type
	onDemand       []string          // Packages or types imported with .*
	staticSingle   map[string]string // Member name -> declaring type
	staticOnDemand []string          // Types whose static members are all imported
}

// NewScope builds the scope of a unit from its package and import declarations.
func NewScope(u *parser.Unit) *Scope {
	s := &Scope{
		Unit:         u,
		Package:      u.Package(),
		single:       make(map[string]string),
		staticSingle: make(map[string]string),
	}
	for _, imp := range u.Imports() {
		switch {
		case imp.Static && imp.OnDemand:
			s.staticOnDemand = append(s.staticOnDemand, imp.Name)
		case imp.Static:
			s.staticSingle[symtab.SimpleName(imp.Name)] = symtab.PackageOf(imp.Name)
		case imp.OnDemand:
			s.onDemand = append(s.onDemand, imp.Name)
		default:
			s.single[symtab.SimpleName(imp.Name)] = imp.Name
		}
	}
	return s
}

// EnclosingType returns the qualified name of the type declaration that
// contains n, or "" at the top level.
func (s *Scope) EnclosingType(n *sitter.Node) string {
	if parser.IsTypeDecl(n) {
		return QualifiedName(s.Unit, n)
	}
	decl := parser.EnclosingTypeDecl(n)
	if decl == nil {
		return ""
	}
	return QualifiedName(s.Unit, decl)
}

// enclosingTypes returns the qualified names of every type declaration around
// n, innermost first.
func (s *Scope) enclosingTypes(n *sitter.Node) []string {
	var out []string
	decl := n
	if !parser.IsTypeDecl(decl) {
		decl = parser.EnclosingTypeDecl(n)
	}
	for ; decl != nil; decl = parser.EnclosingTypeDecl(decl) {
		out = append(out, QualifiedName(s.Unit, decl))
	}
	return out
}

// enclosingCallable returns the method, constructor, initializer or lambda
// whose body contains n.
func enclosingCallable(n *sitter.Node) *sitter.Node {
	return parser.Ancestor(n, "method_declaration", "constructor_declaration",
		"compact_constructor_declaration", "static_initializer", "field_declaration")
}
