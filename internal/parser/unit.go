package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// TypeDeclKinds are the node kinds that declare a named type.
var TypeDeclKinds = []string{
	"class_declaration",
	"interface_declaration",
	"enum_declaration",
	"record_declaration",
	"annotation_type_declaration",
}

// CallableKinds are the node kinds that declare a method or constructor.
var CallableKinds = []string{
	"method_declaration",
	"constructor_declaration",
	"compact_constructor_declaration",
}

// Import is one import declaration.
type Import struct {
	Name     string // Qualified name without the trailing ".*"
	Static   bool
	OnDemand bool
}

// IsTypeDecl reports whether n declares a named type.
func IsTypeDecl(n *sitter.Node) bool {
	return isKind(n, TypeDeclKinds)
}

// IsCallableDecl reports whether n declares a method or constructor.
func IsCallableDecl(n *sitter.Node) bool {
	return isKind(n, CallableKinds)
}

// Package returns the declared package name, or "" for the default package.
func (u *Unit) Package() string {
	decl := ChildOfKind(u.Root, "package_declaration")
	if decl == nil {
		return ""
	}
	name := ChildOfKind(decl, "scoped_identifier", "identifier")
	return u.Text(name)
}

// Imports returns the import declarations in source order.
func (u *Unit) Imports() []Import {
	var out []Import
	for _, decl := range ChildrenOfKind(u.Root, "import_declaration") {
		name := ChildOfKind(decl, "scoped_identifier", "identifier")
		if name == nil {
			continue
		}
		out = append(out, Import{
			Name:     u.Text(name),
			Static:   ChildOfKind(decl, "static") != nil,
			OnDemand: ChildOfKind(decl, "asterisk") != nil,
		})
	}
	return out
}

// TypeDecls returns every type declaration of the unit in source order,
// nested and local declarations included.
func (u *Unit) TypeDecls() []*sitter.Node {
	var out []*sitter.Node
	Walk(u.Root, func(n *sitter.Node) bool {
		if IsTypeDecl(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Name returns the text of the name field of a declaration.
func (u *Unit) Name(decl *sitter.Node) string {
	return u.Text(decl.ChildByFieldName("name"))
}

// Body returns the body of a type declaration.
func Body(decl *sitter.Node) *sitter.Node {
	return decl.ChildByFieldName("body")
}

// Members returns the declarations whose immediate parent is the body of decl.
// Enum bodies contribute the members of their enum_body_declarations section.
func Members(decl *sitter.Node) []*sitter.Node {
	body := Body(decl)
	if body == nil {
		return nil
	}
	var out []*sitter.Node
	for _, child := range NamedChildren(body) {
		if child.Kind() == "enum_body_declarations" {
			out = append(out, NamedChildren(child)...)
			continue
		}
		out = append(out, child)
	}
	return out
}

// EnclosingTypeDecl returns the closest type declaration containing n.
func EnclosingTypeDecl(n *sitter.Node) *sitter.Node {
	return Ancestor(n, TypeDeclKinds...)
}
