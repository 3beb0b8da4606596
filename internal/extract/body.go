package extract

import (
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/codeanalyzer/internal/parser"
	"github.com/mvp-joe/codeanalyzer/internal/resolve"
	"github.com/mvp-joe/codeanalyzer/internal/symtab"
)

// facts are what a body contributes to its callable or initializer.
type facts struct {
	referencedTypes []string
	accessedFields  []string
	callSites       []symtab.CallSite
	variables       []symtab.VariableDeclaration
}

// bodyFacts collects the facts of a body in one pass over its nodes, lambdas
// and anonymous class bodies included. Call sites of method invocations come
// first, then object creations, each in source order.
func (x *unitExtractor) bodyFacts(body *sitter.Node, typeName string, fields []string) facts {
	referenced := make(map[string]bool)
	accessed := make(map[string]bool)
	classFields := make(map[string]bool, len(fields))
	for _, f := range fields {
		classFields[f] = true
	}

	var calls, creations []symtab.CallSite
	variables := []symtab.VariableDeclaration{}

	parser.Walk(body, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "local_variable_declaration", "field_declaration":
			typeNode := n.ChildByFieldName("type")
			for _, d := range parser.FieldChildren(n, "declarator") {
				if t, ok := x.nominalType(typeNode, d); ok {
					referenced[t] = true
				}
				variables = append(variables, x.variable(n, typeNode, d.ChildByFieldName("name"),
					d.ChildByFieldName("dimensions"), d.ChildByFieldName("value"), parser.SpanOf(d)))
			}
		case "enhanced_for_statement", "resource":
			name := n.ChildByFieldName("name")
			typeNode := n.ChildByFieldName("type")
			if name == nil || typeNode == nil {
				break
			}
			value := n.ChildByFieldName("value")
			if n.Kind() == "enhanced_for_statement" {
				value = nil
			}
			if t, ok := x.nominalType(typeNode, n); ok {
				referenced[t] = true
			}
			end := name
			if value != nil {
				end = value
			}
			variables = append(variables, x.variable(n, typeNode, name,
				n.ChildByFieldName("dimensions"), value, spanBetween(name, end)))
		case "field_access":
			if parent := n.Parent(); parent != nil && parent.Kind() != "field_access" {
				if t := x.fieldAccessType(n, parent); t != "" && !resolve.IsPrimitive(t) {
					referenced[t] = true
				}
				accessed[x.fieldAccessName(n)] = true
			}
		case "identifier":
			if classFields[x.u.Text(n)] && isNameExpr(n) {
				accessed[typeName+"."+x.u.Text(n)] = true
			}
		case "method_invocation":
			calls = append(calls, x.methodCall(n))
		case "object_creation_expression":
			creations = append(creations, x.objectCreation(n))
		}
		return true
	})

	return facts{
		referencedTypes: sortedSet(referenced),
		accessedFields:  sortedSet(accessed),
		callSites:       append(append([]symtab.CallSite{}, calls...), creations...),
		variables:       variables,
	}
}

// nominalType returns the resolved type of a declaration whose declared type
// is a class or interface type. Arrays, primitives and var are not nominal.
func (x *unitExtractor) nominalType(typeNode, declarator *sitter.Node) (string, bool) {
	if typeNode == nil || declarator.ChildByFieldName("dimensions") != nil {
		return "", false
	}
	switch typeNode.Kind() {
	case "type_identifier", "scoped_type_identifier", "generic_type":
	default:
		return "", false
	}
	text := resolve.TypeText(x.u, typeNode)
	if text == "var" {
		return "", false
	}
	return x.r.ResolveType(x.scope, typeNode).Or(text), true
}

func (x *unitExtractor) variable(stmt, typeNode, name, dims, value *sitter.Node, span symtab.Span) symtab.VariableDeclaration {
	v := symtab.VariableDeclaration{
		Comment: x.u.LeadingComment(stmt),
		Name:    x.u.Text(name),
		Type:    x.declaredType(typeNode, value),
		Span:    span,
	}
	if dims != nil {
		v.Type += strings.Repeat("[]", strings.Count(x.u.Text(dims), "["))
	}
	if value != nil {
		v.Initializer = x.u.Text(value)
	}
	return v
}

// declaredType resolves a declared type; var takes the type of the initializer.
func (x *unitExtractor) declaredType(typeNode, value *sitter.Node) string {
	text := resolve.TypeText(x.u, typeNode)
	if text == "var" {
		if value == nil {
			return text
		}
		return x.r.ResolveExpr(x.scope, value).Or(text)
	}
	return x.r.ResolveType(x.scope, typeNode).Or(text)
}

// fieldAccessType is the type a field access contributes to the referenced
// types: the cast target when the access is cast, else its own type.
func (x *unitExtractor) fieldAccessType(n, parent *sitter.Node) string {
	if parent.Kind() == "cast_expression" {
		typeNode := parent.ChildByFieldName("type")
		return x.r.ResolveType(x.scope, typeNode).Or(resolve.TypeText(x.u, typeNode))
	}
	return x.r.ResolveExpr(x.scope, n).Or("")
}

// fieldAccessName qualifies an accessed field by the type of its receiver,
// or returns the bare field name when the receiver does not resolve.
func (x *unitExtractor) fieldAccessName(n *sitter.Node) string {
	field := x.u.Text(n.ChildByFieldName("field"))
	recv := x.r.ResolveExpr(x.scope, n.ChildByFieldName("object"))
	if !recv.OK() || recv.Name == "" {
		return field
	}
	return recv.Name + "." + field
}

// isNameExpr reports whether an identifier is used as a simple name
// expression rather than as a declared name, label, member selector or part
// of a qualified name.
func isNameExpr(n *sitter.Node) bool {
	switch parser.FieldName(n) {
	case "name", "field", "parameters", "key", "label":
		return false
	}
	parent := n.Parent()
	if parent == nil {
		return false
	}
	switch parent.Kind() {
	case "labeled_statement", "break_statement", "continue_statement", "inferred_parameters",
		"scoped_identifier", "marker_annotation", "annotation", "catch_formal_parameter",
		"formal_parameter", "spread_parameter", "variable_declarator", "enum_constant":
		return parser.FieldName(n) == "value"
	case "method_reference":
		return parser.SameNode(parent.NamedChild(0), n)
	}
	return true
}

func (x *unitExtractor) methodCall(call *sitter.Node) symtab.CallSite {
	name := x.u.Text(call.ChildByFieldName("name"))
	site := x.callSite(call, name)

	if object := call.ChildByFieldName("object"); object != nil {
		text := x.u.Text(object)
		recv := x.r.ResolveExpr(x.scope, object)
		site.ReceiverExpr = text
		site.ReceiverType = recv.Or("")
		site.IsStaticCall = symtab.SimpleName(recv.Or(text)) == text
	}

	if parent := call.Parent(); parent != nil && parent.Kind() == "cast_expression" {
		typeNode := parent.ChildByFieldName("type")
		site.ReturnType = x.r.ResolveType(x.scope, typeNode).Or(resolve.TypeText(x.u, typeNode))
	} else {
		site.ReturnType = x.r.ResolveExpr(x.scope, call).Or("")
	}

	if m, res := x.r.ResolveMethod(x.scope, call); res.OK() && m != nil {
		site.CalleeSignature = m.Signature()
		site.SetAccess(m.Access())
	}

	x.e.crud.Tag(&site)
	return site
}

// objectCreation models `new T(...)` as a call to T's constructor.
func (x *unitExtractor) objectCreation(creation *sitter.Node) symtab.CallSite {
	site := x.callSite(creation, symtab.ConstructorName)
	site.IsConstructorCall = true

	if first := creation.NamedChild(0); first != nil && parser.FieldName(first) == "" && !parser.IsComment(first) {
		site.ReceiverExpr = x.u.Text(first)
	}

	typeNode := creation.ChildByFieldName("type")
	instantiated := x.r.ResolveType(x.scope, typeNode).Or(resolve.TypeText(x.u, typeNode))
	site.ReceiverType = instantiated
	site.ReturnType = instantiated

	if m, res := x.r.ResolveConstructor(x.scope, creation); res.OK() && m != nil {
		site.CalleeSignature = m.Signature()
	}
	return site
}

// callSite fills the parts every call site shares: arguments, span and the
// comment of the enclosing statement. Access is unspecified until the callee resolves.
func (x *unitExtractor) callSite(n *sitter.Node, method string) symtab.CallSite {
	site := symtab.CallSite{
		MethodName:    method,
		ArgumentTypes: []string{},
		ArgumentExpr:  []string{},
		Span:          parser.SpanOf(n),
	}
	site.SetAccess("")
	for _, arg := range parser.NamedChildren(n.ChildByFieldName("arguments")) {
		site.ArgumentTypes = append(site.ArgumentTypes, x.r.ResolveExpr(x.scope, arg).Or(""))
		site.ArgumentExpr = append(site.ArgumentExpr, x.u.Text(arg))
	}
	if stmt := enclosingStatement(n); stmt != nil {
		site.Comment = x.u.LeadingComment(stmt)
	}
	return site
}

// enclosingStatement returns the closest statement or local declaration around n.
func enclosingStatement(n *sitter.Node) *sitter.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		k := p.Kind()
		if strings.HasSuffix(k, "_statement") || k == "local_variable_declaration" {
			return p
		}
		if parser.IsCallableDecl(p) || parser.IsTypeDecl(p) {
			return nil
		}
	}
	return nil
}

// spanBetween returns the span from the start of a to the end of b.
func spanBetween(a, b *sitter.Node) symtab.Span {
	start, end := parser.SpanOf(a), parser.SpanOf(b)
	return symtab.Span{
		StartLine:   start.StartLine,
		StartColumn: start.StartColumn,
		EndLine:     end.EndLine,
		EndColumn:   end.EndColumn,
	}
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
