package resolve

import (
	"strings"

	"github.com/mvp-joe/codeanalyzer/internal/parser"
	"github.com/mvp-joe/codeanalyzer/internal/symtab"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

const javaObject = "java.lang.Object"

// resolveType renders a type node with every named component qualified.
// Any unresolvable component fails the whole type. visiting guards against
// type parameters whose bounds refer to themselves.
func (r *Resolver) resolveType(s *Scope, n *sitter.Node, visiting map[uintptr]bool) Result {
	text := TypeText(s.Unit, n)
	switch n.Kind() {
	case "integral_type", "floating_point_type", "boolean_type", "void_type":
		return resolved(text)

	case "type_identifier", "identifier":
		return r.resolveSimple(s, n, text, visiting)

	case "scoped_type_identifier", "scoped_identifier", "field_access":
		return r.resolveScoped(s, n, text, visiting)

	case "generic_type":
		base := parser.ChildOfKind(n, "type_identifier", "scoped_type_identifier")
		res := r.resolveType(s, base, visiting)
		if !res.OK() {
			return res
		}
		args := parser.ChildOfKind(n, "type_arguments")
		rendered, ok := r.typeArguments(s, args, visiting)
		if !ok {
			return unresolved("type", text, "unresolvable type argument")
		}
		return resolved(res.Name + rendered)

	case "array_type":
		res := r.resolveType(s, n.ChildByFieldName("element"), visiting)
		if !res.OK() {
			return res
		}
		return resolved(res.Name + brackets(s.Unit.Text(n.ChildByFieldName("dimensions"))))

	case "wildcard":
		bound := lastNamedType(n)
		if bound == nil {
			return resolved("?")
		}
		res := r.resolveType(s, bound, visiting)
		if !res.OK() {
			return res
		}
		if parser.ChildOfKind(n, "super") != nil {
			return resolved("? super " + res.Name)
		}
		return resolved("? extends " + res.Name)

	case "annotated_type":
		return r.resolveType(s, lastNamedType(n), visiting)
	}
	return unresolved("type", text, "unsupported type syntax "+n.Kind())
}

// typeArguments renders "<A, B>", or "" for the diamond.
func (r *Resolver) typeArguments(s *Scope, args *sitter.Node, visiting map[uintptr]bool) (string, bool) {
	if args == nil {
		return "", true
	}
	var parts []string
	for _, arg := range parser.NamedChildren(args) {
		res := r.resolveType(s, arg, visiting)
		if !res.OK() {
			return "", false
		}
		parts = append(parts, res.Name)
	}
	if len(parts) == 0 {
		return "", true
	}
	return "<" + strings.Join(parts, ", ") + ">", true
}

// resolveSimple resolves an unqualified type name. Lookup order: type
// parameters in scope, enclosing and member types, single-type imports, the
// current package, on-demand imports, java.lang.
func (r *Resolver) resolveSimple(s *Scope, n *sitter.Node, name string, visiting map[uintptr]bool) Result {
	if param := typeParameter(s.Unit, n, name); param != nil {
		return r.typeParameterBound(s, param, visiting)
	}

	enclosing := s.enclosingTypes(n)
	cacheKey := s.Unit.Path + "|" + strings.Join(enclosing, ",") + "|" + name
	if fqn, ok := r.cache.Get(cacheKey); ok {
		return resolved(fqn)
	}
	if fqn, ok := r.lookupSimple(s, enclosing, name); ok {
		r.cache.Set(cacheKey, fqn)
		return resolved(fqn)
	}
	return unresolved("type", name, "no visible declaration")
}

func (r *Resolver) lookupSimple(s *Scope, enclosing []string, name string) (string, bool) {
	for _, outer := range enclosing {
		if symtab.SimpleName(outer) == name {
			return outer, true
		}
		if fqn, ok := r.memberType(outer, name); ok {
			return fqn, true
		}
	}
	if fqn, ok := s.single[name]; ok {
		return fqn, true
	}
	if fqn, ok := r.index.lookupPackage(s.Package, name); ok {
		return fqn, true
	}
	for _, pkg := range s.onDemand {
		if fqn, ok := r.index.lookupPackage(pkg, name); ok {
			return fqn, true
		}
		if fqn, ok := r.memberType(pkg, name); ok {
			return fqn, true
		}
	}
	if fqn, ok := javaLang[name]; ok {
		return fqn, true
	}
	if fqn, ok := r.index.lookupPackage("java.lang", name); ok {
		return fqn, true
	}
	return "", false
}

// memberType finds a member type declared in owner or inherited from its
// project supertypes.
func (r *Resolver) memberType(owner, name string) (string, bool) {
	chain := []string{owner}
	if ancestors, err := r.index.Ancestors(owner); err == nil {
		chain = append(chain, ancestors...)
	}
	for _, t := range chain {
		info, ok := r.index.Type(t)
		if !ok {
			continue
		}
		r.index.mu.RLock()
		fqn, found := info.Nested[name]
		r.index.mu.RUnlock()
		if found {
			return fqn, true
		}
	}
	return "", false
}

// resolveScoped resolves a qualified type name such as java.util.List or
// Map.Entry.
func (r *Resolver) resolveScoped(s *Scope, n *sitter.Node, text string, visiting map[uintptr]bool) Result {
	if r.index.known(text) {
		return resolved(text)
	}
	dot := strings.Index(text, ".")
	if dot < 0 {
		return r.resolveSimple(s, n, text, visiting)
	}
	head, rest := text[:dot], text[dot+1:]
	fqn, ok := r.lookupSimple(s, s.enclosingTypes(n), head)
	if !ok {
		return unresolved("type", text, "unknown qualifier "+head)
	}
	for _, part := range strings.Split(rest, ".") {
		if nested, found := r.memberType(fqn, part); found {
			fqn = nested
			continue
		}
		fqn = fqn + "." + part
	}
	return resolved(fqn)
}

// typeParameter finds the declaration of a type parameter named name that is
// in scope at n.
func typeParameter(u *parser.Unit, n *sitter.Node, name string) *sitter.Node {
	for p := n; p != nil; p = p.Parent() {
		switch p.Kind() {
		case "method_declaration", "constructor_declaration", "class_declaration",
			"interface_declaration", "record_declaration":
			params := p.ChildByFieldName("type_parameters")
			for _, param := range parser.ChildrenOfKind(params, "type_parameter") {
				if u.Text(typeParamName(param)) == name {
					return param
				}
			}
		}
	}
	return nil
}

// typeParameterBound renders a type parameter as its first bound, or
// java.lang.Object when it has none.
func (r *Resolver) typeParameterBound(s *Scope, param *sitter.Node, visiting map[uintptr]bool) Result {
	bound := parser.ChildOfKind(param, "type_bound")
	if bound == nil || visiting[param.Id()] {
		return resolved(javaObject)
	}
	next := make(map[uintptr]bool, len(visiting)+1)
	for k := range visiting {
		next[k] = true
	}
	next[param.Id()] = true
	first := parser.NamedChildren(bound)
	if len(first) == 0 {
		return resolved(javaObject)
	}
	return r.resolveType(s, first[0], next)
}

func lastNamedType(n *sitter.Node) *sitter.Node {
	children := parser.NamedChildren(n)
	for i := len(children) - 1; i >= 0; i-- {
		switch children[i].Kind() {
		case "marker_annotation", "annotation":
			continue
		}
		return children[i]
	}
	return nil
}

// brackets normalizes a dimensions node such as "[] []" to "[][]".
func brackets(dims string) string {
	return strings.Repeat("[]", strings.Count(dims, "["))
}
