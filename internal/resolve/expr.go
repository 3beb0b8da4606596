package resolve

import (
	"strings"

	"github.com/mvp-joe/codeanalyzer/internal/parser"
	"github.com/mvp-joe/codeanalyzer/internal/symtab"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

func (r *Resolver) exprType(s *Scope, n *sitter.Node) Result {
	text := s.Unit.Text(n)
	fail := func(reason string) Result {
		return unresolved("expression", text, reason)
	}

	switch n.Kind() {
	case "decimal_integer_literal", "hex_integer_literal", "octal_integer_literal", "binary_integer_literal":
		if strings.HasSuffix(text, "L") || strings.HasSuffix(text, "l") {
			return resolved("long")
		}
		return resolved("int")
	case "decimal_floating_point_literal", "hex_floating_point_literal":
		if strings.HasSuffix(text, "f") || strings.HasSuffix(text, "F") {
			return resolved("float")
		}
		return resolved("double")
	case "true", "false":
		return resolved("boolean")
	case "character_literal":
		return resolved("char")
	case "string_literal", "text_block":
		return resolved("java.lang.String")
	case "null_literal":
		return resolved("null")
	case "class_literal":
		res := r.ResolveType(s, firstNamed(n))
		if !res.OK() {
			return res
		}
		return resolved("java.lang.Class<" + boxed(res.Name) + ">")

	case "this":
		if t := s.EnclosingType(n); t != "" {
			return resolved(t)
		}
		return fail("this outside a type")
	case "super":
		return r.superOf(s, n)

	case "identifier":
		return r.identifierType(s, n, text)

	case "field_access":
		return r.fieldAccessType(s, n)

	case "method_invocation":
		m, res := r.ResolveMethod(s, n)
		if !res.OK() {
			return res
		}
		if m.Constructor {
			return fail("constructor invocation has no value")
		}
		return resolved(m.Return)

	case "object_creation_expression":
		return r.ResolveType(s, n.ChildByFieldName("type"))

	case "array_creation_expression":
		res := r.ResolveType(s, n.ChildByFieldName("type"))
		if !res.OK() {
			return res
		}
		dims := len(parser.ChildrenOfKind(n, "dimensions_expr"))
		for _, d := range parser.ChildrenOfKind(n, "dimensions") {
			dims += strings.Count(s.Unit.Text(d), "[")
		}
		return resolved(res.Name + strings.Repeat("[]", dims))

	case "array_access":
		res := r.ResolveExpr(s, n.ChildByFieldName("array"))
		if !res.OK() {
			return res
		}
		if !strings.HasSuffix(res.Name, "[]") {
			return fail("indexed value is not an array")
		}
		return resolved(strings.TrimSuffix(res.Name, "[]"))

	case "cast_expression":
		return r.ResolveType(s, n.ChildByFieldName("type"))

	case "parenthesized_expression":
		inner := parser.NamedChildren(n)
		if len(inner) == 0 {
			return fail("empty parentheses")
		}
		return r.ResolveExpr(s, inner[0])

	case "ternary_expression":
		res := r.ResolveExpr(s, n.ChildByFieldName("consequence"))
		if res.OK() && res.Name != "null" {
			return res
		}
		return r.ResolveExpr(s, n.ChildByFieldName("alternative"))

	case "assignment_expression":
		return r.ResolveExpr(s, n.ChildByFieldName("left"))

	case "instanceof_expression":
		return resolved("boolean")

	case "unary_expression":
		if op := n.ChildByFieldName("operator"); op != nil && s.Unit.Text(op) == "!" {
			return resolved("boolean")
		}
		return unbox(r.ResolveExpr(s, n.ChildByFieldName("operand")))

	case "update_expression":
		inner := parser.NamedChildren(n)
		if len(inner) == 0 {
			return fail("empty update")
		}
		return r.ResolveExpr(s, inner[0])

	case "binary_expression":
		return r.binaryType(s, n)
	}
	return fail("unsupported expression " + n.Kind())
}

func (r *Resolver) superOf(s *Scope, n *sitter.Node) Result {
	t := s.EnclosingType(n)
	if info, ok := r.index.Type(t); ok {
		r.index.mu.RLock()
		defer r.index.mu.RUnlock()
		if len(info.Supertypes) > 0 && info.Kind == KindClass {
			return resolved(info.Supertypes[0])
		}
	}
	return resolved(javaObject)
}

// identifierType resolves a bare name: a local variable or parameter, a field
// of an enclosing type, a statically imported field, or a type name.
func (r *Resolver) identifierType(s *Scope, n *sitter.Node, name string) Result {
	if decl, typeNode, suffix := findLocal(s.Unit, n, name); decl != nil {
		if typeNode == nil {
			return unresolved("expression", name, "untyped lambda parameter")
		}
		if TypeText(s.Unit, typeNode) == "var" {
			if decl.Kind() == "enhanced_for_statement" {
				return unresolved("expression", name, "var loop variable")
			}
			if value := decl.ChildByFieldName("value"); value != nil {
				return r.ResolveExpr(s, value)
			}
			return unresolved("expression", name, "var without initializer")
		}
		res := r.ResolveType(s, typeNode)
		if !res.OK() {
			return res
		}
		return resolved(res.Name + suffix)
	}

	for _, outer := range s.enclosingTypes(n) {
		if typ, _, ok := r.index.FieldType(outer, name); ok {
			return resolved(typ)
		}
	}
	if owner, ok := s.staticSingle[name]; ok {
		if typ, _, ok := r.index.FieldType(owner, name); ok {
			return resolved(typ)
		}
	}
	for _, owner := range s.staticOnDemand {
		if typ, _, ok := r.index.FieldType(owner, name); ok {
			return resolved(typ)
		}
	}

	if fqn, ok := r.lookupSimple(s, s.enclosingTypes(n), name); ok {
		return resolved(fqn)
	}
	return unresolved("expression", name, "unknown symbol")
}

func (r *Resolver) fieldAccessType(s *Scope, n *sitter.Node) Result {
	object := n.ChildByFieldName("object")
	field := s.Unit.Text(n.ChildByFieldName("field"))
	text := s.Unit.Text(n)

	owner := r.ResolveExpr(s, object)
	if owner.OK() {
		if field == "length" && strings.HasSuffix(owner.Name, "[]") {
			return resolved("int")
		}
		if typ, _, ok := r.index.FieldType(owner.Name, field); ok {
			return resolved(typ)
		}
		if nested, ok := r.memberType(owner.Name, field); ok {
			return resolved(nested)
		}
		return unresolved("expression", text, "no field "+field+" on "+owner.Name)
	}

	// A qualified type name such as java.util.Collections parses as a field access.
	if r.index.known(text) {
		return resolved(text)
	}
	return owner
}

func (r *Resolver) binaryType(s *Scope, n *sitter.Node) Result {
	op := s.Unit.Text(n.ChildByFieldName("operator"))
	switch op {
	case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
		return resolved("boolean")
	}
	left := unbox(r.ResolveExpr(s, n.ChildByFieldName("left")))
	right := unbox(r.ResolveExpr(s, n.ChildByFieldName("right")))
	if op == "+" && (left.Name == "java.lang.String" || right.Name == "java.lang.String") {
		return resolved("java.lang.String")
	}
	if !left.OK() {
		return left
	}
	if !right.OK() {
		return right
	}
	switch op {
	case "<<", ">>", ">>>":
		return resolved(promote(left.Name, "int"))
	}
	if left.Name == "boolean" && right.Name == "boolean" {
		return resolved("boolean")
	}
	return resolved(promote(left.Name, right.Name))
}

var numericRank = map[string]int{"byte": 1, "short": 2, "char": 2, "int": 3, "long": 4, "float": 5, "double": 6}

// promote applies binary numeric promotion.
func promote(a, b string) string {
	result := "int"
	for _, t := range []string{a, b} {
		if numericRank[t] > numericRank[result] {
			result = t
		}
	}
	return result
}

var boxes = map[string]string{
	"int":     "java.lang.Integer",
	"long":    "java.lang.Long",
	"double":  "java.lang.Double",
	"float":   "java.lang.Float",
	"boolean": "java.lang.Boolean",
	"char":    "java.lang.Character",
	"byte":    "java.lang.Byte",
	"short":   "java.lang.Short",
	"void":    "java.lang.Void",
}

func boxed(t string) string {
	if b, ok := boxes[t]; ok {
		return b
	}
	return t
}

func unbox(res Result) Result {
	if !res.OK() {
		return res
	}
	for prim, box := range boxes {
		if res.Name == box {
			return resolved(prim)
		}
	}
	return res
}

// findLocal walks outward from n looking for a local variable or parameter
// named name. It returns the declaring node, its type node and any array
// suffix written on the declarator.
func findLocal(u *parser.Unit, n *sitter.Node, name string) (decl, typeNode *sitter.Node, suffix string) {
	for cur := n; cur != nil; cur = cur.Parent() {
		parent := cur.Parent()
		if parent == nil {
			return nil, nil, ""
		}
		switch parent.Kind() {
		case "block", "constructor_body", "switch_block_statement_group", "program":
			for sib := cur.PrevSibling(); sib != nil; sib = sib.PrevSibling() {
				if sib.Kind() != "local_variable_declaration" {
					continue
				}
				if d := declarator(u, sib, name); d != nil {
					return d, sib.ChildByFieldName("type"), brackets(u.Text(d.ChildByFieldName("dimensions")))
				}
			}
		case "for_statement":
			for _, init := range parser.FieldChildren(parent, "init") {
				if init.Kind() != "local_variable_declaration" {
					continue
				}
				if d := declarator(u, init, name); d != nil {
					return d, init.ChildByFieldName("type"), brackets(u.Text(d.ChildByFieldName("dimensions")))
				}
			}
		case "enhanced_for_statement":
			if u.Text(parent.ChildByFieldName("name")) == name {
				return parent, parent.ChildByFieldName("type"), brackets(u.Text(parent.ChildByFieldName("dimensions")))
			}
		case "catch_clause":
			if p := parser.ChildOfKind(parent, "catch_formal_parameter"); p != nil && u.Name(p) == name {
				catchType := parser.ChildOfKind(p, "catch_type")
				return p, firstNamed(catchType), ""
			}
		case "try_with_resources_statement":
			spec := parent.ChildByFieldName("resources")
			for _, res := range parser.ChildrenOfKind(spec, "resource") {
				if u.Name(res) == name {
					return res, res.ChildByFieldName("type"), ""
				}
			}
		case "lambda_expression":
			params := parent.ChildByFieldName("parameters")
			if params == nil {
				break
			}
			switch params.Kind() {
			case "identifier":
				if u.Text(params) == name {
					return params, nil, ""
				}
			case "inferred_parameters":
				for _, id := range parser.NamedChildren(params) {
					if u.Text(id) == name {
						return id, nil, ""
					}
				}
			case "formal_parameters":
				if p := paramNamed(u, Params(parent), name); p != nil {
					return p, paramTypeNode(p), paramSuffix(u, p)
				}
			}
		case "method_declaration", "constructor_declaration":
			if p := paramNamed(u, Params(parent), name); p != nil {
				return p, paramTypeNode(p), paramSuffix(u, p)
			}
		case "compact_constructor_declaration":
			if p := paramNamed(u, recordComponents(parser.EnclosingTypeDecl(parent)), name); p != nil {
				return p, paramTypeNode(p), paramSuffix(u, p)
			}
		case "if_statement", "while_statement":
			if p := patternBinding(u, parent.ChildByFieldName("condition"), name); p != nil {
				return p, p.ChildByFieldName("right"), ""
			}
		}
		if parser.IsTypeDecl(parent) {
			return nil, nil, ""
		}
	}
	return nil, nil, ""
}

// patternBinding finds an instanceof pattern variable named name in a condition.
func patternBinding(u *parser.Unit, cond *sitter.Node, name string) *sitter.Node {
	var found *sitter.Node
	parser.Walk(cond, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.Kind() == "instanceof_expression" {
			if id := n.ChildByFieldName("name"); id != nil && u.Text(id) == name {
				found = n
				return false
			}
		}
		return true
	})
	return found
}

func declarator(u *parser.Unit, decl *sitter.Node, name string) *sitter.Node {
	for _, d := range parser.FieldChildren(decl, "declarator") {
		if u.Name(d) == name {
			return d
		}
	}
	return nil
}

func paramNamed(u *parser.Unit, params []*sitter.Node, name string) *sitter.Node {
	for _, p := range params {
		if ParamName(u, p) == name {
			return p
		}
	}
	return nil
}

func firstNamed(n *sitter.Node) *sitter.Node {
	children := parser.NamedChildren(n)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

// ResolveMethod resolves the method a method_invocation node calls. The
// result carries the call's return type.
func (r *Resolver) ResolveMethod(s *Scope, call *sitter.Node) (*MethodInfo, Result) {
	name := s.Unit.Text(call.ChildByFieldName("name"))
	text := s.Unit.Text(call)
	args := parser.NamedChildren(call.ChildByFieldName("arguments"))

	var candidates []*MethodInfo
	if object := call.ChildByFieldName("object"); object != nil {
		recv := r.ResolveExpr(s, object)
		if !recv.OK() {
			return nil, recv
		}
		candidates = r.index.FindMethods(recv.Name, name)
	} else {
		for _, outer := range s.enclosingTypes(call) {
			if candidates = r.index.FindMethods(outer, name); len(candidates) > 0 {
				break
			}
		}
		if len(candidates) == 0 {
			if owner, ok := s.staticSingle[name]; ok {
				candidates = r.index.FindMethods(owner, name)
			}
		}
		for _, owner := range s.staticOnDemand {
			if len(candidates) > 0 {
				break
			}
			candidates = r.index.FindMethods(owner, name)
		}
	}

	m := r.pick(s, candidates, args)
	if m == nil {
		return nil, unresolved("expression", text, "no applicable method "+name)
	}
	return m, resolved(m.Return)
}

// ResolveConstructor resolves the constructor an object_creation_expression
// calls. Library constructors are described from the argument types.
func (r *Resolver) ResolveConstructor(s *Scope, creation *sitter.Node) (*MethodInfo, Result) {
	typ := r.ResolveType(s, creation.ChildByFieldName("type"))
	if !typ.OK() {
		return nil, typ
	}
	args := parser.NamedChildren(creation.ChildByFieldName("arguments"))
	declaring := symtab.EraseTypeArguments(typ.Name)

	if info, ok := r.index.Type(declaring); ok {
		r.index.mu.RLock()
		var ctors []*MethodInfo
		for _, m := range info.Methods {
			if m.Constructor {
				ctors = append(ctors, m)
			}
		}
		r.index.mu.RUnlock()
		m := r.pick(s, ctors, args)
		if m == nil {
			return nil, unresolved("expression", s.Unit.Text(creation), "no applicable constructor")
		}
		return m, typ
	}

	params := make([]string, 0, len(args))
	for _, arg := range args {
		res := r.ResolveExpr(s, arg)
		if !res.OK() {
			return nil, res
		}
		params = append(params, res.Name)
	}
	return &MethodInfo{
		Declaring:   declaring,
		Name:        symtab.ConstructorName,
		Key:         symtab.SignatureKey(symtab.ConstructorName, params),
		Params:      params,
		Modifiers:   []string{},
		Constructor: true,
	}, typ
}

// pick chooses the candidate applicable to the arguments: matching arity
// first, then argument compatibility, then declaration order.
func (r *Resolver) pick(s *Scope, candidates []*MethodInfo, args []*sitter.Node) *MethodInfo {
	var applicable []*MethodInfo
	for _, m := range candidates {
		if len(m.Params) == len(args) || (m.VarArgs && len(args) >= len(m.Params)-1) {
			applicable = append(applicable, m)
		}
	}
	switch len(applicable) {
	case 0:
		return nil
	case 1:
		return applicable[0]
	}

	argTypes := make([]string, len(args))
	for i, arg := range args {
		argTypes[i] = r.ResolveExpr(s, arg).Or("")
	}
	for _, exact := range []bool{true, false} {
		for _, m := range applicable {
			if compatible(r.index, m, argTypes, exact) {
				return m
			}
		}
	}
	return applicable[0]
}

func compatible(idx *Index, m *MethodInfo, args []string, exact bool) bool {
	for i, arg := range args {
		if !assignable(idx, arg, paramAt(m, i, len(args), arg), exact) {
			return false
		}
	}
	return true
}

// paramAt returns the parameter type the i-th argument binds to. Trailing
// arguments of a varargs call bind to the element type unless a single array
// is passed.
func paramAt(m *MethodInfo, i, nargs int, arg string) string {
	last := len(m.Params) - 1
	if !m.VarArgs || i < last {
		return m.Params[i]
	}
	if nargs == len(m.Params) && strings.HasSuffix(arg, "[]") {
		return m.Params[last]
	}
	return strings.TrimSuffix(m.Params[last], "[]")
}

// assignable approximates whether a value of type arg can be passed as param.
func assignable(idx *Index, arg, param string, exact bool) bool {
	arg, param = symtab.EraseTypeArguments(arg), symtab.EraseTypeArguments(param)
	if arg == param {
		return true
	}
	if exact {
		return false
	}
	if arg == "" || param == javaObject {
		return true
	}
	if arg == "null" {
		return !primitives[param]
	}
	if primitives[arg] || primitives[param] {
		return boxed(arg) == boxed(param) || (numericRank[arg] > 0 && numericRank[arg] <= numericRank[param])
	}
	ancestors, err := idx.Ancestors(arg)
	if err != nil {
		return false
	}
	return contains(ancestors, param)
}
