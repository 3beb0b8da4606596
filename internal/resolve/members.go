package resolve

import (
	"fmt"
	"strings"

	"github.com/mvp-joe/codeanalyzer/internal/parser"
	"github.com/mvp-joe/codeanalyzer/internal/symtab"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Populate resolves the supertypes and then the members of every type declared
// in the given units. Every unit must have been declared in the index first.
// Resolution state gathered while the index was incomplete is discarded.
func (r *Resolver) Populate(scopes ...*Scope) {
	for _, s := range scopes {
		for _, decl := range s.Unit.TypeDecls() {
			info, ok := r.index.Type(QualifiedName(s.Unit, decl))
			if !ok {
				continue
			}
			supertypes := r.supertypes(s, decl)
			r.index.mu.Lock()
			info.Supertypes = supertypes
			info.Modifiers = Modifiers(s.Unit, decl)
			r.index.mu.Unlock()
		}
	}
	r.reset()

	for _, s := range scopes {
		for _, decl := range s.Unit.TypeDecls() {
			info, ok := r.index.Type(QualifiedName(s.Unit, decl))
			if !ok {
				continue
			}
			fields := make(map[string]string)
			methods := r.methods(s, decl, info, fields)

			r.index.mu.Lock()
			for name, typ := range fields {
				info.Fields[name] = typ
			}
			info.Methods = methods
			for _, m := range methods {
				if m.offset != noOffset {
					info.byOffset[m.offset] = m
				}
			}
			r.index.mu.Unlock()
		}
	}
	r.reset()
}

// Supertypes returns the resolved extends and implements lists of a type
// declaration. Unresolvable names keep their written text.
func (r *Resolver) Supertypes(s *Scope, decl *sitter.Node) (extends, implements []string) {
	resolveAll := func(list *sitter.Node) []string {
		var out []string
		for _, t := range parser.NamedChildren(parser.ChildOfKind(list, "type_list")) {
			out = append(out, r.ResolveType(s, t).Or(TypeText(s.Unit, t)))
		}
		return out
	}

	switch decl.Kind() {
	case "class_declaration":
		if sc := decl.ChildByFieldName("superclass"); sc != nil {
			if t := lastNamedType(sc); t != nil {
				extends = append(extends, r.ResolveType(s, t).Or(TypeText(s.Unit, t)))
			}
		}
		implements = resolveAll(decl.ChildByFieldName("interfaces"))
	case "interface_declaration":
		extends = resolveAll(parser.ChildOfKind(decl, "extends_interfaces"))
	case "enum_declaration", "record_declaration":
		implements = resolveAll(decl.ChildByFieldName("interfaces"))
	}
	return extends, implements
}

func (r *Resolver) supertypes(s *Scope, decl *sitter.Node) []string {
	extends, implements := r.Supertypes(s, decl)
	return append(extends, implements...)
}

const noOffset = ^uint(0)

// methods indexes the fields and callables of one declaration and assigns
// signature keys in declaration order.
func (r *Resolver) methods(s *Scope, decl *sitter.Node, info *TypeInfo, fields map[string]string) []*MethodInfo {
	var out []*MethodInfo
	keys := newKeyAllocator()
	hasConstructor := false

	if decl.Kind() == "record_declaration" {
		for _, comp := range recordComponents(decl) {
			fields[s.Unit.Name(comp)] = r.ParamType(s, comp)
		}
	}

	for _, member := range parser.Members(decl) {
		switch member.Kind() {
		case "field_declaration", "constant_declaration":
			typeNode := member.ChildByFieldName("type")
			base := r.ResolveType(s, typeNode).Or(TypeText(s.Unit, typeNode))
			for _, d := range parser.FieldChildren(member, "declarator") {
				fields[s.Unit.Name(d)] = base + brackets(s.Unit.Text(d.ChildByFieldName("dimensions")))
			}
		case "enum_constant":
			fields[s.Unit.Name(member)] = info.Name
		case "method_declaration", "constructor_declaration", "compact_constructor_declaration":
			m := r.Method(s, member, info.Name)
			m.Key = keys.allocate(m)
			m.offset = member.StartByte()
			hasConstructor = hasConstructor || m.Constructor
			out = append(out, m)
		}
	}

	for _, m := range r.implicitMethods(s, decl, info, hasConstructor) {
		m.Key = keys.allocate(m)
		m.offset = noOffset
		out = append(out, m)
	}
	return out
}

// Method builds the index entry of a method or constructor declaration. The
// signature key is assigned when the declaring type is populated.
func (r *Resolver) Method(s *Scope, decl *sitter.Node, declaring string) *MethodInfo {
	m := &MethodInfo{
		Declaring:   declaring,
		Name:        s.Unit.Name(decl),
		Modifiers:   Modifiers(s.Unit, decl),
		Annotations: Annotations(s.Unit, decl),
		Constructor: decl.Kind() != "method_declaration",
	}
	if m.Constructor {
		m.Name = symtab.ConstructorName
	} else {
		ret := decl.ChildByFieldName("type")
		m.Return = r.ResolveType(s, ret).Or(TypeText(s.Unit, ret)) +
			brackets(s.Unit.Text(decl.ChildByFieldName("dimensions")))
	}

	var params []*sitter.Node
	if decl.Kind() == "compact_constructor_declaration" {
		params = recordComponents(parser.EnclosingTypeDecl(decl))
	} else {
		params = Params(decl)
	}
	for _, p := range params {
		m.Params = append(m.Params, r.ParamType(s, p))
		m.WrittenParams = append(m.WrittenParams, WrittenParamType(s.Unit, p))
		m.ParamNames = append(m.ParamNames, s.Unit.Name(paramNameHolder(p)))
		m.VarArgs = p.Kind() == "spread_parameter"
	}

	if throws := parser.ChildOfKind(decl, "throws"); throws != nil {
		for _, t := range parser.NamedChildren(throws) {
			m.Throws = append(m.Throws, r.ResolveType(s, t).Or(TypeText(s.Unit, t)))
		}
	}
	return m
}

// implicitMethods returns the members the compiler generates: a default
// constructor, record accessors and canonical constructor, enum values/valueOf.
func (r *Resolver) implicitMethods(s *Scope, decl *sitter.Node, info *TypeInfo, hasConstructor bool) []*MethodInfo {
	var out []*MethodInfo
	implicit := func(name string, params []string, ret string, mods ...string) {
		out = append(out, &MethodInfo{
			Declaring:   info.Name,
			Name:        name,
			Params:      params,
			Return:      ret,
			Modifiers:   mods,
			Constructor: name == symtab.ConstructorName,
			Implicit:    true,
		})
	}

	switch decl.Kind() {
	case "class_declaration":
		if !hasConstructor {
			implicit(symtab.ConstructorName, nil, "", "public")
		}
	case "enum_declaration":
		if !hasConstructor {
			implicit(symtab.ConstructorName, nil, "", "private")
		}
		implicit("values", nil, info.Name+"[]", "public", "static")
		implicit("valueOf", []string{"java.lang.String"}, info.Name, "public", "static")
	case "record_declaration":
		var params []string
		for _, comp := range recordComponents(decl) {
			typ := r.ParamType(s, comp)
			params = append(params, typ)
			name := s.Unit.Name(paramNameHolder(comp))
			if !declaresMethod(s.Unit, decl, name) {
				implicit(name, nil, typ, "public")
			}
		}
		if !hasConstructor {
			implicit(symtab.ConstructorName, params, "", "public")
		}
	}
	return out
}

func declaresMethod(u *parser.Unit, decl *sitter.Node, name string) bool {
	for _, member := range parser.Members(decl) {
		if member.Kind() == "method_declaration" && u.Name(member) == name &&
			len(Params(member)) == 0 {
			return true
		}
	}
	return false
}

// keyAllocator assigns unique signature keys within one type: the resolved
// key, then the as-written key, then the resolved key with a #n suffix.
type keyAllocator struct {
	used map[string]bool
}

func newKeyAllocator() *keyAllocator {
	return &keyAllocator{used: make(map[string]bool)}
}

func (k *keyAllocator) allocate(m *MethodInfo) string {
	key := symtab.SignatureKey(m.Name, m.Params)
	if !k.used[key] {
		k.used[key] = true
		return key
	}
	if m.WrittenParams != nil {
		written := symtab.SignatureKey(m.Name, m.WrittenParams)
		if !k.used[written] {
			k.used[written] = true
			return written
		}
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s#%d", key, i)
		if !k.used[candidate] {
			k.used[candidate] = true
			return candidate
		}
	}
}

// Params returns the formal, spread and receiver-less parameters of a callable.
func Params(decl *sitter.Node) []*sitter.Node {
	return parser.ChildrenOfKind(decl.ChildByFieldName("parameters"), "formal_parameter", "spread_parameter")
}

func recordComponents(decl *sitter.Node) []*sitter.Node {
	if decl == nil {
		return nil
	}
	return Params(decl)
}

// paramNameHolder returns the node carrying the name field of a parameter;
// spread parameters keep it on their declarator.
func paramNameHolder(p *sitter.Node) *sitter.Node {
	if p.Kind() == "spread_parameter" {
		if d := parser.ChildOfKind(p, "variable_declarator"); d != nil {
			return d
		}
	}
	return p
}

// ParamName returns the declared name of a parameter.
func ParamName(u *parser.Unit, p *sitter.Node) string {
	return u.Name(paramNameHolder(p))
}

// paramTypeNode returns the type node of a formal or spread parameter.
func paramTypeNode(p *sitter.Node) *sitter.Node {
	if t := p.ChildByFieldName("type"); t != nil {
		return t
	}
	return firstTypeChild(p)
}

func firstTypeChild(p *sitter.Node) *sitter.Node {
	for _, c := range parser.NamedChildren(p) {
		switch c.Kind() {
		case "modifiers", "variable_declarator", "identifier":
			continue
		}
		return c
	}
	return nil
}

// ParamType returns the resolved type of a parameter; varargs render as arrays.
func (r *Resolver) ParamType(s *Scope, p *sitter.Node) string {
	typeNode := paramTypeNode(p)
	typ := r.ResolveType(s, typeNode).Or(TypeText(s.Unit, typeNode))
	return typ + paramSuffix(s.Unit, p)
}

// WrittenParamType returns the as-written type of a parameter; varargs render as arrays.
func WrittenParamType(u *parser.Unit, p *sitter.Node) string {
	return TypeText(u, paramTypeNode(p)) + paramSuffix(u, p)
}

func paramSuffix(u *parser.Unit, p *sitter.Node) string {
	suffix := brackets(u.Text(paramNameHolder(p).ChildByFieldName("dimensions")))
	if p.Kind() == "spread_parameter" {
		suffix += "[]"
	}
	return suffix
}

// Modifiers returns the modifier keywords of a declaration, annotations excluded.
func Modifiers(u *parser.Unit, decl *sitter.Node) []string {
	out := []string{}
	for _, mods := range modifierLists(decl) {
		for i := uint(0); i < mods.ChildCount(); i++ {
			c := mods.Child(i)
			switch c.Kind() {
			case "marker_annotation", "annotation", "line_comment", "block_comment":
				continue
			}
			out = append(out, u.Text(c))
		}
	}
	return out
}

// Annotations returns the annotations of a declaration as written.
func Annotations(u *parser.Unit, decl *sitter.Node) []string {
	out := []string{}
	for _, mods := range modifierLists(decl) {
		for _, c := range parser.ChildrenOfKind(mods, "marker_annotation", "annotation") {
			out = append(out, strings.TrimSpace(u.Text(c)))
		}
	}
	return out
}

func modifierLists(decl *sitter.Node) []*sitter.Node {
	return parser.ChildrenOfKind(decl, "modifiers")
}
