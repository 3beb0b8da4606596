package extract

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/codeanalyzer/internal/entrypoint"
	"github.com/mvp-joe/codeanalyzer/internal/parser"
	"github.com/mvp-joe/codeanalyzer/internal/resolve"
	"github.com/mvp-joe/codeanalyzer/internal/symtab"
)

// unitExtractor carries the per-file state shared by every visitor of one unit.
type unitExtractor struct {
	e     *Extractor
	u     *parser.Unit
	scope *resolve.Scope
	r     *resolve.Resolver
	index *resolve.Index
}

func newUnitExtractor(e *Extractor, p *Project, u *parser.Unit) *unitExtractor {
	return &unitExtractor{
		e:     e,
		u:     u,
		scope: p.Scope(u),
		r:     p.Resolver,
		index: p.Index,
	}
}

func (x *unitExtractor) extract() *symtab.CompilationUnit {
	cu := &symtab.CompilationUnit{
		FilePath:         x.u.Path,
		PackageName:      x.u.Package(),
		Comments:         orEmpty(x.u.Comments(x.u.Root)),
		Imports:          []string{},
		TypeDeclarations: make(map[string]*symtab.Type),
		IsModified:       true,
	}
	for _, imp := range x.u.Imports() {
		cu.Imports = append(cu.Imports, imp.Name)
	}

	for _, decl := range x.u.TypeDecls() {
		name := resolve.QualifiedName(x.u, decl)
		if _, dup := cu.TypeDeclarations[name]; dup {
			x.e.logger.WithField("file", x.u.Path).WithField("type", name).Debug("duplicate type declaration skipped")
			continue
		}
		cu.TypeDeclarations[name] = x.typeDecl(decl, name)
	}
	return cu
}

// typeDecl extracts one type declaration. Only the members whose parent is
// this declaration's body are considered; nested types are extracted on their own.
func (x *unitExtractor) typeDecl(decl *sitter.Node, name string) *symtab.Type {
	t := symtab.NewType()

	switch decl.Kind() {
	case "class_declaration":
		t.IsClassOrInterfaceDeclaration = true
	case "interface_declaration":
		t.IsClassOrInterfaceDeclaration = true
		t.IsInterface = true
	case "enum_declaration":
		t.IsEnumDeclaration = true
	case "record_declaration":
		t.IsRecordDeclaration = true
	case "annotation_type_declaration":
		t.IsAnnotationDeclaration = true
	}

	if outer := parser.EnclosingTypeDecl(decl); outer != nil {
		t.ParentType = resolve.QualifiedName(x.u, outer)
		t.IsLocalClass = resolve.IsLocalDecl(decl)
		t.IsNestedType = !t.IsLocalClass
	}
	t.Modifiers = resolve.Modifiers(x.u, decl)
	t.Annotations = resolve.Annotations(x.u, decl)
	t.IsInnerClass = t.IsNestedType && decl.Kind() == "class_declaration" && !contains(t.Modifiers, "static")

	extends, implements := x.r.Supertypes(x.scope, decl)
	t.ExtendsList = orEmpty(extends)
	t.ImplementsList = orEmpty(implements)

	t.Comments = orEmpty(x.u.Comments(decl))
	if doc := x.u.DocComment(decl); doc != nil {
		t.Comments = append(t.Comments, *doc)
	}

	members := parser.Members(decl)
	var fieldNames []string
	for _, member := range members {
		switch member.Kind() {
		case "field_declaration", "constant_declaration":
			f := x.field(member)
			t.FieldDeclarations = append(t.FieldDeclarations, f)
			fieldNames = append(fieldNames, f.Variables...)
		case "enum_constant":
			t.EnumConstants = append(t.EnumConstants, x.enumConstant(member))
		default:
			if parser.IsTypeDecl(member) {
				t.NestedTypeDeclarations = append(t.NestedTypeDeclarations, resolve.QualifiedName(x.u, member))
			}
		}
	}

	if t.IsRecordDeclaration {
		t.RecordComponents = x.recordComponents(decl)
	}

	view := &entrypoint.TypeView{
		Name:        name,
		IsClass:     t.IsClassOrInterfaceDeclaration,
		Annotations: t.Annotations,
		Extends:     t.ExtendsList,
		Implements:  t.ImplementsList,
		Ancestors:   func() ([]string, error) { return x.index.Ancestors(name) },
	}
	for _, member := range members {
		switch {
		case parser.IsCallableDecl(member):
			key, c, m := x.callable(member, name, fieldNames, view)
			if _, dup := t.CallableDeclarations[key]; dup {
				x.e.logger.WithField("type", name).WithField("signature", key).Debug("duplicate signature skipped")
				continue
			}
			t.CallableDeclarations[key] = c
			view.Methods = append(view.Methods, m)
			if !x.e.registry.Put(name, key, c) {
				x.e.logger.WithField("type", name).WithField("signature", key).Debug("callable already registered")
			}
		case member.Kind() == "static_initializer" || member.Kind() == "block":
			t.InitializationBlocks = append(t.InitializationBlocks, x.initBlock(member, name, fieldNames))
		}
	}

	t.IsEntrypointClass = x.e.entrypoints.IsEntrypointClass(*view)
	return t
}

func (x *unitExtractor) field(decl *sitter.Node) symtab.Field {
	typeNode := decl.ChildByFieldName("type")
	f := symtab.Field{
		Comment:     x.u.LeadingComment(decl),
		Type:        x.r.ResolveType(x.scope, typeNode).Or(resolve.TypeText(x.u, typeNode)),
		StartLine:   parser.StartLine(decl),
		EndLine:     parser.EndLine(decl),
		Variables:   []string{},
		Modifiers:   resolve.Modifiers(x.u, decl),
		Annotations: resolve.Annotations(x.u, decl),
	}
	for _, d := range parser.FieldChildren(decl, "declarator") {
		f.Variables = append(f.Variables, x.u.Name(d))
	}
	if len(f.Variables) > 0 {
		f.Name = f.Variables[0]
	}
	return f
}

func (x *unitExtractor) enumConstant(decl *sitter.Node) symtab.EnumConstant {
	c := symtab.EnumConstant{
		Name:      x.u.Name(decl),
		Arguments: []string{},
	}
	for _, arg := range parser.NamedChildren(decl.ChildByFieldName("arguments")) {
		c.Arguments = append(c.Arguments, x.u.Text(arg))
	}
	return c
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
