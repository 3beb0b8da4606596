package resolve

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mvp-joe/codeanalyzer/internal/parser"
	"github.com/mvp-joe/codeanalyzer/internal/symtab"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Kind classifies a declared type.
type Kind int

const (
	KindClass Kind = iota
	KindInterface
	KindEnum
	KindRecord
	KindAnnotation
)

var declKinds = map[string]Kind{
	"class_declaration":           KindClass,
	"interface_declaration":       KindInterface,
	"enum_declaration":            KindEnum,
	"record_declaration":          KindRecord,
	"annotation_type_declaration": KindAnnotation,
}

// TypeInfo is the index entry of a type declared in the project.
type TypeInfo struct {
	Name       string
	Package    string
	Path       string
	Kind       Kind
	Outer      string            // Enclosing type, empty for top-level types
	Local      bool              // Declared inside a callable body
	Nested     map[string]string // Simple name -> qualified name
	TypeParams []string
	Supertypes []string // Resolved superclass first, then interfaces
	Fields     map[string]string
	Modifiers  []string
	Methods    []*MethodInfo // Declaration order, implicit members last

	byOffset map[uint]*MethodInfo
}

// SimpleName returns the unqualified name of the type.
func (t *TypeInfo) SimpleName() string {
	return symtab.SimpleName(t.Name)
}

// MethodInfo describes a method or constructor of an indexed type.
type MethodInfo struct {
	Declaring     string
	Name          string // "<init>" for constructors
	Key           string // Signature key, unique within the declaring type
	Params        []string
	WrittenParams []string
	ParamNames    []string
	Return        string // Empty for constructors
	Modifiers     []string
	Annotations   []string
	Throws        []string
	VarArgs       bool
	Constructor   bool
	Implicit      bool // Synthesized by the compiler, no source declaration

	offset uint
}

// Access returns the access modifier of the method, or "" when none is written.
func (m *MethodInfo) Access() string {
	for _, mod := range m.Modifiers {
		switch mod {
		case "public", "protected", "private":
			return mod
		}
	}
	return ""
}

// IsStatic reports whether the method is static.
func (m *MethodInfo) IsStatic() bool {
	for _, mod := range m.Modifiers {
		if mod == "static" {
			return true
		}
	}
	return false
}

// Signature renders the method the way call sites report a callee: the
// declaring type's simple name stands in for the constructor name.
func (m *MethodInfo) Signature() string {
	name := m.Name
	if m.Constructor {
		name = symtab.SimpleName(m.Declaring)
	}
	return symtab.SignatureKey(name, m.Params)
}

// Index is the project type table. Types are declared in a first pass over
// every unit so that the second pass can resolve references across units.
type Index struct {
	mu        sync.RWMutex
	types     map[string]*TypeInfo
	packages  map[string]map[string]string // Package -> simple name -> qualified name of top-level types
	classpath map[string]map[string]string // Same shape, library classes
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		types:     make(map[string]*TypeInfo),
		packages:  make(map[string]map[string]string),
		classpath: make(map[string]map[string]string),
	}
}

// QualifiedName returns the fully qualified name of a type declaration:
// the package followed by the names of every enclosing declaration.
func QualifiedName(u *parser.Unit, decl *sitter.Node) string {
	names := []string{u.Name(decl)}
	for p := parser.EnclosingTypeDecl(decl); p != nil; p = parser.EnclosingTypeDecl(p) {
		names = append(names, u.Name(p))
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	name := strings.Join(names, ".")
	if pkg := u.Package(); pkg != "" {
		return pkg + "." + name
	}
	return name
}

// Declare registers the names of every type declared in the unit.
func (idx *Index) Declare(u *parser.Unit) {
	pkg := u.Package()

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, decl := range u.TypeDecls() {
		name := QualifiedName(u, decl)
		info := &TypeInfo{
			Name:     name,
			Package:  pkg,
			Path:     u.Path,
			Kind:     declKinds[decl.Kind()],
			Nested:   make(map[string]string),
			Fields:   make(map[string]string),
			byOffset: make(map[uint]*MethodInfo),
		}
		if tp := decl.ChildByFieldName("type_parameters"); tp != nil {
			for _, param := range parser.ChildrenOfKind(tp, "type_parameter") {
				info.TypeParams = append(info.TypeParams, u.Text(typeParamName(param)))
			}
		}

		outer := parser.EnclosingTypeDecl(decl)
		if outer == nil {
			if idx.packages[pkg] == nil {
				idx.packages[pkg] = make(map[string]string)
			}
			idx.packages[pkg][u.Name(decl)] = name
		} else {
			info.Outer = QualifiedName(u, outer)
			info.Local = IsLocalDecl(decl)
			if parent, ok := idx.types[info.Outer]; ok {
				parent.Nested[u.Name(decl)] = name
			}
		}
		idx.types[name] = info
	}
}

// AddClasspath registers library class names, for example the classes listed
// in the jars of the resolved classpath.
func (idx *Index) AddClasspath(names ...string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, fqn := range names {
		pkg := symtab.PackageOf(fqn)
		if idx.classpath[pkg] == nil {
			idx.classpath[pkg] = make(map[string]string)
		}
		idx.classpath[pkg][fqn[len(pkg)+1:]] = fqn
	}
}

// Type returns the index entry of a project type.
func (idx *Index) Type(fqn string) (*TypeInfo, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	t, ok := idx.types[symtab.EraseTypeArguments(fqn)]
	return t, ok
}

// IsApplication reports whether fqn is declared in the analyzed sources.
func (idx *Index) IsApplication(fqn string) bool {
	_, ok := idx.Type(fqn)
	return ok
}

// Len returns the number of project types.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.types)
}

// TypeNames returns every project type name in sorted order.
func (idx *Index) TypeNames() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	names := make([]string, 0, len(idx.types))
	for name := range idx.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Methods returns the methods and constructors a project type declares,
// implicit members included, in declaration order.
func (idx *Index) Methods(fqn string) []*MethodInfo {
	t, ok := idx.Type(fqn)
	if !ok {
		return nil
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]*MethodInfo(nil), t.Methods...)
}

// DirectSupertypes returns the immediate supertypes of fqn with type
// arguments erased: the declared ones for project types, the JDK table
// entries otherwise.
func (idx *Index) DirectSupertypes(fqn string) []string {
	supers := idx.supertypes(symtab.EraseTypeArguments(fqn))
	out := make([]string, len(supers))
	for i, s := range supers {
		out[i] = symtab.EraseTypeArguments(s)
	}
	return out
}

// MethodAt returns the method of a type declared at the given byte offset.
func (idx *Index) MethodAt(fqn string, offset uint) (*MethodInfo, bool) {
	t, ok := idx.Type(fqn)
	if !ok {
		return nil, false
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	m, ok := t.byOffset[offset]
	return m, ok
}

// lookupPackage finds a top-level type by package and simple name in the
// project, then on the classpath, then among the known JDK types.
func (idx *Index) lookupPackage(pkg, simple string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if fqn, ok := idx.packages[pkg][simple]; ok {
		return fqn, true
	}
	if fqn, ok := idx.classpath[pkg][simple]; ok {
		return fqn, true
	}
	if fqn := pkg + "." + simple; jdkTypes[fqn] {
		return fqn, true
	}
	return "", false
}

// known reports whether a qualified name denotes a project, classpath or JDK type.
func (idx *Index) known(fqn string) bool {
	if _, ok := idx.Type(fqn); ok {
		return true
	}
	pkg := symtab.PackageOf(fqn)
	if pkg == "" {
		return false
	}
	_, ok := idx.lookupPackage(pkg, fqn[len(pkg)+1:])
	return ok
}

// Ancestors returns every supertype of fqn, transitively, in breadth-first
// order. Type arguments are erased. Library supertypes are reported by name
// but not expanded beyond the JDK hierarchy table.
func (idx *Index) Ancestors(fqn string) ([]string, error) {
	start := symtab.EraseTypeArguments(fqn)
	if _, ok := idx.Type(start); !ok {
		if _, ok := jdkSupertypes[start]; !ok {
			return nil, fmt.Errorf("%w: type %s is not indexed", ErrUnresolved, fqn)
		}
	}

	var out []string
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, super := range idx.supertypes(name) {
			super = symtab.EraseTypeArguments(super)
			if seen[super] {
				continue
			}
			seen[super] = true
			out = append(out, super)
			queue = append(queue, super)
		}
	}
	return out, nil
}

func (idx *Index) supertypes(fqn string) []string {
	if t, ok := idx.Type(fqn); ok {
		idx.mu.RLock()
		defer idx.mu.RUnlock()
		if len(t.Supertypes) == 0 && t.Kind != KindInterface {
			switch t.Kind {
			case KindEnum:
				return []string{"java.lang.Enum"}
			case KindRecord:
				return []string{"java.lang.Record"}
			}
			return []string{"java.lang.Object"}
		}
		return t.Supertypes
	}
	return jdkSupertypes[fqn]
}

// Subtypes returns every project type that has fqn among its ancestors, sorted.
func (idx *Index) Subtypes(fqn string) []string {
	target := symtab.EraseTypeArguments(fqn)
	var out []string
	for _, name := range idx.TypeNames() {
		if name == target {
			continue
		}
		ancestors, err := idx.Ancestors(name)
		if err != nil {
			continue
		}
		for _, a := range ancestors {
			if a == target {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

// FindMethods returns the methods named name visible on fqn, searching the
// type and then its ancestors. JDK members come from the builtin tables.
func (idx *Index) FindMethods(fqn, name string) []*MethodInfo {
	start := symtab.EraseTypeArguments(fqn)
	chain := []string{start}
	if ancestors, err := idx.Ancestors(start); err == nil {
		chain = append(chain, ancestors...)
	}
	if !contains(chain, "java.lang.Object") {
		chain = append(chain, "java.lang.Object")
	}

	var out []*MethodInfo
	for _, owner := range chain {
		if t, ok := idx.Type(owner); ok {
			idx.mu.RLock()
			for _, m := range t.Methods {
				if m.Name == name {
					out = append(out, m)
				}
			}
			idx.mu.RUnlock()
			continue
		}
		for _, jm := range jdkMethods[owner][name] {
			m := &MethodInfo{
				Declaring: owner,
				Name:      name,
				Key:       symtab.SignatureKey(name, jm.params),
				Params:    jm.params,
				Return:    jm.ret,
				Modifiers: []string{"public"},
				VarArgs:   len(jm.params) > 0 && strings.HasSuffix(jm.params[len(jm.params)-1], "[]"),
			}
			if jm.static {
				m.Modifiers = append(m.Modifiers, "static")
			}
			out = append(out, m)
		}
	}
	return out
}

// FieldType returns the type of a field visible on fqn and the type declaring it.
func (idx *Index) FieldType(fqn, name string) (string, string, bool) {
	start := symtab.EraseTypeArguments(fqn)
	chain := []string{start}
	if ancestors, err := idx.Ancestors(start); err == nil {
		chain = append(chain, ancestors...)
	}
	for _, owner := range chain {
		if t, ok := idx.Type(owner); ok {
			idx.mu.RLock()
			typ, found := t.Fields[name]
			idx.mu.RUnlock()
			if found {
				return typ, owner, true
			}
			continue
		}
		if typ, found := jdkFields[owner][name]; found {
			return typ, owner, true
		}
	}
	return "", "", false
}

// IsLocalDecl reports whether a type declaration appears inside a body rather
// than as a member of another type.
func IsLocalDecl(decl *sitter.Node) bool {
	switch decl.Parent().Kind() {
	case "block", "constructor_body", "switch_block_statement_group", "switch_rule":
		return true
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func typeParamName(param *sitter.Node) *sitter.Node {
	return parser.ChildOfKind(param, "type_identifier", "identifier")
}
