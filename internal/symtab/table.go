package symtab

import "sort"

// NewType returns a type with every list and map initialized, so unpopulated
// members serialize as empty rather than null.
func NewType() *Type {
	return &Type{
		ExtendsList:            []string{},
		Comments:               []Comment{},
		ImplementsList:         []string{},
		Modifiers:              []string{},
		Annotations:            []string{},
		NestedTypeDeclarations: []string{},
		CallableDeclarations:   map[string]*Callable{},
		FieldDeclarations:      []Field{},
		EnumConstants:          []EnumConstant{},
		RecordComponents:       []RecordComponent{},
		InitializationBlocks:   []InitializationBlock{},
	}
}

// NewCallable returns a callable with every list initialized.
func NewCallable() *Callable {
	return &Callable{
		Comments:             []Comment{},
		Annotations:          []string{},
		Modifiers:            []string{},
		ThrownExceptions:     []string{},
		Parameters:           []Parameter{},
		ReferencedTypes:      []string{},
		AccessedFields:       []string{},
		CallSites:            []CallSite{},
		VariableDeclarations: []VariableDeclaration{},
		CRUDOperations:       []CRUDOperation{},
		CRUDQueries:          []CRUDQuery{},
	}
}

// CallableRef addresses one callable of the table.
type CallableRef struct {
	TypeName  string
	Signature string
	Callable  *Callable
}

// Callables returns every callable of the table ordered by file, type and signature key.
func (st SymbolTable) Callables() []CallableRef {
	var refs []CallableRef
	for _, path := range sortedKeys(st) {
		unit := st[path]
		for _, typeName := range sortedKeys(unit.TypeDeclarations) {
			t := unit.TypeDeclarations[typeName]
			for _, sig := range sortedKeys(t.CallableDeclarations) {
				refs = append(refs, CallableRef{TypeName: typeName, Signature: sig, Callable: t.CallableDeclarations[sig]})
			}
		}
	}
	return refs
}

// Types returns every declared type of the table keyed by fully qualified name.
func (st SymbolTable) Types() map[string]*Type {
	out := make(map[string]*Type)
	for _, unit := range st {
		for name, t := range unit.TypeDeclarations {
			out[name] = t
		}
	}
	return out
}

// CountCallables returns the number of callables across all types.
func (st SymbolTable) CountCallables() int {
	n := 0
	for _, unit := range st {
		for _, t := range unit.TypeDeclarations {
			n += len(t.CallableDeclarations)
		}
	}
	return n
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
