package symtab

// CompilationUnit is the extracted model of one Java source file.
type CompilationUnit struct {
	FilePath         string           `json:"file_path"`
	PackageName      string           `json:"package_name"`
	Comments         []Comment        `json:"comments"`
	Imports          []string         `json:"imports"`
	TypeDeclarations map[string]*Type `json:"type_declarations"` // Fully qualified name -> type
	IsModified       bool             `json:"is_modified"`       // False when reused from the incremental cache
}

// Type is a class, interface, enum, record or annotation declaration.
type Type struct {
	IsNestedType                  bool                  `json:"is_nested_type"`
	IsClassOrInterfaceDeclaration bool                  `json:"is_class_or_interface_declaration"`
	IsEnumDeclaration             bool                  `json:"is_enum_declaration"`
	IsAnnotationDeclaration       bool                  `json:"is_annotation_declaration"`
	IsRecordDeclaration           bool                  `json:"is_record_declaration"`
	IsInterface                   bool                  `json:"is_interface"`
	IsInnerClass                  bool                  `json:"is_inner_class"`
	IsLocalClass                  bool                  `json:"is_local_class"`
	ExtendsList                   []string              `json:"extends_list"`
	Comments                      []Comment             `json:"comments"`
	ImplementsList                []string              `json:"implements_list"`
	Modifiers                     []string              `json:"modifiers"`
	Annotations                   []string              `json:"annotations"`
	ParentType                    string                `json:"parent_type"` // Lookup key, empty for top-level types
	NestedTypeDeclarations        []string              `json:"nested_type_declarations"`
	CallableDeclarations          map[string]*Callable  `json:"callable_declarations"` // Signature key -> callable
	FieldDeclarations             []Field               `json:"field_declarations"`
	EnumConstants                 []EnumConstant        `json:"enum_constants"`
	RecordComponents              []RecordComponent     `json:"record_components"`
	InitializationBlocks          []InitializationBlock `json:"initialization_blocks"`
	IsEntrypointClass             bool                  `json:"is_entrypoint_class"`
}

// Callable is a method or constructor declaration, or an implicit stub
// synthesized for a method only known from the call graph.
type Callable struct {
	FilePath             string                `json:"file_path"`
	Signature            string                `json:"signature"`
	Comments             []Comment             `json:"comments"`
	Annotations          []string              `json:"annotations"`
	Modifiers            []string              `json:"modifiers"`
	ThrownExceptions     []string              `json:"thrown_exceptions"`
	Declaration          string                `json:"declaration"`
	Parameters           []Parameter           `json:"parameters"`
	Code                 string                `json:"code"`
	StartLine            int                   `json:"start_line"`
	EndLine              int                   `json:"end_line"`
	CodeStartLine        int                   `json:"code_start_line"`
	ReturnType           *string               `json:"return_type"` // nil for constructors
	IsImplicit           bool                  `json:"is_implicit"`
	IsConstructor        bool                  `json:"is_constructor"`
	ReferencedTypes      []string              `json:"referenced_types"`
	AccessedFields       []string              `json:"accessed_fields"`
	CallSites            []CallSite            `json:"call_sites"`
	VariableDeclarations []VariableDeclaration `json:"variable_declarations"`
	CRUDOperations       []CRUDOperation       `json:"crud_operations"`
	CRUDQueries          []CRUDQuery           `json:"crud_queries"`
	CyclomaticComplexity int                   `json:"cyclomatic_complexity"`
	IsEntrypoint         bool                  `json:"is_entrypoint"`
}

// Parameter is one formal parameter of a callable.
type Parameter struct {
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Annotations []string `json:"annotations"`
	Modifiers   []string `json:"modifiers"`
	Span
}

// CallSite is a method invocation or object creation found in a body.
type CallSite struct {
	MethodName        string         `json:"method_name"`
	Comment           *Comment       `json:"comment"`
	ReceiverExpr      string         `json:"receiver_expr"`
	ReceiverType      string         `json:"receiver_type"`
	ArgumentTypes     []string       `json:"argument_types"`
	ArgumentExpr      []string       `json:"argument_expr"`
	ReturnType        string         `json:"return_type"`
	CalleeSignature   string         `json:"callee_signature"`
	IsPublic          bool           `json:"is_public"`
	IsProtected       bool           `json:"is_protected"`
	IsPrivate         bool           `json:"is_private"`
	IsUnspecified     bool           `json:"is_unspecified"`
	IsStaticCall      bool           `json:"is_static_call"`
	IsConstructorCall bool           `json:"is_constructor_call"`
	CRUDOperation     *CRUDOperation `json:"crud_operation"`
	CRUDQuery         *CRUDQuery     `json:"crud_query"`
	Span
}

// SetAccess sets exactly one of the access flags from a modifier keyword.
// Anything other than public, protected or private is unspecified.
func (c *CallSite) SetAccess(access string) {
	c.IsPublic, c.IsProtected, c.IsPrivate, c.IsUnspecified = false, false, false, false
	switch access {
	case "public":
		c.IsPublic = true
	case "protected":
		c.IsProtected = true
	case "private":
		c.IsPrivate = true
	default:
		c.IsUnspecified = true
	}
}

// Field is a field declaration statement; one statement may declare several variables.
type Field struct {
	Comment     *Comment `json:"comment"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	StartLine   int      `json:"start_line"`
	EndLine     int      `json:"end_line"`
	Variables   []string `json:"variables"`
	Modifiers   []string `json:"modifiers"`
	Annotations []string `json:"annotations"`
}

// VariableDeclaration is a local variable declared inside a body.
type VariableDeclaration struct {
	Comment     *Comment `json:"comment"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Initializer string   `json:"initializer"`
	Span
}

// RecordComponent is a component of a record header.
type RecordComponent struct {
	Comment      *Comment `json:"comment"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Modifiers    []string `json:"modifiers"`
	Annotations  []string `json:"annotations"`
	DefaultValue any      `json:"default_value"` // string, bool, int64, float64 or literal text; nil when absent
	IsVarArgs    bool     `json:"is_var_args"`
}

// EnumConstant is a constant of an enum declaration.
type EnumConstant struct {
	Name      string   `json:"name"`
	Arguments []string `json:"arguments"`
}

// InitializationBlock is a static or instance initializer.
type InitializationBlock struct {
	FilePath             string                `json:"file_path"`
	Comments             []Comment             `json:"comments"`
	Annotations          []string              `json:"annotations"`
	ThrownExceptions     []string              `json:"thrown_exceptions"`
	Code                 string                `json:"code"`
	StartLine            int                   `json:"start_line"`
	EndLine              int                   `json:"end_line"`
	IsStatic             bool                  `json:"is_static"`
	ReferencedTypes      []string              `json:"referenced_types"`
	AccessedFields       []string              `json:"accessed_fields"`
	CallSites            []CallSite            `json:"call_sites"`
	VariableDeclarations []VariableDeclaration `json:"variable_declarations"`
	CyclomaticComplexity int                   `json:"cyclomatic_complexity"`
}
