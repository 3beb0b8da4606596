package symtab

// Problem is a structured parse diagnostic.
type Problem struct {
	Message  string `json:"message"`
	FilePath string `json:"file_path"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// SymbolTable maps file path to its compilation unit.
type SymbolTable map[string]*CompilationUnit

// Problems maps a source root or file path to its parse diagnostics.
type Problems map[string][]Problem

// Merge appends every entry of other into p.
func (p Problems) Merge(other Problems) {
	for k, v := range other {
		p[k] = append(p[k], v...)
	}
}
