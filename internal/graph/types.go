package graph

import "strings"

// Edge types.
const (
	CallDependency = "CALL_DEP"
)

// ImplicitPath is the file path of vertices whose callable has no source
// declaration in the project.
const ImplicitPath = "<<implicit>>"

// Vertex is a callable as a node of the dependency graph.
type Vertex struct {
	TypeDeclaration     string `json:"type_declaration"`     // Qualified name of the declaring type
	Signature           string `json:"signature"`            // Constructors use the simple type name
	CallableDeclaration string `json:"callable_declaration"` // Declaration line as written
	FilePath            string `json:"file_path"`
}

// ID identifies a vertex. Two vertices are the same callable when their
// type, signature and file agree.
func (v Vertex) ID() string {
	return strings.Join([]string{v.TypeDeclaration, v.Signature, v.FilePath}, "|")
}

// Name is the qualified callable name, the type and signature joined by a dot.
func (v Vertex) Name() string {
	return v.TypeDeclaration + "." + v.Signature
}

// Edge is a weighted dependency between two callables. Call edges have type
// CALL_DEP and no statement kinds; system dependency edges carry the kinds of
// the statements they connect.
type Edge struct {
	Source          Vertex `json:"source"`
	Target          Vertex `json:"target"`
	Type            string `json:"type"`
	SourceKind      string `json:"source_kind,omitempty"`
	DestinationKind string `json:"destination_kind,omitempty"`
	Weight          int    `json:"weight"`
}

// IsCall reports whether the edge is a call edge.
func (e Edge) IsCall() bool {
	return e.Type == CallDependency
}

// kind groups the edges that are deduplicated against each other.
type kind struct {
	Type            string
	SourceKind      string
	DestinationKind string
}

var callKind = kind{Type: CallDependency}
