// Package callgraph defines the whole-program call graph the dependency graph
// is built from, and the providers that produce one: a class-hierarchy
// analysis over the extracted project, or a graph computed elsewhere and
// loaded from JSON.
package callgraph

import (
	"context"
	"errors"
	"fmt"

	"github.com/mvp-joe/codeanalyzer/internal/symtab"
)

var (
	// ErrBadDescriptor is returned for a malformed JVM method descriptor.
	ErrBadDescriptor = errors.New("malformed descriptor")

	// ErrInvalidGraph is returned when a graph refers to methods it does not list.
	ErrInvalidGraph = errors.New("invalid call graph")
)

// Statement kinds and dependency types of the data dependencies providers emit.
const (
	KindParamCaller     = "PARAM_CALLER"
	KindParamCallee     = "PARAM_CALLEE"
	KindNormalRetCallee = "NORMAL_RET_CALLEE"
	KindNormalRetCaller = "NORMAL_RET_CALLER"
	DataDependency      = "DATA_DEP"
)

// Provider builds a call graph. A failure invalidates the dependency graph
// phase only.
type Provider interface {
	Build(ctx context.Context) (*Graph, error)
}

// Graph is a whole-program call graph. Nodes, call site targets and
// dependencies refer to methods by their index in Methods.
type Graph struct {
	Methods      []Method              `json:"methods"`
	Nodes        []Node                `json:"nodes"`
	Dependencies []StatementDependency `json:"dependencies,omitempty"`
}

// Method is a method or constructor as the call graph knows it.
type Method struct {
	Class       string   `json:"class"`      // JVM internal name, e.g. org/example/Outer$Inner
	Name        string   `json:"name"`       // <init> for constructors, <clinit> for static initializers
	Descriptor  string   `json:"descriptor"` // e.g. (Ljava/lang/String;I)V
	Flags       []string `json:"flags"`      // Modifier keywords
	Annotations []string `json:"annotations"`
	Application bool     `json:"application"` // Declared by the analyzed project rather than a library
	IR          *IR      `json:"ir,omitempty"`
}

// IR summarizes the branching structure the call graph computed for a method body.
type IR struct {
	ConditionalBranches int `json:"conditional_branches"`
	SwitchCases         int `json:"switch_cases"`
	CatchBlocks         int `json:"catch_blocks"`
}

// Complexity returns the cyclomatic complexity of the body.
func (ir IR) Complexity() int {
	return 1 + ir.ConditionalBranches + ir.SwitchCases + ir.CatchBlocks
}

// Node is a method with outgoing call sites.
type Node struct {
	Method    int        `json:"method"`
	CallSites []CallSite `json:"call_sites"`
}

// CallSite lists the possible targets of one call.
type CallSite struct {
	Targets []int `json:"targets"`
}

// StatementDependency is a statement-level dependency between two methods.
type StatementDependency struct {
	Source          int    `json:"source"`
	Target          int    `json:"target"`
	SourceKind      string `json:"source_kind"`
	DestinationKind string `json:"destination_kind"`
	Type            string `json:"type"`
}

// DeclaringType returns the qualified name of the declaring class.
func (m Method) DeclaringType() string {
	return JavaName(m.Class)
}

// IsConstructor reports whether the method is a constructor.
func (m Method) IsConstructor() bool {
	return m.Name == symtab.ConstructorName
}

// Key returns the registry signature key of the method: its name and the
// Java names of its parameter types.
func (m Method) Key() (string, error) {
	params, _, err := ParseMethodDescriptor(m.Descriptor)
	if err != nil {
		return "", err
	}
	return symtab.SignatureKey(m.Name, params), nil
}

// ID identifies a method within a graph.
func (m Method) ID() string {
	return m.Class + "." + m.Name + m.Descriptor
}

// Validate checks that every index is in range and every descriptor parses.
func (g *Graph) Validate() error {
	n := len(g.Methods)
	inRange := func(i int) bool { return i >= 0 && i < n }

	for i, m := range g.Methods {
		if m.Class == "" || m.Name == "" {
			return fmt.Errorf("%w: method %d has no class or name", ErrInvalidGraph, i)
		}
		if _, _, err := ParseMethodDescriptor(m.Descriptor); err != nil {
			return fmt.Errorf("%w: method %s.%s: %w", ErrInvalidGraph, m.Class, m.Name, err)
		}
	}
	for _, node := range g.Nodes {
		if !inRange(node.Method) {
			return fmt.Errorf("%w: node refers to method %d of %d", ErrInvalidGraph, node.Method, n)
		}
		for _, site := range node.CallSites {
			for _, t := range site.Targets {
				if !inRange(t) {
					return fmt.Errorf("%w: call site target %d of %d", ErrInvalidGraph, t, n)
				}
			}
		}
	}
	for _, d := range g.Dependencies {
		if !inRange(d.Source) || !inRange(d.Target) {
			return fmt.Errorf("%w: dependency %d -> %d of %d", ErrInvalidGraph, d.Source, d.Target, n)
		}
	}
	return nil
}

// EdgeCount returns the number of (call site, target) pairs.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, node := range g.Nodes {
		for _, site := range node.CallSites {
			total += len(site.Targets)
		}
	}
	return total
}
