package parser

import (
	"context"
	"fmt"
	"os"

	"github.com/mvp-joe/codeanalyzer/internal/symtab"
	sitter "github.com/tree-sitter/go-tree-sitter"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
)

// PseudoPath is the file path given to source that was not read from disk.
const PseudoPath = "<pseudo-path>"

var javaLanguage = sitter.NewLanguage(java.Language())

// Unit is one parsed Java source file. The tree is the arena every node of the
// unit belongs to; nodes are compared by id, never by pointer.
type Unit struct {
	Path   string
	Source []byte
	Root   *sitter.Node

	tree *sitter.Tree
}

// Parse parses Java source. A syntactically broken file still yields a unit;
// its diagnostics are available through Problems.
func Parse(ctx context.Context, path string, source []byte) (*Unit, error) {
	p := sitter.NewParser()
	defer p.Close()

	if err := p.SetLanguage(javaLanguage); err != nil {
		return nil, fmt.Errorf("failed to set java language: %w", err)
	}

	tree := p.ParseCtx(ctx, source, nil)
	if tree == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("failed to parse java file: %s", path)
	}

	return &Unit{
		Path:   path,
		Source: source,
		Root:   tree.RootNode(),
		tree:   tree,
	}, nil
}

// ParseFile reads and parses a Java file.
func ParseFile(ctx context.Context, path string) (*Unit, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(ctx, path, source)
}

// Close releases the syntax tree. Nodes of the unit must not be used afterwards.
func (u *Unit) Close() {
	if u.tree != nil {
		u.tree.Close()
		u.tree = nil
	}
}

// Text returns the source text of a node.
func (u *Unit) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(u.Source[n.StartByte():n.EndByte()])
}

// Problems returns a diagnostic for every ERROR and MISSING node of the tree.
func (u *Unit) Problems() []symtab.Problem {
	if u.Root == nil || !u.Root.HasError() {
		return nil
	}

	var problems []symtab.Problem
	Walk(u.Root, func(n *sitter.Node) bool {
		switch {
		case n.IsMissing():
			problems = append(problems, u.problemAt(n, fmt.Sprintf("missing %s", n.Kind())))
			return false
		case n.IsError():
			problems = append(problems, u.problemAt(n, fmt.Sprintf("syntax error near %q", snippet(u.Text(n)))))
			return false
		}
		return n.HasError()
	})
	return problems
}

func (u *Unit) problemAt(n *sitter.Node, msg string) symtab.Problem {
	pos := n.StartPosition()
	return symtab.Problem{
		Message:  msg,
		FilePath: u.Path,
		Line:     int(pos.Row) + 1,
		Column:   int(pos.Column) + 1,
	}
}

func snippet(s string) string {
	const limit = 40
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
