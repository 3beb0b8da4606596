package parser

import (
	"strings"

	"github.com/mvp-joe/codeanalyzer/internal/symtab"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Walk visits n and its descendants depth first. Returning false from the
// visitor skips the children of that node.
func Walk(n *sitter.Node, visit func(*sitter.Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		Walk(n.Child(i), visit)
	}
}

// SameNode reports whether a and b are the same node of the same tree.
func SameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Id() == b.Id()
}

// ChildOfKind returns the first direct child whose kind is one of kinds.
func ChildOfKind(n *sitter.Node, kinds ...string) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if isKind(child, kinds) {
			return child
		}
	}
	return nil
}

// ChildrenOfKind returns every direct child whose kind is one of kinds.
func ChildrenOfKind(n *sitter.Node, kinds ...string) []*sitter.Node {
	if n == nil {
		return nil
	}
	var out []*sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if isKind(child, kinds) {
			out = append(out, child)
		}
	}
	return out
}

// NamedChildren returns the named children of n, comments excluded.
func NamedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	var out []*sitter.Node
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if !IsComment(child) {
			out = append(out, child)
		}
	}
	return out
}

// FieldChildren returns every child attached to the named field.
func FieldChildren(n *sitter.Node, field string) []*sitter.Node {
	if n == nil {
		return nil
	}
	var out []*sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		if n.FieldNameForChild(uint32(i)) == field {
			out = append(out, n.Child(i))
		}
	}
	return out
}

// FieldName returns the name of the field n occupies in its parent, or "".
func FieldName(n *sitter.Node) string {
	parent := n.Parent()
	if parent == nil {
		return ""
	}
	for i := uint(0); i < parent.ChildCount(); i++ {
		if SameNode(parent.Child(i), n) {
			return parent.FieldNameForChild(uint32(i))
		}
	}
	return ""
}

// Ancestor returns the closest ancestor of n whose kind is one of kinds.
func Ancestor(n *sitter.Node, kinds ...string) *sitter.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if isKind(p, kinds) {
			return p
		}
	}
	return nil
}

// IsComment reports whether n is a line or block comment.
func IsComment(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind() {
	case "line_comment", "block_comment", "comment":
		return true
	}
	return false
}

// SpanOf converts a node range into a 1-based span with an inclusive end column.
func SpanOf(n *sitter.Node) symtab.Span {
	if n == nil {
		return symtab.NoSpan()
	}
	start, end := n.StartPosition(), n.EndPosition()
	return symtab.Span{
		StartLine:   int(start.Row) + 1,
		StartColumn: int(start.Column) + 1,
		EndLine:     int(end.Row) + 1,
		EndColumn:   int(end.Column),
	}
}

// StartLine returns the 1-based first line of n, or symtab.Unknown.
func StartLine(n *sitter.Node) int {
	if n == nil {
		return symtab.Unknown
	}
	return int(n.StartPosition().Row) + 1
}

// EndLine returns the 1-based last line of n, or symtab.Unknown.
func EndLine(n *sitter.Node) int {
	if n == nil {
		return symtab.Unknown
	}
	return int(n.EndPosition().Row) + 1
}

// Comments returns every comment contained in n in source order.
func (u *Unit) Comments(n *sitter.Node) []symtab.Comment {
	var out []symtab.Comment
	Walk(n, func(c *sitter.Node) bool {
		if IsComment(c) {
			out = append(out, u.Comment(c))
			return false
		}
		return true
	})
	return out
}

// Comment converts a comment node.
func (u *Unit) Comment(n *sitter.Node) symtab.Comment {
	return symtab.NewComment(u.Text(n), SpanOf(n))
}

// DocComment returns the Javadoc comment directly preceding a declaration, if any.
func (u *Unit) DocComment(decl *sitter.Node) *symtab.Comment {
	prev := decl.PrevSibling()
	if prev == nil || prev.Kind() != "block_comment" {
		return nil
	}
	raw := u.Text(prev)
	if !symtab.IsJavadoc(raw) {
		return nil
	}
	c := u.Comment(prev)
	return &c
}

// LeadingComment returns the comment attached to a statement: the comment on the
// line directly above it, or a trailing comment on its last line.
func (u *Unit) LeadingComment(stmt *sitter.Node) *symtab.Comment {
	if prev := stmt.PrevSibling(); IsComment(prev) {
		if EndLine(prev) >= StartLine(stmt)-1 {
			c := u.Comment(prev)
			return &c
		}
	}
	if next := stmt.NextSibling(); IsComment(next) && next.Kind() == "line_comment" {
		if StartLine(next) == EndLine(stmt) {
			c := u.Comment(next)
			return &c
		}
	}
	return nil
}

// CollapseSpace replaces every run of whitespace with a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isKind(n *sitter.Node, kinds []string) bool {
	if n == nil {
		return false
	}
	k := n.Kind()
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}
