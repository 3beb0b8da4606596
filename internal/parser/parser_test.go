package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Test Plan for parser:
// - Valid source parses without problems and exposes the program root
// - Broken source still yields a unit plus at least one positioned problem
// - SpanOf converts to 1-based lines/columns with inclusive end column
// - SameNode compares node identity across separately obtained handles
// - DocComment finds the Javadoc preceding a method, LeadingComment the comment above a statement
// - FieldChildren returns every declarator of a multi-variable field

const sample = `package org.example;

public class App {
    private int a, b;

    /** Entry point. */
    public static void main(String[] args) {
        // create it
        new App();
    }
}
`

func parseSample(t *testing.T, src string) *Unit {
	t.Helper()
	u, err := Parse(context.Background(), PseudoPath, []byte(src))
	require.NoError(t, err)
	t.Cleanup(u.Close)
	return u
}

func findFirst(u *Unit, kind string) *sitter.Node {
	var found *sitter.Node
	Walk(u.Root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.Kind() == kind {
			found = n
			return false
		}
		return true
	})
	return found
}

func TestParse_Valid(t *testing.T) {
	t.Parallel()

	u := parseSample(t, sample)
	assert.Equal(t, "program", u.Root.Kind())
	assert.Empty(t, u.Problems())
}

func TestParse_BrokenSourceReportsProblems(t *testing.T) {
	t.Parallel()

	u := parseSample(t, "public class Broken { void m( { }")
	problems := u.Problems()
	require.NotEmpty(t, problems)
	assert.Equal(t, PseudoPath, problems[0].FilePath)
	assert.GreaterOrEqual(t, problems[0].Line, 1)
}

func TestSpanOf(t *testing.T) {
	t.Parallel()

	u := parseSample(t, sample)
	param := findFirst(u, "formal_parameter")
	require.NotNil(t, param)
	assert.Equal(t, "String[] args", u.Text(param))

	span := SpanOf(param)
	assert.Equal(t, 7, span.StartLine)
	assert.Equal(t, 7, span.EndLine)
	assert.Equal(t, 29, span.StartColumn)
	assert.Equal(t, 41, span.EndColumn)
}

func TestSameNode(t *testing.T) {
	t.Parallel()

	u := parseSample(t, sample)
	class := findFirst(u, "class_declaration")
	require.NotNil(t, class)
	body := class.ChildByFieldName("body")
	require.NotNil(t, body)

	assert.True(t, SameNode(body.Parent(), class))
	assert.False(t, SameNode(body, class))
	assert.True(t, SameNode(nil, nil))
}

func TestComments(t *testing.T) {
	t.Parallel()

	u := parseSample(t, sample)
	method := findFirst(u, "method_declaration")
	require.NotNil(t, method)

	doc := u.DocComment(method)
	require.NotNil(t, doc)
	assert.True(t, doc.IsJavadoc)
	assert.Equal(t, " Entry point. ", doc.Content)

	stmt := findFirst(u, "expression_statement")
	require.NotNil(t, stmt)
	lead := u.LeadingComment(stmt)
	require.NotNil(t, lead)
	assert.Equal(t, " create it", lead.Content)

	assert.Len(t, u.Comments(method), 1)
}

func TestFieldChildren(t *testing.T) {
	t.Parallel()

	u := parseSample(t, sample)
	field := findFirst(u, "field_declaration")
	require.NotNil(t, field)

	declarators := FieldChildren(field, "declarator")
	require.Len(t, declarators, 2)
	assert.Equal(t, "a", u.Text(declarators[0].ChildByFieldName("name")))
	assert.Equal(t, "b", u.Text(declarators[1].ChildByFieldName("name")))
}
