package resolve

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/mvp-joe/codeanalyzer/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Test Plan for resolve:
// - Generic and varargs parameters render as bounds, java.lang.Object and arrays in signature keys
// - Colliding keys fall back to the as-written key, then to a #n suffix
// - Types resolve across units of one package, through imports and java.lang
// - An unresolvable type fails with ErrUnresolved, Or yields the written text, and the failure is memoized
// - Locals, parameters and fields type expressions; System.out.println resolves to the PrintStream overload
// - Overloads are picked by argument types
// - Ancestors are transitive and erase type arguments; Subtypes is the inverse
// - Implicit constructors, record accessors and enum members are indexed

func build(t *testing.T, sources map[string]string) (*Resolver, map[string]*Scope) {
	t.Helper()

	paths := make([]string, 0, len(sources))
	for path := range sources {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	idx := NewIndex()
	scopes := make(map[string]*Scope)
	var ordered []*Scope
	for _, path := range paths {
		u, err := parser.Parse(context.Background(), path, []byte(sources[path]))
		require.NoError(t, err)
		t.Cleanup(u.Close)
		idx.Declare(u)
		s := NewScope(u)
		scopes[path] = s
		ordered = append(ordered, s)
	}

	r, err := New(idx)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	r.Populate(ordered...)
	return r, scopes
}

// find returns the first node of the given kind whose text is text.
func find(s *Scope, kind, text string) *sitter.Node {
	var found *sitter.Node
	parser.Walk(s.Unit.Root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.Kind() == kind && s.Unit.Text(n) == text {
			found = n
			return false
		}
		return true
	})
	return found
}

func keys(t *testing.T, r *Resolver, fqn string) []string {
	t.Helper()
	info, ok := r.Index().Type(fqn)
	require.True(t, ok, "type %s not indexed", fqn)
	var out []string
	for _, m := range info.Methods {
		if !m.Implicit {
			out = append(out, m.Key)
		}
	}
	return out
}

func TestSignatureKeys_GenericsAndVarargs(t *testing.T) {
	t.Parallel()

	r, _ := build(t, map[string]string{"Validate.java": `
import java.util.Collection;
import java.util.Map;

public class Validate {
    public static <T extends Collection<?>> T notEmpty(final T collection, final String message, final Object... values) {
        return collection;
    }
    public static <T extends Map<?, ?>> T notEmpty(final T map) {
        return map;
    }
    public static <T> T[] notEmpty(final T[] array) {
        return array;
    }
    private static String getMessage(final String message, final Object... values) {
        return message;
    }
}
`})

	assert.Equal(t, []string{
		"notEmpty(java.util.Collection<?>, java.lang.String, java.lang.Object[])",
		"notEmpty(java.util.Map<?, ?>)",
		"notEmpty(java.lang.Object[])",
		"getMessage(java.lang.String, java.lang.Object[])",
	}, keys(t, r, "Validate"))
}

func TestSignatureKeys_TieBreak(t *testing.T) {
	t.Parallel()

	r, _ := build(t, map[string]string{"Dup.java": `
public class Dup {
    <T> void f(T x) {}
    void f(Object x) {}
    <U> void f(U x) {}
    Dup(int a) {}
}
`})

	assert.Equal(t, []string{
		"f(java.lang.Object)",
		"f(Object)",
		"f(U)",
		"<init>(int)",
	}, keys(t, r, "Dup"))

	info, _ := r.Index().Type("Dup")
	ctor := info.Methods[3]
	assert.True(t, ctor.Constructor)
	assert.Equal(t, "Dup(int)", ctor.Signature())
}

func TestResolveType_Lookup(t *testing.T) {
	t.Parallel()

	r, scopes := build(t, map[string]string{
		"a/Model.java": "package com.acme;\npublic class Model { public static class Part {} }\n",
		"a/Service.java": `package com.acme;
import java.util.List;
import java.util.concurrent.*;
public class Service {
    List<Model> models;
    Model.Part part;
    ConcurrentHashMap<String, Integer> counts;
    StringBuilder sb;
    int[][] grid;
}
`,
	})
	s := scopes["a/Service.java"]

	cases := map[string]string{
		"List<Model>":                        "java.util.List<com.acme.Model>",
		"Model.Part":                         "com.acme.Model.Part",
		"ConcurrentHashMap<String, Integer>": "java.util.concurrent.ConcurrentHashMap<java.lang.String, java.lang.Integer>",
		"StringBuilder":                      "java.lang.StringBuilder",
		"int[][]":                            "int[][]",
	}
	for text, want := range cases {
		n := find(s, kindOf(text), text)
		require.NotNil(t, n, text)
		res := r.ResolveType(s, n)
		require.True(t, res.OK(), "%s: %v", text, res.Err)
		assert.Equal(t, want, res.Name, text)
	}
}

func kindOf(text string) string {
	switch {
	case text == "Model.Part":
		return "scoped_type_identifier"
	case text == "int[][]":
		return "array_type"
	case text == "StringBuilder":
		return "type_identifier"
	}
	return "generic_type"
}

func TestResolveType_UnresolvableFallsBack(t *testing.T) {
	t.Parallel()

	r, scopes := build(t, map[string]string{"Svc.java": `
import org.missing.Thing;
public class Svc {
    Widget<Thing> w;
    Widget<Thing> again;
}
`})
	s := scopes["Svc.java"]
	n := find(s, "generic_type", "Widget<Thing>")
	require.NotNil(t, n)

	res := r.ResolveType(s, n)
	require.False(t, res.OK())
	assert.True(t, errors.Is(res.Err, ErrUnresolved))
	assert.Equal(t, "Widget<Thing>", res.Or(TypeText(s.Unit, n)))

	again := r.ResolveType(s, n)
	require.False(t, again.OK())
	assert.Contains(t, again.Err.Error(), "previously failed")

	info, _ := r.Index().Type("Svc")
	assert.Equal(t, "Widget<Thing>", info.Fields["w"])
}

func TestResolveExpr_LocalsFieldsAndCalls(t *testing.T) {
	t.Parallel()

	r, scopes := build(t, map[string]string{"App.java": `
package app;
import java.util.ArrayList;
import java.util.List;
public class App {
    private String name;
    void run(int count, String... tags) {
        List<String> items = new ArrayList<>();
        var copy = name;
        System.out.println("hi");
        for (String tag : tags) {
            helper(tag, count);
        }
        long total = count + 1L;
        boolean empty = items.isEmpty();
    }
    String helper(String s, int n) { return s; }
    String helper(Object o, int n) { return null; }
}
`})
	s := scopes["App.java"]

	expr := func(kind, text string) Result {
		n := find(s, kind, text)
		require.NotNil(t, n, text)
		return r.ResolveExpr(s, n)
	}

	assert.Equal(t, "java.lang.String", expr("identifier", "name").Name)
	assert.Equal(t, "java.util.ArrayList", expr("object_creation_expression", "new ArrayList<>()").Name)
	assert.Equal(t, "java.lang.String[]", expr("identifier", "tags").Name)
	assert.Equal(t, "long", expr("binary_expression", "count + 1L").Name)
	assert.Equal(t, "boolean", expr("method_invocation", "items.isEmpty()").Name)
	assert.Equal(t, "java.io.PrintStream", expr("field_access", "System.out").Name)

	call := find(s, "method_invocation", `System.out.println("hi")`)
	m, res := r.ResolveMethod(s, call)
	require.True(t, res.OK())
	assert.Equal(t, "println(java.lang.String)", m.Signature())
	assert.Equal(t, "void", res.Name)
	assert.Equal(t, "public", m.Access())

	helper := find(s, "method_invocation", "helper(tag, count)")
	m, res = r.ResolveMethod(s, helper)
	require.True(t, res.OK())
	assert.Equal(t, "helper(java.lang.String, int)", m.Key)
	assert.Equal(t, "", m.Access())
}

func TestAncestorsAndSubtypes(t *testing.T) {
	t.Parallel()

	r, _ := build(t, map[string]string{"H.java": `
package h;
import java.util.List;
interface Shape {}
abstract class Base<T> implements Shape {}
class Square extends Base<String> implements Comparable<Square> {
    public int compareTo(Square o) { return 0; }
}
`})

	ancestors, err := r.Index().Ancestors("h.Square")
	require.NoError(t, err)
	assert.Equal(t, []string{"h.Base", "java.lang.Comparable", "h.Shape"}, ancestors)

	assert.Equal(t, []string{"h.Base", "h.Square"}, r.Index().Subtypes("h.Shape"))

	_, err = r.Index().Ancestors("org.unknown.Type")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolved))
}

func TestImplicitMembers(t *testing.T) {
	t.Parallel()

	r, _ := build(t, map[string]string{"R.java": `
package r;
public record Person(String name, int age) {
    public String name() { return name; }
}
enum Color { RED, GREEN }
class Plain {}
`})

	implicit := func(fqn string) []string {
		info, ok := r.Index().Type(fqn)
		require.True(t, ok)
		var out []string
		for _, m := range info.Methods {
			if m.Implicit {
				out = append(out, m.Key)
			}
		}
		return out
	}

	assert.Equal(t, []string{"age()", "<init>(java.lang.String, int)"}, implicit("r.Person"))
	assert.Equal(t, []string{"<init>()", "values()", "valueOf(java.lang.String)"}, implicit("r.Color"))
	assert.Equal(t, []string{"<init>()"}, implicit("r.Plain"))

	info, _ := r.Index().Type("r.Color")
	assert.Equal(t, "r.Color", info.Fields["RED"])
}
