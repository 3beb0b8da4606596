package callgraph

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/mvp-joe/codeanalyzer/internal/errors"
	"github.com/mvp-joe/codeanalyzer/internal/extract"
	"github.com/mvp-joe/codeanalyzer/internal/registry"
	"github.com/mvp-joe/codeanalyzer/internal/symtab"
)

const testdataRoot = "../../testdata/java"

const shapesSource = `package app;

interface Shape {
    double area();
}

class Circle implements Shape {
    public double area() { return 3.0; }
}

class Square implements Shape {
    public double area() { return 4.0; }
}

class Main {
    double total(Shape s) {
        return s.area();
    }

    double doubled(Shape s) {
        return total(s) * 2;
    }
}
`

func loadProject(t *testing.T, sources []extract.Source) (*extract.Project, symtab.SymbolTable) {
	t.Helper()
	e := extract.New(registry.New())
	p, err := e.Load(context.Background(), sources)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	require.Empty(t, p.Problems)

	table, err := e.Extract(context.Background(), p)
	require.NoError(t, err)
	return p, table
}

func fixture(t *testing.T, dir string) []extract.Source {
	t.Helper()
	root := filepath.Join(testdataRoot, dir)
	var sources []extract.Source
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".java") {
			sources = append(sources, extract.Source{Path: path, Root: root})
		}
		return nil
	})
	require.NoError(t, err)
	return sources
}

func inline(path, code string) []extract.Source {
	return []extract.Source{{Path: path, Root: "src", Code: []byte(code)}}
}

func methodIndex(t *testing.T, g *Graph, class, name string) int {
	t.Helper()
	for i, m := range g.Methods {
		if m.Class == class && m.Name == name {
			return i
		}
	}
	require.Failf(t, "method not in graph", "%s.%s", class, name)
	return -1
}

func nodeOf(t *testing.T, g *Graph, method int) Node {
	t.Helper()
	for _, n := range g.Nodes {
		if n.Method == method {
			return n
		}
	}
	require.Failf(t, "node not in graph", "method %d", method)
	return Node{}
}

func targetsOf(n Node) []int {
	var out []int
	for _, site := range n.CallSites {
		out = append(out, site.Targets...)
	}
	return out
}

func TestCHAProvider_CallChain(t *testing.T) {
	t.Parallel()

	p, table := loadProject(t, fixture(t, "callgraph"))
	g, err := NewCHAProvider(p, table).Build(context.Background())
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	const user = "org/example/User"
	hello := methodIndex(t, g, user, "helloString")
	log := methodIndex(t, g, user, "log")
	loglog := methodIndex(t, g, user, "loglog")

	assert.Equal(t, []int{log}, targetsOf(nodeOf(t, g, hello)))
	assert.Equal(t, []int{loglog}, targetsOf(nodeOf(t, g, log)))
	assert.Empty(t, nodeOf(t, g, loglog).CallSites)
	assert.Equal(t, 2, g.EdgeCount())
	assert.Empty(t, g.Dependencies)

	m := g.Methods[hello]
	assert.Equal(t, "()Ljava/lang/String;", m.Descriptor)
	assert.True(t, m.Application)
	require.NotNil(t, m.IR)
	assert.Equal(t, 1, m.IR.Complexity())
	assert.Equal(t, []string{"private"}, g.Methods[log].Flags)

	key, err := g.Methods[log].Key()
	require.NoError(t, err)
	assert.Equal(t, "log()", key)
}

func TestCHAProvider_DispatchesToOverrides(t *testing.T) {
	t.Parallel()

	p, table := loadProject(t, inline("Shapes.java", shapesSource))
	g, err := NewCHAProvider(p, table, WithDataDependencies(true)).Build(context.Background())
	require.NoError(t, err)

	total := methodIndex(t, g, "app/Main", "total")
	doubled := methodIndex(t, g, "app/Main", "doubled")
	circle := methodIndex(t, g, "app/Circle", "area")
	square := methodIndex(t, g, "app/Square", "area")

	assert.Equal(t, []int{circle, square}, targetsOf(nodeOf(t, g, total)))
	assert.Equal(t, []int{total}, targetsOf(nodeOf(t, g, doubled)))
	assert.Equal(t, "(Lapp/Shape;)D", g.Methods[total].Descriptor)

	assert.Contains(t, g.Dependencies, StatementDependency{
		Source: circle, Target: total,
		SourceKind: KindNormalRetCallee, DestinationKind: KindNormalRetCaller, Type: DataDependency,
	})
	assert.Contains(t, g.Dependencies, StatementDependency{
		Source: doubled, Target: total,
		SourceKind: KindParamCaller, DestinationKind: KindParamCallee, Type: DataDependency,
	})
	assert.Contains(t, g.Dependencies, StatementDependency{
		Source: total, Target: doubled,
		SourceKind: KindNormalRetCallee, DestinationKind: KindNormalRetCaller, Type: DataDependency,
	})
}

func TestCHAProvider_Initializers(t *testing.T) {
	t.Parallel()

	p, table := loadProject(t, fixture(t, "initblocks"))
	g, err := NewCHAProvider(p, table).Build(context.Background())
	require.NoError(t, err)

	const app = "org/example/App"
	clinit := methodIndex(t, g, app, symtab.StaticInitializerName)
	ctor := methodIndex(t, g, app, symtab.ConstructorName)
	main := methodIndex(t, g, app, "main")

	assert.Equal(t, "()V", g.Methods[clinit].Descriptor)
	assert.Contains(t, targetsOf(nodeOf(t, g, clinit)), methodIndex(t, g, app, "initializeStaticFields"))
	assert.Contains(t, targetsOf(nodeOf(t, g, ctor)), methodIndex(t, g, app, "initializeInstanceFields"))
	assert.Contains(t, targetsOf(nodeOf(t, g, main)), ctor)
}

const flowSource = `package app;

class Flow {
    int route(int x, boolean a, int[] xs) {
        int total = 0;
        if (a) { total++; } else if (x > 3) { total--; }
        while (total < 10) { total++; }
        do { total--; } while (total > 5);
        for (int i = 0; i < x; i++) { total += i; }
        for (int v : xs) { total += v; }
        switch (x) {
            case 1: total = 1; break;
            case 2:
            case 3: total = 2; break;
            default: total = 0;
        }
        try {
            total = xs[0];
        } catch (ArrayIndexOutOfBoundsException e) {
            total = -1;
        } catch (RuntimeException e) {
            total = -2;
        }
        return a ? total : -total;
    }
}
`

func TestCHAProvider_ComplexityAgreesWithExtraction(t *testing.T) {
	t.Parallel()

	p, table := loadProject(t, inline("Flow.java", flowSource))
	g, err := NewCHAProvider(p, table).Build(context.Background())
	require.NoError(t, err)

	m := g.Methods[methodIndex(t, g, "app/Flow", "route")]
	require.NotNil(t, m.IR)
	assert.Equal(t, IR{ConditionalBranches: 7, SwitchCases: 4, CatchBlocks: 2}, *m.IR)
	assert.Equal(t, 14, m.IR.Complexity())

	var extracted *symtab.Callable
	for sig, c := range table["Flow.java"].TypeDeclarations["app.Flow"].CallableDeclarations {
		if strings.HasPrefix(sig, "route(") {
			extracted = c
		}
	}
	require.NotNil(t, extracted)
	assert.Equal(t, m.IR.Complexity(), extracted.CyclomaticComplexity)
}

func TestCHAProvider_RejectsBadHierarchies(t *testing.T) {
	t.Parallel()

	p, err := extract.New(registry.New()).Load(context.Background(), nil)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	_, err = NewCHAProvider(p, symtab.SymbolTable{}).Build(context.Background())
	kind, ok := cerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, cerrors.KindCallGraph, kind)

	p, err = extract.New(registry.New()).Load(context.Background(),
		inline("Cycle.java", "package app;\nclass A extends B {}\nclass B extends A {}\n"))
	require.NoError(t, err)
	t.Cleanup(p.Close)
	_, err = NewCHAProvider(p, symtab.SymbolTable{}).Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inheritance cycle")
}
