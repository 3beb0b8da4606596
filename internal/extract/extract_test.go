package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/codeanalyzer/internal/parser"
	"github.com/mvp-joe/codeanalyzer/internal/registry"
	"github.com/mvp-joe/codeanalyzer/internal/symtab"
)

// Test Plan for extract:
// - A project of one class yields one unit, one type and every declared callable in the registry
// - Call sites resolve their callee signature and access; accessed fields are qualified by type
// - Overloaded generic methods in source held in memory each get their own callable
// - Record components carry compact constructor defaults and the varargs flag
// - Hex, octal and binary int defaults wrap to signed 32 bits; long ones do not
// - Static and instance initializers are extracted with their call sites and accessed fields
// - JDBC calls are tagged with CRUD operations and queries stamped with their line
// - Spring controllers and handler methods are flagged as entrypoints
// - Unresolvable types are kept as written
// - Local variables cover enhanced for loops and var, and nominal local types are referenced
// - Unreadable and unparsable sources become problems keyed by their root
// - Targets restrict extraction; a unit cache skips extraction of unchanged files
// - Editing one file invalidates the cached units of every other file
// - Two runs over the same sources marshal to identical JSON

const testdataRoot = "../../testdata/java"

func javaSources(t *testing.T, root string) []Source {
	t.Helper()
	var sources []Source
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".java") {
			sources = append(sources, Source{Path: path, Root: root})
		}
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, sources)
	return sources
}

func runProject(t *testing.T, dir string, opts ...Option) (symtab.SymbolTable, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	table, problems, err := New(reg, opts...).Run(context.Background(), javaSources(t, filepath.Join(testdataRoot, dir)))
	require.NoError(t, err)
	require.Empty(t, problems)
	return table, reg
}

func runSingle(t *testing.T, code string) (*symtab.CompilationUnit, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	table, problems, err := New(reg).ExtractSingle(context.Background(), code)
	require.NoError(t, err)
	require.Empty(t, problems)
	require.Contains(t, table, parser.PseudoPath)
	return table[parser.PseudoPath], reg
}

func onlyUnit(t *testing.T, table symtab.SymbolTable) *symtab.CompilationUnit {
	t.Helper()
	require.Len(t, table, 1)
	for _, cu := range table {
		return cu
	}
	return nil
}

func typeNamed(t *testing.T, cu *symtab.CompilationUnit, name string) *symtab.Type {
	t.Helper()
	typ, ok := cu.TypeDeclarations[name]
	require.True(t, ok, "type %s not extracted", name)
	return typ
}

func callableNamed(t *testing.T, typ *symtab.Type, key string) *symtab.Callable {
	t.Helper()
	c, ok := typ.CallableDeclarations[key]
	require.True(t, ok, "callable %s not extracted", key)
	return c
}

func siteNamed(t *testing.T, sites []symtab.CallSite, method string) symtab.CallSite {
	t.Helper()
	for _, s := range sites {
		if s.MethodName == method {
			return s
		}
	}
	require.Failf(t, "call site not found", "no call to %s", method)
	return symtab.CallSite{}
}

func callableKeys(typ *symtab.Type) []string {
	keys := make([]string, 0, len(typ.CallableDeclarations))
	for k := range typ.CallableDeclarations {
		keys = append(keys, k)
	}
	return keys
}

func TestRun_CallChain(t *testing.T) {
	t.Parallel()

	table, reg := runProject(t, "callgraph")
	cu := onlyUnit(t, table)
	assert.Equal(t, "org.example", cu.PackageName)
	assert.True(t, cu.IsModified)
	require.Len(t, cu.TypeDeclarations, 1)

	user := typeNamed(t, cu, "org.example.User")
	assert.True(t, user.IsClassOrInterfaceDeclaration)
	assert.False(t, user.IsNestedType)
	assert.ElementsMatch(t, []string{"loglog()", "log()", "helloString()"}, callableKeys(user))
	assert.Equal(t, 3, reg.Len())

	require.Len(t, user.FieldDeclarations, 1)
	field := user.FieldDeclarations[0]
	assert.Equal(t, "name", field.Name)
	assert.Equal(t, "java.lang.String", field.Type)
	assert.Equal(t, []string{"private"}, field.Modifiers)

	hello := callableNamed(t, user, "helloString()")
	require.NotNil(t, hello.ReturnType)
	assert.Equal(t, "java.lang.String", *hello.ReturnType)
	assert.Equal(t, "String helloString()", hello.Declaration)
	assert.Equal(t, 1, hello.CyclomaticComplexity)
	assert.Equal(t, []string{"org.example.User.name"}, hello.AccessedFields)
	assert.Empty(t, hello.Parameters)

	site := siteNamed(t, hello.CallSites, "log")
	assert.Equal(t, "log()", site.CalleeSignature)
	assert.True(t, site.IsPrivate)
	assert.False(t, site.IsUnspecified)
	assert.False(t, site.IsStaticCall)
	assert.Empty(t, site.ReceiverExpr)
	assert.Equal(t, "void", site.ReturnType)

	log := callableNamed(t, user, "log()")
	assert.Equal(t, "private void log()", log.Declaration)
	assert.Equal(t, []string{"org.example.User.name"}, log.AccessedFields)
	assert.Equal(t, "loglog()", siteNamed(t, log.CallSites, "loglog").CalleeSignature)
	assert.Nil(t, log.CRUDOperations)

	registered, ok := reg.Get("org.example.User", "log()")
	require.True(t, ok)
	assert.Same(t, log, registered)
}

func TestExtractSingle_GenericOverloads(t *testing.T) {
	t.Parallel()

	code, err := os.ReadFile(filepath.Join(testdataRoot, "generics", "Validate.java"))
	require.NoError(t, err)

	cu, reg := runSingle(t, string(code))
	validate := typeNamed(t, cu, "Validate")
	assert.Len(t, validate.CallableDeclarations, 17)
	assert.Equal(t, 17, reg.Len())

	notEmpty := callableNamed(t, validate, "notEmpty(java.util.Collection<?>, java.lang.String, java.lang.Object[])")
	assert.Equal(t, []string{"public", "static"}, notEmpty.Modifiers)
	require.Len(t, notEmpty.Parameters, 3)
	assert.Equal(t, "collection", notEmpty.Parameters[0].Name)
	assert.Equal(t, []string{"final"}, notEmpty.Parameters[0].Modifiers)

	site := siteNamed(t, notEmpty.CallSites, "requireNonNull")
	assert.Equal(t, []string{"collection", "toSupplier(message, values)"}, site.ArgumentExpr)
	assert.Equal(t, "Objects", site.ReceiverExpr)
	assert.True(t, site.IsStaticCall)
}

func TestRun_RecordComponents(t *testing.T) {
	t.Parallel()

	table, _ := runProject(t, "records")
	person := typeNamed(t, onlyUnit(t, table), "org.example.PersonRecord")
	assert.True(t, person.IsRecordDeclaration)
	assert.False(t, person.IsClassOrInterfaceDeclaration)

	require.Len(t, person.RecordComponents, 3)
	name, age, nicknames := person.RecordComponents[0], person.RecordComponents[1], person.RecordComponents[2]

	assert.Equal(t, "name", name.Name)
	assert.Equal(t, "java.lang.String", name.Type)
	assert.Equal(t, "Unknown", name.DefaultValue)
	require.NotNil(t, name.Comment)
	assert.Equal(t, symtab.NoSpan(), name.Comment.Span)

	assert.Equal(t, "age", age.Name)
	assert.Equal(t, "int", age.Type)
	assert.Equal(t, int64(18), age.DefaultValue)
	assert.False(t, age.IsVarArgs)

	assert.Equal(t, "nicknames", nicknames.Name)
	assert.Nil(t, nicknames.DefaultValue)
	assert.True(t, nicknames.IsVarArgs)

	var ctor *symtab.Callable
	for _, c := range person.CallableDeclarations {
		if c.IsConstructor {
			ctor = c
		}
	}
	require.NotNil(t, ctor)
	assert.Nil(t, ctor.ReturnType)
	assert.Len(t, ctor.Parameters, 3)
	assert.Equal(t, 3, ctor.CyclomaticComplexity)

	getter := callableNamed(t, person, "getSecretIdentity()")
	assert.Equal(t, []string{"org.example.PersonRecord.secretIdentity"}, getter.AccessedFields)

	require.Len(t, person.FieldDeclarations, 1)
	assert.Equal(t, []string{"private", "static"}, person.FieldDeclarations[0].Modifiers)
}

func TestExtractSingle_RecordIntegerDefaults(t *testing.T) {
	t.Parallel()

	cu, _ := runSingle(t, `package p;

record Masks(int all, int high, int octal, int bits, long wide, int small) {
    Masks {
        if (all == 0) { all = 0xFFFFFFFF; }
        high = 0x8000_0000;
        octal = 037777777777;
        bits = 0b11111111111111111111111111111110;
        wide = 0xFFFFFFFFL;
        small = 0x7F;
    }
}
`)
	masks := typeNamed(t, cu, "p.Masks")
	defaults := map[string]any{}
	for _, rc := range masks.RecordComponents {
		defaults[rc.Name] = rc.DefaultValue
	}
	assert.Equal(t, map[string]any{
		"all":   int64(-1),
		"high":  int64(-2147483648),
		"octal": int64(-1),
		"bits":  int64(-2),
		"wide":  int64(4294967295),
		"small": int64(127),
	}, defaults)
}

func TestRun_InitializationBlocks(t *testing.T) {
	t.Parallel()

	table, _ := runProject(t, "initblocks")
	app := typeNamed(t, onlyUnit(t, table), "org.example.App")
	require.Len(t, app.InitializationBlocks, 2)

	static, instance := app.InitializationBlocks[0], app.InitializationBlocks[1]
	assert.True(t, static.IsStatic)
	assert.False(t, instance.IsStatic)

	assert.Equal(t, 2, static.CyclomaticComplexity)
	assert.Equal(t, []string{"org.example.App.staticMessage"}, static.AccessedFields)
	assert.Empty(t, static.ThrownExceptions)
	initStatic := siteNamed(t, static.CallSites, "initializeStaticFields")
	assert.Equal(t, "initializeStaticFields()", initStatic.CalleeSignature)
	assert.True(t, initStatic.IsPrivate)

	printed := siteNamed(t, static.CallSites, "println")
	assert.Equal(t, "System.out", printed.ReceiverExpr)
	assert.Equal(t, "java.io.PrintStream", printed.ReceiverType)
	assert.False(t, printed.IsStaticCall)

	creation := siteNamed(t, static.CallSites, symtab.ConstructorName)
	assert.True(t, creation.IsConstructorCall)
	assert.Equal(t, "java.lang.RuntimeException", creation.ReceiverType)
	assert.Equal(t, creation, static.CallSites[len(static.CallSites)-1])

	assert.Equal(t, 1, instance.CyclomaticComplexity)
	assert.Equal(t, []string{"org.example.App.counter"}, instance.AccessedFields)
	assert.Equal(t, "initializeInstanceFields()", siteNamed(t, instance.CallSites, "initializeInstanceFields").CalleeSignature)

	ctor := callableNamed(t, app, "<init>()")
	assert.True(t, ctor.IsConstructor)
	assert.Equal(t, "App()", ctor.Signature)

	announce := siteNamed(t, callableNamed(t, app, "initializeInstanceFields()").CallSites, "println")
	require.NotNil(t, announce.Comment)
	assert.Equal(t, " Announce the instance fields", announce.Comment.Content)

	entry := callableNamed(t, app, "main(java.lang.String[])")
	newApp := siteNamed(t, entry.CallSites, symtab.ConstructorName)
	assert.Equal(t, "org.example.App", newApp.ReceiverType)
	assert.Equal(t, "App()", newApp.CalleeSignature)
	require.NotNil(t, newApp.Comment)
	assert.Equal(t, " Create the app", newApp.Comment.Content)
}

func TestExtractSingle_CRUD(t *testing.T) {
	t.Parallel()

	cu, _ := runSingle(t, `package app;
import java.sql.Connection;
import java.sql.PreparedStatement;
public class Dao {
    void load(Connection conn) throws Exception {
        PreparedStatement ps = conn.prepareStatement("SELECT * FROM users");
        ps.executeQuery();
    }
}
`)
	load := callableNamed(t, typeNamed(t, cu, "app.Dao"), "load(java.sql.Connection)")

	require.Len(t, load.CRUDQueries, 1)
	assert.Equal(t, symtab.QueryRead, load.CRUDQueries[0].QueryType)
	assert.Equal(t, 6, load.CRUDQueries[0].LineNumber)
	assert.Equal(t, []string{`"SELECT * FROM users"`}, load.CRUDQueries[0].QueryArguments)

	require.Len(t, load.CRUDOperations, 1)
	assert.Equal(t, symtab.CRUDRead, load.CRUDOperations[0].OperationType)
	assert.Equal(t, 7, load.CRUDOperations[0].LineNumber)

	assert.Equal(t, []string{"java.lang.Exception"}, load.ThrownExceptions)
	assert.Equal(t, []string{"java.sql.PreparedStatement"}, load.ReferencedTypes)
}

func TestExtractSingle_Entrypoints(t *testing.T) {
	t.Parallel()

	cu, _ := runSingle(t, `package web;
import org.springframework.web.bind.annotation.GetMapping;
import org.springframework.web.bind.annotation.RestController;

@RestController
public class Hello {
    @GetMapping("/hello")
    public String hello() { return "hi"; }

    private String helper() { return "x"; }
}
`)
	hello := typeNamed(t, cu, "web.Hello")
	assert.True(t, hello.IsEntrypointClass)
	assert.Equal(t, []string{"@RestController"}, hello.Annotations)
	assert.True(t, callableNamed(t, hello, "hello()").IsEntrypoint)
	assert.False(t, callableNamed(t, hello, "helper()").IsEntrypoint)

	plain, _ := runSingle(t, `class Plain { void run() {} }`)
	assert.False(t, typeNamed(t, plain, "Plain").IsEntrypointClass)
}

func TestExtractSingle_UnresolvableTypesKeptAsWritten(t *testing.T) {
	t.Parallel()

	cu, _ := runSingle(t, `package app;
public class Svc {
    private Widget<Thing> widget;
    void run() {
        Gadget g = widget.make();
    }
}
`)
	svc := typeNamed(t, cu, "app.Svc")
	require.Len(t, svc.FieldDeclarations, 1)
	assert.Equal(t, "Widget<Thing>", svc.FieldDeclarations[0].Type)

	run := callableNamed(t, svc, "run()")
	require.Len(t, run.VariableDeclarations, 1)
	assert.Equal(t, "Gadget", run.VariableDeclarations[0].Type)
	assert.Equal(t, "widget.make()", run.VariableDeclarations[0].Initializer)
	assert.Equal(t, []string{"Gadget"}, run.ReferencedTypes)
	assert.Equal(t, []string{"app.Svc.widget"}, run.AccessedFields)

	site := siteNamed(t, run.CallSites, "make")
	assert.Equal(t, "widget", site.ReceiverExpr)
	assert.Empty(t, site.CalleeSignature)
	assert.True(t, site.IsUnspecified)
}

func TestExtractSingle_LocalVariables(t *testing.T) {
	t.Parallel()

	cu, _ := runSingle(t, `package app;
import java.util.ArrayList;
import java.util.List;
public class Loop {
    int sum(List<Integer> values) {
        int total = 0; // running
        for (Integer v : values) {
            total += v;
        }
        var names = new ArrayList<String>();
        return total;
    }
}
`)
	sum := callableNamed(t, typeNamed(t, cu, "app.Loop"), "sum(java.util.List<java.lang.Integer>)")
	require.Len(t, sum.VariableDeclarations, 3)

	total, v, names := sum.VariableDeclarations[0], sum.VariableDeclarations[1], sum.VariableDeclarations[2]
	assert.Equal(t, "total", total.Name)
	assert.Equal(t, "int", total.Type)
	assert.Equal(t, "0", total.Initializer)
	require.NotNil(t, total.Comment)
	assert.Equal(t, " running", total.Comment.Content)

	assert.Equal(t, "v", v.Name)
	assert.Equal(t, "java.lang.Integer", v.Type)
	assert.Empty(t, v.Initializer)
	assert.Equal(t, v.StartLine, v.EndLine)

	assert.Equal(t, "names", names.Name)
	assert.Contains(t, names.Type, "java.util.ArrayList")

	assert.Equal(t, []string{"java.lang.Integer"}, sum.ReferencedTypes)
	assert.Equal(t, 2, sum.CyclomaticComplexity)

	creation := siteNamed(t, sum.CallSites, symtab.ConstructorName)
	assert.Equal(t, "java.util.ArrayList<java.lang.String>", creation.ReceiverType)
	assert.Equal(t, creation.ReceiverType, creation.ReturnType)
}

func TestRun_Problems(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	table, problems, err := New(reg).ExtractSingle(context.Background(), "class Broken { void f( { } }")
	require.NoError(t, err)
	require.NotEmpty(t, problems[SingleRoot])
	assert.Equal(t, parser.PseudoPath, problems[SingleRoot][0].FilePath)
	assert.Contains(t, table, parser.PseudoPath)

	table, problems, err = New(registry.New()).Run(context.Background(), []Source{
		{Path: filepath.Join(t.TempDir(), "Missing.java"), Root: "src"},
	})
	require.NoError(t, err)
	assert.Empty(t, table)
	require.Len(t, problems["src"], 1)
	assert.Equal(t, symtab.Unknown, problems["src"][0].Line)
	assert.Equal(t, symtab.Unknown, problems["src"][0].Column)
}

func TestRun_Targets(t *testing.T) {
	t.Parallel()

	sources := append(
		javaSources(t, filepath.Join(testdataRoot, "callgraph")),
		javaSources(t, filepath.Join(testdataRoot, "initblocks"))...)
	target := sources[len(sources)-1].Path

	reg := registry.New()
	table, _, err := New(reg, WithTargets([]string{target}), WithWorkers(1)).Run(context.Background(), sources)
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Contains(t, table, target)
	assert.Contains(t, table[target].TypeDeclarations, "org.example.App")
}

type memoryCache struct {
	mu    sync.Mutex
	units map[string]*symtab.CompilationUnit
	puts  int
}

func (c *memoryCache) key(path string, hash uint64) string {
	return fmt.Sprintf("%s@%x", path, hash)
}

func (c *memoryCache) Get(path string, hash uint64) (*symtab.CompilationUnit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cu, ok := c.units[c.key(path, hash)]
	return cu, ok
}

func (c *memoryCache) Put(path string, hash uint64, cu *symtab.CompilationUnit) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.units[c.key(path, hash)] = cu
	c.puts++
	return nil
}

func TestRun_UnitCache(t *testing.T) {
	t.Parallel()

	cache := &memoryCache{units: make(map[string]*symtab.CompilationUnit)}

	first, _ := runProject(t, "callgraph", WithCache(cache))
	assert.True(t, onlyUnit(t, first).IsModified)
	assert.Equal(t, 1, cache.puts)

	second, reg := runProject(t, "callgraph", WithCache(cache))
	assert.False(t, onlyUnit(t, second).IsModified)
	assert.Equal(t, 1, cache.puts)
	assert.Equal(t, 3, reg.Len())
}

const (
	callerSource = `package app;

public class Caller {
    public String use(Callee c) {
        return c.get();
    }
}
`
	calleeSource = `package app;

public class Callee {
    public String get() { return ""; }
}
`
	renamedCalleeSource = `package app;

public class Callee {
    public Integer fetch() { return 0; }
}
`
)

func cachedRun(t *testing.T, cache UnitCache, callee string) symtab.SymbolTable {
	t.Helper()
	sources := []Source{
		{Path: "src/app/Callee.java", Root: "src", Code: []byte(callee)},
		{Path: "src/app/Caller.java", Root: "src", Code: []byte(callerSource)},
	}
	opts := []Option{}
	if cache != nil {
		opts = append(opts, WithCache(cache))
	}
	table, problems, err := New(registry.New(), opts...).Run(context.Background(), sources)
	require.NoError(t, err)
	require.Empty(t, problems)
	return table
}

func TestRun_UnitCacheInvalidatedByDependency(t *testing.T) {
	t.Parallel()

	cache := &memoryCache{units: make(map[string]*symtab.CompilationUnit)}
	cachedRun(t, cache, calleeSource)
	assert.Equal(t, 2, cache.puts)

	unchanged := cachedRun(t, cache, calleeSource)
	assert.Equal(t, 2, cache.puts)
	assert.False(t, unchanged["src/app/Caller.java"].IsModified)

	edited := cachedRun(t, cache, renamedCalleeSource)
	assert.Equal(t, 4, cache.puts)
	caller := edited["src/app/Caller.java"]
	assert.True(t, caller.IsModified)

	fresh := cachedRun(t, nil, renamedCalleeSource)
	want, err := json.Marshal(fresh)
	require.NoError(t, err)
	got, err := json.Marshal(edited)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
}

func TestRun_Deterministic(t *testing.T) {
	t.Parallel()

	for _, dir := range []string{"callgraph", "records", "initblocks"} {
		t.Run(dir, func(t *testing.T) {
			t.Parallel()

			first, _ := runProject(t, dir)
			second, _ := runProject(t, dir)

			a, err := json.Marshal(first)
			require.NoError(t, err)
			b, err := json.Marshal(second)
			require.NoError(t, err)
			assert.Equal(t, string(a), string(b))
		})
	}
}
