package cli

// Test Plan for the command line:
// - Analyze without --input or --source-analysis fails with exit code 1
// - --input and --source-analysis are mutually exclusive
// - --source-analysis prints the pseudo path unit on stdout
// - --output writes analysis.json with the dependency graph at level 2
// - Flags override the project config file
// - A missing call graph file still writes the symbol table and exits with 2
// - An unknown framework is fatal
// - --db records the run, runs lists and shows it, query searches its edges
// - clean removes the unit cache, init writes the default config
// - version prints the tool version

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/codeanalyzer/internal/analyzer"
	"github.com/mvp-joe/codeanalyzer/internal/config"
	"github.com/mvp-joe/codeanalyzer/internal/graph"
	"github.com/mvp-joe/codeanalyzer/internal/parser"
)

type document struct {
	SymbolTable           map[string]json.RawMessage `json:"symbol_table"`
	SystemDependencyGraph []graph.Edge               `json:"system_dependency_graph"`
	ParseProblems         map[string]json.RawMessage `json:"parse_problems"`
	Version               string                     `json:"version"`
}

// execute runs the command line with args and returns what it printed and
// its exit code. The user config directory is isolated per test.
func execute(t *testing.T, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	code = run(cmd, &errOut)
	return out.String(), errOut.String(), code
}

// project copies a fixture project into a temporary directory.
func project(t *testing.T, name string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.CopyFS(root, os.DirFS(filepath.Join("..", "..", "testdata", "java", name))))
	return root
}

func readDocument(t *testing.T, path string) document {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc document
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestAnalyze_MissingInput(t *testing.T) {
	_, stderr, code := execute(t)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "either --input or --source-analysis is required")
}

func TestAnalyze_InputAndSourceExclusive(t *testing.T) {
	_, _, code := execute(t, "-i", t.TempDir(), "-s", "class A {}")
	assert.Equal(t, ExitFailure, code)
}

func TestAnalyze_SourceAnalysis(t *testing.T) {
	stdout, _, code := execute(t, "-q", "-s", "package p; class Greeter { void hi() {} }")
	require.Equal(t, ExitOK, code)

	var doc document
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.Contains(t, doc.SymbolTable, parser.PseudoPath)
	assert.Nil(t, doc.SystemDependencyGraph)
	assert.Equal(t, analyzer.Version, doc.Version)
}

func TestAnalyze_OutputDirectory(t *testing.T) {
	root := project(t, "callgraph")
	outDir := filepath.Join(t.TempDir(), "out")

	stdout, _, code := execute(t, "-q", "-i", root, "--source-only", "-a", "2", "-o", outDir)
	require.Equal(t, ExitOK, code)
	assert.Empty(t, stdout)

	doc := readDocument(t, filepath.Join(outDir, OutputFile))
	assert.Len(t, doc.SymbolTable, 1)
	require.Len(t, doc.SystemDependencyGraph, 2)
	for _, e := range doc.SystemDependencyGraph {
		assert.Equal(t, graph.CallDependency, e.Type)
		assert.Equal(t, "org.example.User", e.Source.TypeDeclaration)
	}
}

func TestAnalyze_FlagOverridesConfig(t *testing.T) {
	root := project(t, "callgraph")
	require.NoError(t, os.MkdirAll(filepath.Join(root, config.DirName), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, config.DirName, "config.yml"),
		[]byte("analysis:\n  level: 2\n  source_only: true\n"), 0o644))

	outDir := t.TempDir()
	_, _, code := execute(t, "-q", "-i", root, "-o", outDir)
	require.Equal(t, ExitOK, code)
	assert.Len(t, readDocument(t, filepath.Join(outDir, OutputFile)).SystemDependencyGraph, 2)

	_, _, code = execute(t, "-q", "-i", root, "-a", "1", "-o", outDir)
	require.Equal(t, ExitOK, code)
	assert.Nil(t, readDocument(t, filepath.Join(outDir, OutputFile)).SystemDependencyGraph)
}

func TestAnalyze_CallGraphFailureIsPartial(t *testing.T) {
	root := project(t, "callgraph")
	outDir := t.TempDir()

	_, stderr, code := execute(t, "-q", "-i", root, "--source-only", "-a", "2",
		"--call-graph", "missing.json", "-o", outDir)
	assert.Equal(t, ExitPartial, code)
	assert.Contains(t, stderr, "failed to read call graph")

	doc := readDocument(t, filepath.Join(outDir, OutputFile))
	assert.Len(t, doc.SymbolTable, 1)
	assert.Nil(t, doc.SystemDependencyGraph)
}

func TestAnalyze_UnknownFramework(t *testing.T) {
	root := project(t, "callgraph")
	_, stderr, code := execute(t, "-q", "-i", root, "--source-only", "--frameworks", "struts9")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "struts9")
}

func TestRuns_ListAndShow(t *testing.T) {
	root := project(t, "callgraph")
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	_, _, code := execute(t, "-q", "-i", root, "--source-only", "-a", "2", "--db", dbPath, "-o", t.TempDir())
	require.Equal(t, ExitOK, code)

	stdout, _, code := execute(t, "runs", "--db", dbPath)
	require.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "RUN")
	assert.Contains(t, stdout, root)

	stdout, _, code = execute(t, "runs", "show", "--db", dbPath)
	require.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "Units:      1")
	assert.Contains(t, stdout, "Edges:      2")
	assert.Contains(t, stdout, "org.example.User")

	stdout, _, code = execute(t, "query", "callees", "org.example.User.helloString()", "--db", dbPath, "--depth", "2")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "org.example.User.log()")
	assert.Contains(t, stdout, "org.example.User.loglog()")

	stdout, _, code = execute(t, "query", "path", "org.example.User.helloString()", "org.example.User.loglog()", "--db", dbPath)
	require.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "org.example.User.helloString() -> org.example.User.log() -> org.example.User.loglog()")
}

func TestRuns_Empty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")

	stdout, _, code := execute(t, "runs", "--db", dbPath)
	require.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "No analysis runs stored")

	stdout, _, code = execute(t, "runs", "show", "--db", dbPath)
	require.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "No analysis runs stored")
}

func TestClean_RemovesCache(t *testing.T) {
	root := project(t, "records")
	_, _, code := execute(t, "-q", "-i", root, "--source-only", "-o", t.TempDir())
	require.Equal(t, ExitOK, code)

	cachePath := filepath.Join(root, config.DirName, "cache.db")
	require.FileExists(t, cachePath)

	stdout, _, code := execute(t, "clean", "-i", root)
	require.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "Removed 1 file(s)")
	assert.NoFileExists(t, cachePath)

	stdout, _, code = execute(t, "clean", "-i", root)
	require.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "No cache found")
}

func TestInit_WritesDefaultConfig(t *testing.T) {
	root := t.TempDir()

	stdout, _, code := execute(t, "init", "-i", root)
	require.Equal(t, ExitOK, code)
	path := filepath.Join(root, config.DirName, "config.yml")
	assert.Contains(t, stdout, path)

	cfg, err := config.LoadConfigFromDir(root)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Analysis.Level, cfg.Analysis.Level)

	_, _, code = execute(t, "init", "-i", root)
	assert.Equal(t, ExitFailure, code)
}

func TestVersion(t *testing.T) {
	stdout, _, code := execute(t, "version")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "codeanalyzer version "+analyzer.Version)
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KB", formatBytes(1024))
	assert.Equal(t, "1.5 MB", formatBytes(3*1024*1024/2))
}
