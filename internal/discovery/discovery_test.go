package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Discovery:
// - Java files are found at the root and in nested directories
// - Build output, VCS and tool directories are skipped
// - Exclude patterns prune files and whole directories
// - Files get their src/<set>/java source root, else the project root
// - Target files are keyed by their own path
// - Invalid patterns are rejected

func writeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("class X {}"), 0o644))
	}
	return root
}

func rel(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		r, err := filepath.Rel(root, p)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(r))
	}
	return out
}

func TestDiscovery_Files(t *testing.T) {
	t.Parallel()

	root := writeTree(t,
		"Main.java",
		"README.md",
		"src/main/java/app/Service.java",
		"src/test/java/app/ServiceTest.java",
		"target/generated/Gen.java",
		"module/build/Out.java",
		".git/hooks/Hook.java",
		".codeanalyzer/Cached.java",
		"legacy/Old.java",
	)

	d, err := New(root, []string{"**/*.java"}, []string{"legacy/**"})
	require.NoError(t, err)

	files, err := d.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Main.java",
		"src/main/java/app/Service.java",
		"src/test/java/app/ServiceTest.java",
	}, rel(t, root, files))
}

func TestDiscovery_SourceRoots(t *testing.T) {
	t.Parallel()

	root := writeTree(t,
		"Main.java",
		"src/main/java/app/Service.java",
		"lib/src/test/java/lib/LibTest.java",
	)
	d, err := New(root, []string{"**/*.java"}, nil)
	require.NoError(t, err)

	sources, err := d.Sources(nil)
	require.NoError(t, err)
	require.Len(t, sources, 3)

	roots := map[string]string{}
	for _, s := range sources {
		r, err := filepath.Rel(root, s.Root)
		require.NoError(t, err)
		roots[filepath.Base(s.Path)] = filepath.ToSlash(r)
	}
	assert.Equal(t, map[string]string{
		"Main.java":    ".",
		"Service.java": "src/main/java",
		"LibTest.java": "lib/src/test/java",
	}, roots)
}

func TestDiscovery_Targets(t *testing.T) {
	t.Parallel()

	root := writeTree(t, "src/main/java/app/A.java", "src/main/java/app/B.java")
	d, err := New(root, []string{"**/*.java"}, nil)
	require.NoError(t, err)

	target := filepath.Join(root, "src", "main", "java", "app", "B.java")
	assert.Equal(t, []string{target}, d.Targets([]string{"src/main/java/app/B.java"}))

	sources, err := d.Sources([]string{"src/main/java/app/B.java"})
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, filepath.Join(root, "src", "main", "java"), sources[0].Root)
	assert.Equal(t, target, sources[1].Root)
}

func TestDiscovery_Matches(t *testing.T) {
	t.Parallel()

	d, err := New("/project", []string{"**/*.java"}, []string{"gen/**"})
	require.NoError(t, err)

	assert.True(t, d.Matches("Main.java"))
	assert.True(t, d.Matches("src/main/java/app/A.java"))
	assert.False(t, d.Matches("src/main/resources/app.properties"))
	assert.False(t, d.Matches("gen/A.java"))
	assert.False(t, d.Matches("target/classes/A.java"))
}

func TestNew_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := New(t.TempDir(), []string{"[unclosed"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[unclosed")
}
