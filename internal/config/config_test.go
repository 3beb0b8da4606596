package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/codeanalyzer/internal/entrypoint"
	cerrors "github.com/mvp-joe/codeanalyzer/internal/errors"
)

// Test Plan for Config System:
// - Default() returns a valid configuration with the expected defaults
// - Load() uses defaults when no config file exists
// - Load() reads .codeanalyzer/config.yml and config.yaml, merging with defaults
// - The project config overrides the user config
// - Environment variables override config files
// - Flags given on the command line override everything; unset flags do not
// - Load() classifies malformed YAML and invalid values as config errors
// - Unknown frameworks are usage errors
// - Validate() reports every invalid field
// - Save() writes a config Load() reads back and refuses to overwrite

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func load(t *testing.T, root string, opts ...LoaderOption) (*Config, error) {
	t.Helper()
	return NewLoader(root, append([]LoaderOption{WithUserDir("")}, opts...)...).Load()
}

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, 1, cfg.Analysis.Level)
	assert.Equal(t, 10_000, cfg.Analysis.ResolverCacheSize)
	assert.Equal(t, BuildAuto, cfg.Build.Tool)
	assert.Equal(t, CallGraphBuiltin, cfg.Graph.CallGraph)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, filepath.Join(DirName, "cache.db"), cfg.Cache.Path)
	assert.Empty(t, cfg.Storage.Path)
	assert.Equal(t, []string{"**/*.java"}, cfg.Discovery.Include)
	assert.Contains(t, cfg.Discovery.Exclude, "target/**")
	assert.NoError(t, Validate(cfg))
}

func TestLoad_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	cfg, err := load(t, t.TempDir())
	require.NoError(t, err)

	expected := Default()
	assert.Equal(t, expected.Analysis.Level, cfg.Analysis.Level)
	assert.Equal(t, expected.Build.Tool, cfg.Build.Tool)
	assert.Equal(t, expected.Graph, cfg.Graph)
	assert.Equal(t, expected.Cache, cfg.Cache)
	assert.Equal(t, expected.Discovery, cfg.Discovery)
	assert.Empty(t, cfg.Entrypoints.Frameworks)
}

func TestLoad_ReadsProjectConfig(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"config.yml", "config.yaml"} {
		root := t.TempDir()
		writeConfig(t, filepath.Join(root, DirName), name, `
analysis:
  level: 2
  workers: 4
entrypoints:
  frameworks: [spring, jaxrs]
graph:
  data_dependencies: true
`)
		cfg, err := load(t, root)
		require.NoError(t, err, name)

		assert.Equal(t, 2, cfg.Analysis.Level)
		assert.Equal(t, 4, cfg.Analysis.Workers)
		assert.Equal(t, []string{"spring", "jaxrs"}, cfg.Entrypoints.Frameworks)
		assert.True(t, cfg.Graph.DataDependencies)

		assert.Equal(t, CallGraphBuiltin, cfg.Graph.CallGraph)
		assert.Equal(t, 10_000, cfg.Analysis.ResolverCacheSize)
		assert.True(t, cfg.Cache.Enabled)
	}
}

func TestLoad_ProjectOverridesUser(t *testing.T) {
	t.Parallel()

	user := t.TempDir()
	root := t.TempDir()
	writeConfig(t, user, "config.yml", "build:\n  tool: gradle\nstorage:\n  path: runs.db\n")
	writeConfig(t, filepath.Join(root, DirName), "config.yml", "build:\n  tool: maven\n")

	cfg, err := NewLoader(root, WithUserDir(user)).Load()
	require.NoError(t, err)
	assert.Equal(t, BuildMaven, cfg.Build.Tool)
	assert.Equal(t, "runs.db", cfg.Storage.Path)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, filepath.Join(root, DirName), "config.yml", "analysis:\n  level: 1\n")
	t.Setenv("CODEANALYZER_ANALYSIS_LEVEL", "2")
	t.Setenv("CODEANALYZER_GRAPH_CALL_GRAPH", "/tmp/cg.json")

	cfg, err := load(t, root)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Analysis.Level)
	assert.Equal(t, "/tmp/cg.json", cfg.Graph.CallGraph)
}

func TestLoad_FlagsOverrideWhenSet(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeConfig(t, filepath.Join(root, DirName), "config.yml", "analysis:\n  level: 2\nbuild:\n  no_build: true\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("analysis-level", 1, "")
	flags.Bool("no-build", false, "")
	flags.String("db", "", "")
	require.NoError(t, flags.Parse([]string{"--db", "out.db"}))

	keys := map[string]string{
		"analysis-level": "analysis.level",
		"no-build":       "build.no_build",
		"db":             "storage.path",
	}
	cfg, err := load(t, root, WithFlags(flags, keys))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Analysis.Level)
	assert.True(t, cfg.Build.NoBuild)
	assert.Equal(t, "out.db", cfg.Storage.Path)

	require.NoError(t, flags.Parse([]string{"--analysis-level", "1"}))
	cfg, err = load(t, root, WithFlags(flags, keys))
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Analysis.Level)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeConfig(t, filepath.Join(root, DirName), "config.yml", "analysis: [unclosed\n")
	_, err := load(t, root)
	require.Error(t, err)
	kind, ok := cerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, cerrors.KindConfig, kind)

	root = t.TempDir()
	writeConfig(t, filepath.Join(root, DirName), "config.yml", "analysis:\n  level: 3\n")
	_, err = load(t, root)
	assert.ErrorIs(t, err, ErrInvalidLevel)
	assert.True(t, cerrors.IsFatal(err))

	root = t.TempDir()
	writeConfig(t, filepath.Join(root, DirName), "config.yml", "entrypoints:\n  frameworks: [quarkus]\n")
	_, err = load(t, root)
	assert.ErrorIs(t, err, entrypoint.ErrUnknownFramework)
	kind, ok = cerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, cerrors.KindUnknownFramework, kind)
}

func TestValidate_ReportsEveryField(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Analysis.Level = 0
	cfg.Analysis.Workers = -1
	cfg.Build.Tool = "ant"
	cfg.Graph.CallGraph = " "
	cfg.Cache.Path = ""
	cfg.Discovery.Exclude = []string{"[unclosed"}

	err := Validate(cfg)
	require.Error(t, err)
	for _, target := range []error{ErrInvalidLevel, ErrInvalidWorkers, ErrInvalidBuildTool, ErrEmptyCallGraph, ErrInvalidCacheSettings, ErrInvalidPattern} {
		assert.ErrorIs(t, err, target)
	}
	assert.Contains(t, err.Error(), "validation failed:")
}

func TestSave_RoundTrip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfg := Default()
	cfg.Analysis.Level = 2
	cfg.Entrypoints.Frameworks = []string{"spring"}

	path, err := Save(root, cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, DirName, "config.yml"), path)

	loaded, err := load(t, root)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Analysis.Level)
	assert.Equal(t, []string{"spring"}, loaded.Entrypoints.Frameworks)

	_, err = Save(root, cfg)
	assert.Error(t, err)
}
