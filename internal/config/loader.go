package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mvp-joe/codeanalyzer/internal/entrypoint"
	cerrors "github.com/mvp-joe/codeanalyzer/internal/errors"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "CODEANALYZER"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from files, environment and flags.
	Load() (*Config, error)
}

type loader struct {
	rootDir  string
	userDir  string
	flags    *pflag.FlagSet
	flagKeys map[string]string
}

// LoaderOption configures a Loader.
type LoaderOption func(*loader)

// WithUserDir sets the directory of the user config. An empty dir skips it.
func WithUserDir(dir string) LoaderOption {
	return func(l *loader) {
		l.userDir = dir
	}
}

// WithFlags binds command line flags to config keys. keys maps a flag name
// to the dotted key it sets; only flags given on the command line override.
func WithFlags(flags *pflag.FlagSet, keys map[string]string) LoaderOption {
	return func(l *loader) {
		l.flags = flags
		l.flagKeys = keys
	}
}

// NewLoader creates a loader for the project at rootDir.
func NewLoader(rootDir string, opts ...LoaderOption) Loader {
	l := &loader{rootDir: rootDir}
	if home, err := os.UserHomeDir(); err == nil {
		l.userDir = filepath.Join(home, DirName)
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load merges defaults, the user config, the project config, environment
// variables and bound flags, in increasing priority, and validates the result.
func (l *loader) Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	apply(v.SetDefault, Default())

	for _, dir := range []string{l.userDir, filepath.Join(l.rootDir, DirName)} {
		if dir == "" {
			continue
		}
		if err := mergeFile(v, dir); err != nil {
			return nil, cerrors.Wrap(err, cerrors.KindConfig, cerrors.SeverityCritical, "failed to read config file")
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	if l.flags != nil {
		for name, key := range l.flagKeys {
			if f := l.flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, cerrors.Wrap(err, cerrors.KindConfig, cerrors.SeverityCritical, "failed to bind flag "+name)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, cerrors.Wrap(err, cerrors.KindConfig, cerrors.SeverityCritical, "failed to unmarshal config")
	}

	if err := Validate(cfg); err != nil {
		if errors.Is(err, entrypoint.ErrUnknownFramework) {
			return nil, cerrors.UsageError(err)
		}
		return nil, cerrors.Wrap(err, cerrors.KindConfig, cerrors.SeverityCritical, "invalid configuration")
	}
	return cfg, nil
}

// mergeFile merges config.yml or config.yaml from dir when one exists.
func mergeFile(v *viper.Viper, dir string) error {
	for _, name := range []string{"config.yml", "config.yaml"} {
		path := filepath.Join(dir, name)
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		err = v.MergeConfig(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil
	}
	return nil
}

// keys lists every config key. Environment variables are bound to each.
var keys = []string{
	"analysis.level",
	"analysis.source_only",
	"analysis.target_files",
	"analysis.workers",
	"analysis.resolver_cache_size",
	"build.tool",
	"build.command",
	"build.no_build",
	"build.dependency_dir",
	"build.keep_dependencies",
	"entrypoints.frameworks",
	"graph.call_graph",
	"graph.data_dependencies",
	"cache.enabled",
	"cache.path",
	"storage.path",
	"discovery.include",
	"discovery.exclude",
}

// apply passes every value of cfg to set under its key.
func apply(set func(key string, value any), cfg *Config) {
	set("analysis.level", cfg.Analysis.Level)
	set("analysis.source_only", cfg.Analysis.SourceOnly)
	set("analysis.target_files", cfg.Analysis.TargetFiles)
	set("analysis.workers", cfg.Analysis.Workers)
	set("analysis.resolver_cache_size", cfg.Analysis.ResolverCacheSize)

	set("build.tool", cfg.Build.Tool)
	set("build.command", cfg.Build.Command)
	set("build.no_build", cfg.Build.NoBuild)
	set("build.dependency_dir", cfg.Build.DependencyDir)
	set("build.keep_dependencies", cfg.Build.KeepDependencies)

	set("entrypoints.frameworks", cfg.Entrypoints.Frameworks)

	set("graph.call_graph", cfg.Graph.CallGraph)
	set("graph.data_dependencies", cfg.Graph.DataDependencies)

	set("cache.enabled", cfg.Cache.Enabled)
	set("cache.path", cfg.Cache.Path)

	set("storage.path", cfg.Storage.Path)

	set("discovery.include", cfg.Discovery.Include)
	set("discovery.exclude", cfg.Discovery.Exclude)
}

// Save writes cfg as the project config of rootDir. It refuses to replace
// an existing file.
func Save(rootDir string, cfg *Config) (string, error) {
	dir := filepath.Join(rootDir, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, "config.yml")

	v := viper.New()
	v.SetConfigType("yaml")
	apply(v.Set, cfg)
	if err := v.SafeWriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}

// LoadConfigFromDir loads configuration for the project at rootDir.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
