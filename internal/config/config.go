// Package config loads analyzer settings.
//
// Settings are layered, highest priority first:
//  1. Command line flags bound to the loader
//  2. Environment variables (CODEANALYZER_*, nested keys joined by _)
//  3. Project config (.codeanalyzer/config.yml under the analyzed project)
//  4. User config (~/.codeanalyzer/config.yml)
//  5. Built-in defaults
package config

import "path/filepath"

// DirName is the directory holding project config and analyzer state.
const DirName = ".codeanalyzer"

// CallGraphBuiltin selects the class hierarchy call graph instead of a JSON file.
const CallGraphBuiltin = "builtin"

// Build tools.
const (
	BuildAuto   = "auto"
	BuildMaven  = "maven"
	BuildGradle = "gradle"
)

// Config is the complete analyzer configuration.
type Config struct {
	Analysis    AnalysisConfig    `yaml:"analysis" mapstructure:"analysis"`
	Build       BuildConfig       `yaml:"build" mapstructure:"build"`
	Entrypoints EntrypointsConfig `yaml:"entrypoints" mapstructure:"entrypoints"`
	Graph       GraphConfig       `yaml:"graph" mapstructure:"graph"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Storage     StorageConfig     `yaml:"storage" mapstructure:"storage"`
	Discovery   DiscoveryConfig   `yaml:"discovery" mapstructure:"discovery"`
}

// AnalysisConfig selects what is analyzed and how much.
type AnalysisConfig struct {
	Level             int      `yaml:"level" mapstructure:"level"`                             // 1: symbol table, 2: plus dependency graph
	SourceOnly        bool     `yaml:"source_only" mapstructure:"source_only"`                 // Skip the build; resolve from source alone
	TargetFiles       []string `yaml:"target_files" mapstructure:"target_files"`               // Extract only these files; the project is still indexed
	Workers           int      `yaml:"workers" mapstructure:"workers"`                         // 0 means one per CPU
	ResolverCacheSize int      `yaml:"resolver_cache_size" mapstructure:"resolver_cache_size"` // Memoized name lookups
}

// BuildConfig controls the build tool run that provides the classpath.
type BuildConfig struct {
	Tool             string `yaml:"tool" mapstructure:"tool"`                           // auto, maven or gradle
	Command          string `yaml:"command" mapstructure:"command"`                     // Replaces the tool's compile command
	NoBuild          bool   `yaml:"no_build" mapstructure:"no_build"`                   // Skip compilation, still download dependencies
	DependencyDir    string `yaml:"dependency_dir" mapstructure:"dependency_dir"`       // Empty means the tool's default
	KeepDependencies bool   `yaml:"keep_dependencies" mapstructure:"keep_dependencies"` // Leave downloaded jars in place
}

// EntrypointsConfig selects the frameworks whose entrypoints are flagged.
type EntrypointsConfig struct {
	Frameworks []string `yaml:"frameworks" mapstructure:"frameworks"` // Empty means every supported framework
}

// GraphConfig configures the dependency graph phase.
type GraphConfig struct {
	CallGraph        string `yaml:"call_graph" mapstructure:"call_graph"`               // "builtin" or a path to a JSON call graph
	DataDependencies bool   `yaml:"data_dependencies" mapstructure:"data_dependencies"` // Add statement dependency edges
}

// CacheConfig configures the incremental unit cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"` // Relative paths are under the project root
}

// StorageConfig configures the SQLite store of analysis runs.
type StorageConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // Empty disables persistence
}

// DiscoveryConfig filters the source files found under the input.
type DiscoveryConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // Glob patterns relative to the input
	Exclude []string `yaml:"exclude" mapstructure:"exclude"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Level:             1,
			ResolverCacheSize: 10_000,
		},
		Build: BuildConfig{
			Tool: BuildAuto,
		},
		Entrypoints: EntrypointsConfig{
			Frameworks: []string{},
		},
		Graph: GraphConfig{
			CallGraph: CallGraphBuiltin,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    filepath.Join(DirName, "cache.db"),
		},
		Discovery: DiscoveryConfig{
			Include: []string{"**/*.java"},
			Exclude: []string{
				".git/**",
				"target/**",
				"build/**",
				DirName + "/**",
			},
		},
	}
}

// ResolvePath makes a configured path absolute against the project root.
func ResolvePath(rootDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(rootDir, path)
}
