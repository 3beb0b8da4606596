package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/codeanalyzer/internal/entrypoint"
)

var (
	// ErrInvalidLevel indicates an analysis level other than 1 or 2
	ErrInvalidLevel = errors.New("invalid analysis level")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidBuildTool indicates an unsupported build tool
	ErrInvalidBuildTool = errors.New("invalid build tool")

	// ErrEmptyCallGraph indicates a missing call graph source
	ErrEmptyCallGraph = errors.New("empty call graph source")

	// ErrInvalidCacheSettings indicates invalid cache configuration
	ErrInvalidCacheSettings = errors.New("invalid cache settings")

	// ErrInvalidPattern indicates a discovery glob that does not compile
	ErrInvalidPattern = errors.New("invalid glob pattern")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateAnalysis(&cfg.Analysis); err != nil {
		errs = append(errs, err)
	}
	if err := validateBuild(&cfg.Build); err != nil {
		errs = append(errs, err)
	}
	if _, err := entrypoint.ForFrameworks(nil, cfg.Entrypoints.Frameworks); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(cfg.Graph.CallGraph) == "" {
		errs = append(errs, fmt.Errorf("%w: use %q or a path to a JSON call graph", ErrEmptyCallGraph, CallGraphBuiltin))
	}
	if cfg.Cache.Enabled && strings.TrimSpace(cfg.Cache.Path) == "" {
		errs = append(errs, fmt.Errorf("%w: path is required when the cache is enabled", ErrInvalidCacheSettings))
	}
	if err := validateDiscovery(&cfg.Discovery); err != nil {
		errs = append(errs, err)
	}

	return joinErrors(errs)
}

func validateAnalysis(cfg *AnalysisConfig) error {
	var errs []error
	if cfg.Level != 1 && cfg.Level != 2 {
		errs = append(errs, fmt.Errorf("%w: must be 1 or 2, got %d", ErrInvalidLevel, cfg.Level))
	}
	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers cannot be negative, got %d", ErrInvalidWorkers, cfg.Workers))
	}
	return joinErrors(errs)
}

func validateBuild(cfg *BuildConfig) error {
	switch strings.ToLower(cfg.Tool) {
	case BuildAuto, BuildMaven, BuildGradle:
		return nil
	}
	return fmt.Errorf("%w: must be %q, %q or %q, got %q", ErrInvalidBuildTool, BuildAuto, BuildMaven, BuildGradle, cfg.Tool)
}

func validateDiscovery(cfg *DiscoveryConfig) error {
	var errs []error
	for _, pattern := range append(append([]string{}, cfg.Include...), cfg.Exclude...) {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalidPattern, pattern, err))
		}
	}
	return joinErrors(errs)
}

// joinErrors combines multiple errors into a single error with clear
// formatting. Every error stays reachable through errors.Is.
func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}

	args := make([]any, len(errs))
	for i, err := range errs {
		args[i] = err
	}
	return fmt.Errorf("validation failed:"+strings.Repeat("\n  - %w", len(errs)), args...)
}
