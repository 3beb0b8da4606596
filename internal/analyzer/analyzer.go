// Package analyzer runs a complete analysis of a Java project: discovery,
// the optional build, symbol table extraction, the dependency graph and
// persistence of the run.
package analyzer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mvp-joe/codeanalyzer/internal/build"
	"github.com/mvp-joe/codeanalyzer/internal/cache"
	"github.com/mvp-joe/codeanalyzer/internal/callgraph"
	"github.com/mvp-joe/codeanalyzer/internal/config"
	"github.com/mvp-joe/codeanalyzer/internal/discovery"
	"github.com/mvp-joe/codeanalyzer/internal/entrypoint"
	cerrors "github.com/mvp-joe/codeanalyzer/internal/errors"
	"github.com/mvp-joe/codeanalyzer/internal/extract"
	"github.com/mvp-joe/codeanalyzer/internal/graph"
	"github.com/mvp-joe/codeanalyzer/internal/registry"
	"github.com/mvp-joe/codeanalyzer/internal/storage"
	"github.com/mvp-joe/codeanalyzer/internal/symtab"
)

// Version is the tool version reported in every analysis.
// Set via ldflags at build time.
var Version = "dev"

// Analysis is the document an analysis produces.
type Analysis struct {
	SymbolTable           symtab.SymbolTable `json:"symbol_table"`
	SystemDependencyGraph []graph.Edge       `json:"system_dependency_graph"` // nil below level 2
	ParseProblems         symtab.Problems    `json:"parse_problems"`
	Version               string             `json:"version"`
}

// Stats summarizes one run.
type Stats struct {
	Files     int
	Units     int
	Reused    int // Units taken from the unit cache
	Callables int
	Edges     int
	Jars      int
	RunID     string // Empty when runs are not stored
	Duration  time.Duration
}

// Analyzer analyzes one project. It keeps the unit cache and the run store
// open between runs so that watch mode re-runs are incremental.
type Analyzer struct {
	root      string
	cfg       *config.Config
	logger    *logrus.Logger
	progress  extract.ProgressReporter
	buildOpts []build.Option

	cache  *cache.UnitCache
	writer *storage.Writer
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

// WithProgress sets the progress reporter for extraction.
func WithProgress(p extract.ProgressReporter) Option {
	return func(a *Analyzer) { a.progress = p }
}

// WithBuildOptions passes extra options to the build step.
func WithBuildOptions(opts ...build.Option) Option {
	return func(a *Analyzer) { a.buildOpts = append(a.buildOpts, opts...) }
}

// New creates an analyzer for the project at root. The unit cache and the
// run store are opened when the configuration enables them.
func New(root string, cfg *config.Config, opts ...Option) (*Analyzer, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	if cfg == nil {
		cfg = config.Default()
	}

	a := &Analyzer{
		root:     abs,
		cfg:      cfg,
		progress: extract.NoOpProgressReporter{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logrus.New()
	}

	if cfg.Cache.Enabled {
		c, err := cache.Open(config.ResolvePath(abs, cfg.Cache.Path), a.logger)
		if err != nil {
			// The cache only saves time.
			a.logger.WithError(err).Warn("unit cache unavailable, extracting every file")
		} else {
			a.cache = c
		}
	}
	if cfg.Storage.Path != "" {
		w, err := storage.NewWriter(config.ResolvePath(abs, cfg.Storage.Path))
		if err != nil {
			a.Close()
			return nil, cerrors.StorageError(err, "failed to open analysis database")
		}
		a.writer = w
	}
	return a, nil
}

// Root returns the absolute project root.
func (a *Analyzer) Root() string {
	return a.root
}

// Close releases the unit cache and the run store.
func (a *Analyzer) Close() error {
	var firstErr error
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			firstErr = err
		}
		a.cache = nil
	}
	if a.writer != nil {
		if err := a.writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.writer = nil
	}
	return firstErr
}

// Run analyzes the project. When the dependency graph fails the analysis is
// still returned with its symbol table, together with the call graph error.
func (a *Analyzer) Run(ctx context.Context) (*Analysis, *Stats, error) {
	start := time.Now()
	stats := &Stats{}

	classifier, err := entrypoint.ForFrameworks(a.logger, a.cfg.Entrypoints.Frameworks)
	if err != nil {
		return nil, nil, cerrors.UsageError(err)
	}

	disc, err := discovery.New(a.root, a.cfg.Discovery.Include, a.cfg.Discovery.Exclude)
	if err != nil {
		return nil, nil, cerrors.Wrap(err, cerrors.KindConfig, cerrors.SeverityCritical, "invalid discovery patterns")
	}
	sources, err := disc.Sources(a.cfg.Analysis.TargetFiles)
	if err != nil {
		return nil, nil, err
	}
	stats.Files = len(sources)
	a.logger.WithField("root", a.root).WithField("files", len(sources)).Info("discovered sources")

	var jars []string
	if !a.cfg.Analysis.SourceOnly {
		project := a.project()
		jars = project.Prepare(ctx, !a.cfg.Build.NoBuild)
		defer func() {
			if err := project.Clean(); err != nil {
				a.logger.WithError(err).Warn("failed to clean library dependencies")
			}
		}()
	}
	stats.Jars = len(jars)

	reg := registry.New()
	opts := []extract.Option{
		extract.WithLogger(a.logger),
		extract.WithWorkers(a.cfg.Analysis.Workers),
		extract.WithEntrypoints(classifier),
		extract.WithProgress(a.progress),
		extract.WithClasspath(jars),
		extract.WithTargets(disc.Targets(a.cfg.Analysis.TargetFiles)),
		extract.WithResolverCacheSize(a.cfg.Analysis.ResolverCacheSize),
	}
	if a.cache != nil {
		opts = append(opts, extract.WithCache(a.cache))
	}
	ex := extract.New(reg, opts...)

	p, err := ex.Load(ctx, sources)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load sources: %w", err)
	}
	defer p.Close()

	table, err := ex.Extract(ctx, p)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract symbols: %w", err)
	}
	a.reportProblems(p.Problems)

	analysis := &Analysis{
		SymbolTable:   table,
		ParseProblems: p.Problems,
		Version:       Version,
	}
	stats.Units = len(table)
	for _, unit := range table {
		if !unit.IsModified {
			stats.Reused++
		}
	}
	stats.Callables = table.CountCallables()

	var graphErr error
	if a.cfg.Analysis.Level >= 2 {
		edges, err := a.dependencyGraph(ctx, p, table, reg)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			a.logger.WithError(err).Error("dependency graph failed, symbol table is still complete")
			graphErr = err
		} else {
			analysis.SystemDependencyGraph = edges
			stats.Edges = len(edges)
		}
	}

	if a.cache != nil && len(a.cfg.Analysis.TargetFiles) == 0 {
		keep := make([]string, 0, len(sources))
		for _, s := range sources {
			keep = append(keep, s.Path)
		}
		if n, err := a.cache.Prune(keep); err != nil {
			a.logger.WithError(err).Warn("failed to prune unit cache")
		} else if n > 0 {
			a.logger.WithField("removed", n).Debug("pruned unit cache")
		}
	}

	if a.writer != nil {
		run := &storage.Run{Root: a.root, Level: a.cfg.Analysis.Level, ToolVersion: Version}
		if err := a.writer.WriteAnalysis(ctx, run, table, analysis.SystemDependencyGraph); err != nil {
			return analysis, stats, cerrors.StorageError(err, "failed to store analysis")
		}
		stats.RunID = run.ID
	}

	stats.Duration = time.Since(start)
	a.logger.WithFields(logrus.Fields{
		"units":       stats.Units,
		"reused":      stats.Reused,
		"callables":   stats.Callables,
		"edges":       stats.Edges,
		"duration_ms": stats.Duration.Milliseconds(),
	}).Info("analysis complete")
	return analysis, stats, graphErr
}

// RunSource analyzes Java source held in memory. There is no project to
// build, so only the symbol table is produced.
func (a *Analyzer) RunSource(ctx context.Context, code string) (*Analysis, error) {
	classifier, err := entrypoint.ForFrameworks(a.logger, a.cfg.Entrypoints.Frameworks)
	if err != nil {
		return nil, cerrors.UsageError(err)
	}
	ex := extract.New(registry.New(),
		extract.WithLogger(a.logger),
		extract.WithEntrypoints(classifier),
		extract.WithResolverCacheSize(a.cfg.Analysis.ResolverCacheSize),
	)
	table, problems, err := ex.ExtractSingle(ctx, code)
	if err != nil {
		return nil, err
	}
	a.reportProblems(problems)
	return &Analysis{SymbolTable: table, ParseProblems: problems, Version: Version}, nil
}

// dependencyGraph builds the call graph and folds it into dependency edges.
func (a *Analyzer) dependencyGraph(ctx context.Context, p *extract.Project, table symtab.SymbolTable, reg *registry.Registry) ([]graph.Edge, error) {
	var provider callgraph.Provider
	if a.cfg.Graph.CallGraph == config.CallGraphBuiltin {
		provider = callgraph.NewCHAProvider(p, table,
			callgraph.WithDataDependencies(a.cfg.Graph.DataDependencies),
			callgraph.WithLogger(a.logger),
		)
	} else {
		provider = callgraph.NewJSONProvider(config.ResolvePath(a.root, a.cfg.Graph.CallGraph), a.logger)
	}

	cg, err := provider.Build(ctx)
	if err != nil {
		return nil, err
	}

	builder := graph.NewBuilder(reg,
		graph.WithLogger(a.logger),
		graph.WithSystemDependencies(a.cfg.Graph.DataDependencies),
	)
	edges, err := builder.Build(ctx, cg)
	if err != nil {
		if _, ok := cerrors.KindOf(err); !ok && ctx.Err() == nil {
			err = cerrors.CallGraphError(err, "failed to build dependency graph")
		}
		return nil, err
	}
	return edges, nil
}

func (a *Analyzer) project() *build.Project {
	opts := []build.Option{
		build.WithTool(a.cfg.Build.Tool),
		build.WithBuildCommand(a.cfg.Build.Command),
		build.WithDependencyDir(config.ResolvePath(a.root, a.cfg.Build.DependencyDir)),
		build.WithKeepDependencies(a.cfg.Build.KeepDependencies),
		build.WithLogger(a.logger),
	}
	return build.New(a.root, append(opts, a.buildOpts...)...)
}

func (a *Analyzer) reportProblems(problems symtab.Problems) {
	for root, list := range problems {
		for _, problem := range list {
			a.logger.WithField("path", root).WithField("line", problem.Line).Warn(problem.Message)
		}
	}
}
