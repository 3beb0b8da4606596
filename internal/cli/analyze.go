package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/codeanalyzer/internal/analyzer"
	"github.com/mvp-joe/codeanalyzer/internal/config"
	cerrors "github.com/mvp-joe/codeanalyzer/internal/errors"
)

// OutputFile is the name of the analysis document written to --output.
const OutputFile = "analysis.json"

type analyzeOptions struct {
	input  string
	source string
	output string
	watch  bool
}

// flagKeys maps the analyze flags to the config keys they override.
var flagKeys = map[string]string{
	"analysis-level":        "analysis.level",
	"target-files":          "analysis.target_files",
	"source-only":           "analysis.source_only",
	"workers":               "analysis.workers",
	"build-tool":            "build.tool",
	"build-cmd":             "build.command",
	"no-build":              "build.no_build",
	"no-clean-dependencies": "build.keep_dependencies",
	"frameworks":            "entrypoints.frameworks",
	"call-graph":            "graph.call_graph",
	"data-dependencies":     "graph.data_dependencies",
	"db":                    "storage.path",
}

func newAnalyzeCmd(global *globalOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a Java project (default command)",
		Long: `Analyze discovers the Java sources under --input, builds the project to
collect its library classpath, extracts the symbol table and, at analysis
level 2, the system dependency graph.

Settings come from .codeanalyzer/config.yml in the project, CODEANALYZER_*
environment variables and the flags below, in increasing priority.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, global, opts)
		},
	}
	addAnalyzeFlags(cmd, opts)
	return cmd
}

func addAnalyzeFlags(cmd *cobra.Command, opts *analyzeOptions) {
	flags := cmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", "", "Path to the project root directory")
	flags.StringVarP(&opts.source, "source-analysis", "s", "", "Analyze a single string of Java code instead of a project")
	flags.StringVarP(&opts.output, "output", "o", "", "Directory for "+OutputFile+" (default: stdout)")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "Re-analyze whenever a source file changes")

	flags.IntP("analysis-level", "a", 1, "1: symbol table, 2: symbol table and dependency graph")
	flags.StringSliceP("target-files", "t", nil, "Extract only these files; the whole project is still indexed")
	flags.Bool("source-only", false, "Skip the build and resolve against project sources only")
	flags.Int("workers", 0, "Parallel extraction workers (default: one per CPU)")
	flags.String("build-tool", config.BuildAuto, "Build tool: auto, maven or gradle")
	flags.StringP("build-cmd", "b", "", "Custom build command replacing the tool's compile step")
	flags.Bool("no-build", false, "Do not compile the project; library dependencies are still downloaded")
	flags.Bool("no-clean-dependencies", false, "Keep the downloaded library dependencies")
	flags.StringSlice("frameworks", nil, "Frameworks whose entrypoints are flagged (default: all)")
	flags.String("call-graph", config.CallGraphBuiltin, `Call graph source: "builtin" or a JSON call graph file`)
	flags.Bool("data-dependencies", false, "Add parameter and return value dependency edges")
	flags.String("db", "", "SQLite database recording every analysis run")

	cmd.MarkFlagsMutuallyExclusive("input", "source-analysis")
	cmd.MarkFlagsMutuallyExclusive("source-analysis", "watch")
}

func runAnalyze(cmd *cobra.Command, global *globalOptions, opts *analyzeOptions) error {
	logger := newLogger(cmd.ErrOrStderr(), global)
	if opts.input == "" && opts.source == "" {
		return cerrors.ConfigError("either --input or --source-analysis is required")
	}

	root := opts.input
	if root == "" {
		root = "."
	}
	cfg, err := config.NewLoader(root, config.WithFlags(cmd.Flags(), flagKeys)).Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.source != "" {
		return analyzeSource(ctx, cmd.OutOrStdout(), cfg, opts, logger)
	}

	progress := NewCLIProgressReporter(cmd.ErrOrStderr(), global.quiet)
	a, err := analyzer.New(opts.input, cfg,
		analyzer.WithLogger(logger),
		analyzer.WithProgress(progress),
	)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.watch {
		return watch(ctx, cmd.OutOrStdout(), a, cfg, opts.output, logger)
	}
	return analyzeOnce(ctx, cmd.OutOrStdout(), a, opts.output, logger)
}

// analyzeSource analyzes the --source-analysis string. Nothing is cached or
// stored for it.
func analyzeSource(ctx context.Context, out io.Writer, cfg *config.Config, opts *analyzeOptions, logger *logrus.Logger) error {
	cfg.Cache.Enabled = false
	cfg.Storage.Path = ""
	a, err := analyzer.New(".", cfg, analyzer.WithLogger(logger))
	if err != nil {
		return err
	}
	defer a.Close()

	analysis, err := a.RunSource(ctx, opts.source)
	if err != nil {
		return err
	}
	return writeAnalysis(out, opts.output, analysis)
}

// analyzeOnce runs one analysis and writes its document. When a later phase
// fails the document is still written and the error returned.
func analyzeOnce(ctx context.Context, out io.Writer, a *analyzer.Analyzer, output string, logger *logrus.Logger) error {
	analysis, stats, err := a.Run(ctx)
	if analysis == nil {
		return err
	}
	if werr := writeAnalysis(out, output, analysis); werr != nil {
		return werr
	}
	if stats != nil && stats.RunID != "" {
		logger.WithField("run_id", stats.RunID).Info("analysis stored")
	}
	return err
}

// writeAnalysis writes the document to dir/analysis.json, or to out when dir
// is empty.
func writeAnalysis(out io.Writer, dir string, analysis *analyzer.Analysis) error {
	data, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}
	data = append(data, '\n')

	if dir == "" {
		_, err := out.Write(data)
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, OutputFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
