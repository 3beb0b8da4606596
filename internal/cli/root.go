// Package cli implements the codeanalyzer command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cerrors "github.com/mvp-joe/codeanalyzer/internal/errors"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1 // Fatal or unclassified error, no output
	ExitPartial = 2 // Output written, a later phase failed
)

// globalOptions holds the flags every command shares.
type globalOptions struct {
	verbose bool
	quiet   bool
}

// NewRootCmd builds the command tree. Running the root command analyzes a
// project, the same as the analyze subcommand.
func NewRootCmd() *cobra.Command {
	global := &globalOptions{}
	opts := &analyzeOptions{}

	rootCmd := &cobra.Command{
		Use:   "codeanalyzer",
		Short: "Extract symbol tables and dependency graphs from Java projects",
		Long: `codeanalyzer parses a Java project and emits a JSON document with the
symbol table of every compilation unit and, at analysis level 2, the system
dependency graph between its callables.

Examples:
  # Symbol table of a Maven project, printed to stdout
  codeanalyzer -i ./my-service

  # Symbol table and dependency graph written to out/analysis.json
  codeanalyzer -i ./my-service -a 2 -o out

  # Analyze a snippet without a project
  codeanalyzer -s 'class A { void f() {} }'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, global, opts)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&global.verbose, "verbose", "v", false, "Log debug messages")
	rootCmd.PersistentFlags().BoolVarP(&global.quiet, "quiet", "q", false, "Log only warnings and errors, hide progress")
	addAnalyzeFlags(rootCmd, opts)

	rootCmd.AddCommand(
		newAnalyzeCmd(global),
		newInitCmd(),
		newRunsCmd(),
		newQueryCmd(),
		newCleanCmd(global),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return run(NewRootCmd(), os.Stderr)
}

func run(cmd *cobra.Command, stderr io.Writer) int {
	err := cmd.Execute()
	if err == nil {
		return ExitOK
	}
	fmt.Fprintln(stderr, "Error:", err)
	if _, ok := cerrors.KindOf(err); ok && !cerrors.IsFatal(err) {
		return ExitPartial
	}
	return ExitFailure
}

// newLogger returns a logger writing to out. Analysis JSON may go to stdout,
// so logs never do.
func newLogger(out io.Writer, global *globalOptions) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	switch {
	case global.verbose:
		logger.SetLevel(logrus.DebugLevel)
	case global.quiet:
		logger.SetLevel(logrus.WarnLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}
