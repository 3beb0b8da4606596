package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	cerrors "github.com/mvp-joe/codeanalyzer/internal/errors"
	"github.com/mvp-joe/codeanalyzer/internal/storage"
)

func newRunsCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List the analysis runs stored in a database",
		Long: `Runs lists the analyses recorded with analyze --db, newest first.

Examples:
  codeanalyzer runs --db analysis.db
  codeanalyzer runs show --db analysis.db --entrypoints`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRuns(cmd, dbPath)
		},
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database written by analyze --db")
	_ = cmd.MarkPersistentFlagRequired("db")
	cmd.AddCommand(newRunsShowCmd(&dbPath))
	return cmd
}

func newRunsShowCmd(dbPath *string) *cobra.Command {
	var (
		entrypoints   bool
		minComplexity int
		typeName      string
	)
	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show what a run stored (default: the latest run)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			filter := storage.CallableFilter{
				TypeName:        typeName,
				EntrypointsOnly: entrypoints,
				MinComplexity:   minComplexity,
			}
			return showRun(cmd, *dbPath, runID, filter)
		},
	}
	cmd.Flags().BoolVar(&entrypoints, "entrypoints", false, "List only entrypoint callables")
	cmd.Flags().IntVar(&minComplexity, "min-complexity", 0, "List only callables at least this complex")
	cmd.Flags().StringVar(&typeName, "type", "", "List only callables of this type")
	return cmd
}

func listRuns(cmd *cobra.Command, dbPath string) error {
	r, err := storage.NewReader(dbPath)
	if err != nil {
		return cerrors.StorageError(err, "failed to open analysis database")
	}
	defer r.Close()

	runs, err := r.Runs(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No analysis runs stored")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCREATED\tLEVEL\tUNITS\tCALLABLES\tEDGES\tROOT")
	for _, run := range runs {
		counts, err := r.Counts(cmd.Context(), run.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			run.ID, run.CreatedAt.Local().Format(time.DateTime), run.Level,
			counts.Units, counts.Callables, counts.Edges, run.Root)
	}
	return tw.Flush()
}

func showRun(cmd *cobra.Command, dbPath, runID string, filter storage.CallableFilter) error {
	r, err := storage.NewReader(dbPath)
	if err != nil {
		return cerrors.StorageError(err, "failed to open analysis database")
	}
	defer r.Close()
	ctx := cmd.Context()

	if runID == "" {
		latest, err := r.LatestRun(ctx)
		if errors.Is(err, storage.ErrNoRuns) {
			fmt.Fprintln(cmd.OutOrStdout(), "No analysis runs stored")
			return nil
		}
		if err != nil {
			return err
		}
		runID = latest.ID
	}

	counts, err := r.Counts(ctx, runID)
	if err != nil {
		return err
	}
	callables, err := r.Callables(ctx, runID, filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n", runID)
	fmt.Fprintf(out, "  Units:      %d\n", counts.Units)
	fmt.Fprintf(out, "  Types:      %d\n", counts.Types)
	fmt.Fprintf(out, "  Callables:  %d\n", counts.Callables)
	fmt.Fprintf(out, "  Call sites: %d\n", counts.CallSites)
	fmt.Fprintf(out, "  Edges:      %d\n", counts.Edges)
	fmt.Fprintln(out)
	return printCallables(out, callables)
}

func printCallables(out io.Writer, callables []storage.CallableRow) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tSIGNATURE\tCOMPLEXITY\tENTRYPOINT")
	for _, c := range callables {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%t\n", c.TypeName, c.Signature, c.CyclomaticComplexity, c.IsEntrypoint)
	}
	return tw.Flush()
}
