package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	cerrors "github.com/mvp-joe/codeanalyzer/internal/errors"
	"github.com/mvp-joe/codeanalyzer/internal/graph"
	"github.com/mvp-joe/codeanalyzer/internal/storage"
)

type queryOptions struct {
	dbPath     string
	runID      string
	depth      int
	maxResults int
}

func newQueryCmd() *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the dependency graph of a stored run",
		Long: `Query searches the call edges an analysis at level 2 stored with --db.
Callables are named by their type and signature, e.g. org.example.User.log().

Examples:
  codeanalyzer query callers org.example.User.loglog() --db analysis.db --depth 2
  codeanalyzer query callees org.example.User.helloString() --db analysis.db
  codeanalyzer query path org.example.User.helloString() org.example.User.loglog() --db analysis.db`,
	}
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database written by analyze --db")
	cmd.PersistentFlags().StringVar(&opts.runID, "run", "", "Run to query (default: the latest run)")
	_ = cmd.MarkPersistentFlagRequired("db")

	for _, op := range []graph.QueryOperation{graph.OperationCallers, graph.OperationCallees} {
		sub := &cobra.Command{
			Use:   string(op) + " <callable>",
			Short: "List the " + string(op) + " of a callable",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runQuery(cmd, opts, op, args[0])
			},
		}
		sub.Flags().IntVar(&opts.depth, "depth", graph.DefaultDepth, "Traversal depth")
		sub.Flags().IntVar(&opts.maxResults, "max-results", graph.DefaultMaxResults, "Maximum number of results")
		cmd.AddCommand(sub)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path <from> <to>",
		Short: "Show a call chain between two callables",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPath(cmd, opts, args[0], args[1])
		},
	})
	return cmd
}

// loadSearcher indexes the edges of the selected run.
func loadSearcher(ctx context.Context, opts *queryOptions) (*graph.Searcher, error) {
	r, err := storage.NewReader(opts.dbPath)
	if err != nil {
		return nil, cerrors.StorageError(err, "failed to open analysis database")
	}
	defer r.Close()

	runID := opts.runID
	if runID == "" {
		latest, err := r.LatestRun(ctx)
		if errors.Is(err, storage.ErrNoRuns) {
			return nil, cerrors.ConfigErrorf("%s holds no analysis runs", opts.dbPath)
		}
		if err != nil {
			return nil, err
		}
		runID = latest.ID
	}

	edges, err := r.Edges(ctx, runID, "")
	if err != nil {
		return nil, err
	}
	return graph.NewSearcher(edges)
}

func runQuery(cmd *cobra.Command, opts *queryOptions, op graph.QueryOperation, target string) error {
	s, err := loadSearcher(cmd.Context(), opts)
	if err != nil {
		return err
	}
	resp, err := s.Query(cmd.Context(), &graph.QueryRequest{
		Operation:  op,
		Target:     target,
		Depth:      opts.depth,
		MaxResults: opts.maxResults,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(resp.Results) == 0 {
		fmt.Fprintf(out, "No %s found for %s\n", op, target)
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEPTH\tWEIGHT\tCALLABLE\tFILE")
	for _, r := range resp.Results {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", r.Depth, r.Weight, r.Vertex.Name(), r.Vertex.FilePath)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if resp.Truncated {
		fmt.Fprintf(out, "Showing %d of %d results\n", resp.TotalReturned, resp.TotalFound)
	}
	return nil
}

func runPath(cmd *cobra.Command, opts *queryOptions, from, to string) error {
	s, err := loadSearcher(cmd.Context(), opts)
	if err != nil {
		return err
	}
	path, err := s.Path(from, to)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if path == nil {
		fmt.Fprintf(out, "No call chain from %s to %s\n", from, to)
		return nil
	}
	fmt.Fprintln(out, graph.FormatPath(path))
	return nil
}
