package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/codeanalyzer/internal/config"
)

func newCleanCmd(global *globalOptions) *cobra.Command {
	var (
		input string
		all   bool
	)
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete the unit cache to force a full extraction",
		Long: `Clean removes the unit cache of a project, so that the next analysis
extracts every file again. With --all the run database configured for the
project is removed as well.

The configuration file (.codeanalyzer/config.yml) is preserved.

Examples:
  # Clean the cache of the project in the current directory
  codeanalyzer clean

  # Clean the cache and the run database of another project
  codeanalyzer clean -i ./my-service --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfigFromDir(input)
			if err != nil {
				return err
			}
			paths := []string{config.ResolvePath(input, cfg.Cache.Path)}
			if all && cfg.Storage.Path != "" {
				paths = append(paths, config.ResolvePath(input, cfg.Storage.Path))
			}

			var freed int64
			removed := 0
			for _, path := range paths {
				info, err := os.Stat(path)
				if os.IsNotExist(err) {
					continue
				}
				if err != nil {
					return fmt.Errorf("failed to stat %s: %w", path, err)
				}
				if err := os.Remove(path); err != nil {
					return fmt.Errorf("failed to remove %s: %w", path, err)
				}
				freed += info.Size()
				removed++
			}

			if global.quiet {
				return nil
			}
			out := cmd.OutOrStdout()
			if removed == 0 {
				fmt.Fprintln(out, "No cache found for this project")
				return nil
			}
			fmt.Fprintf(out, "Removed %d file(s), freed %s\n", removed, formatBytes(freed))
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", ".", "Path to the project root directory")
	cmd.Flags().BoolVar(&all, "all", false, "Also delete the run database")
	return cmd
}

// formatBytes formats a byte count in human-readable form.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
