package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/codeanalyzer/internal/config"
)

func newInitCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file for a project",
		Long: `Init writes .codeanalyzer/config.yml with the default settings into the
project directory. An existing file is never replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Save(input, config.Default())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", ".", "Path to the project root directory")
	return cmd
}
