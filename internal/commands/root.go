package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/envelope/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:     "envelope",
		Short:   "Multi-currency envelope budgeting ledger",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			abs, err := filepath.Abs(a.repo)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			a.repo = abs
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.repo, "repo", ".", "ledger repository directory")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output")

	rootCmd.AddCommand(
		newInitCommand(a),
		newFeedCommand(a),
		newImportCommand(a),
		newClassifyCommand(a),
		newBalanceCommand(a),
		newReclassifyCommand(a),
		newCycleCommand(a),
		newReportCommand(a),
	)

	return rootCmd
}
