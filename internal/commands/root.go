package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/depositmatch/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var dir string

	rootCmd := &cobra.Command{
		Use:     "depositmatch",
		Short:   "Bank deposit receipt review and ledger matching",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&dir, "dir", ".", "project directory")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newLedgerCommand(&dir))
	rootCmd.AddCommand(newMatchCommand(&dir))
	rootCmd.AddCommand(newReceiptCommand(&dir))

	return rootCmd
}
