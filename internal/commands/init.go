package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/depositmatch/internal/config"
)

func newInitCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new depositmatch project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "business name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runInit(out io.Writer, dir, name string) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	cfg := config.Default(name)
	dirs := []string{
		cfg.Ledger.ImportDir,
		filepath.Join(cfg.Ledger.ImportDir, "processed"),
		cfg.Ledger.SnapshotDir,
		"logs",
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, cfg.Ledger.ImportDir, ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	fmt.Fprintf(out, "Initialized depositmatch project at %s\n", dir)
	return nil
}
