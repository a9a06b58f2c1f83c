package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/depositmatch/internal/auditlog"
	"github.com/cleared-dev/depositmatch/internal/importer"
	"github.com/cleared-dev/depositmatch/internal/ledger"
	"github.com/cleared-dev/depositmatch/internal/logger"
)

func newLedgerCommand(dir *string) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Bank statement ledger operations",
	}
	ledgerCmd.AddCommand(newLedgerImportCommand(dir))
	ledgerCmd.AddCommand(newLedgerScanCommand(dir))
	ledgerCmd.AddCommand(newLedgerShowCommand(dir))
	return ledgerCmd
}

func newLedgerImportCommand(dir *string) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the ledger snapshot with a bank statement export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, *dir)
			if err != nil {
				return err
			}
			return runLedgerImport(cmd.Context(), cmd.OutOrStdout(), p, args[0], user)
		},
	}

	cmd.Flags().StringVar(&user, "user", defaultUser(), "who is importing")

	return cmd
}

func runLedgerImport(ctx context.Context, out io.Writer, p *project, path, user string) error {
	log := logger.FromContext(ctx)
	sheet, data, err := p.readers().ReadFile(path)
	if err != nil {
		return err
	}

	table, report, err := p.extractor().Extract(sheet)
	if report != nil {
		for _, w := range report.Warnings {
			log.Warn().Str("file", filepath.Base(path)).Msg(w)
		}
	}
	if err != nil {
		var missing *ledger.MissingColumnsError
		if errors.As(err, &missing) && report != nil && report.Degraded {
			return fmt.Errorf("importing %s: %w (header row %d was a guess)", filepath.Base(path), err, report.HeaderRow+1)
		}
		return fmt.Errorf("importing %s: %w", filepath.Base(path), err)
	}

	if err := p.snapshots().Save(table, ledger.Upload{Name: filepath.Base(path), Data: data}); err != nil {
		return err
	}

	issues := 0
	for _, txn := range table.Transactions {
		if txn.Issue != "" {
			issues++
		}
	}

	details := fmt.Sprintf("%s: %d transactions, header row %d via %s",
		filepath.Base(path), table.Len(), report.HeaderRow+1, report.HeaderStrategy)
	if err := p.audit().Append(auditlog.Entry{
		Timestamp: time.Now(),
		Actor:     user,
		Action:    auditlog.ActionLedgerImport,
		Details:   details,
	}); err != nil {
		log.Error().Err(err).Msg("writing audit log")
	}
	log.Info().
		Str("file", filepath.Base(path)).
		Int("transactions", table.Len()).
		Int("skipped_rows", len(report.SkippedRows)).
		Int("row_issues", issues).
		Str("header_strategy", report.HeaderStrategy).
		Msg("ledger imported")

	fmt.Fprintf(out, "Imported %s: %d transactions (header row %d via %s)\n",
		filepath.Base(path), table.Len(), report.HeaderRow+1, report.HeaderStrategy)
	if len(report.SkippedRows) > 0 {
		rows := make([]string, len(report.SkippedRows))
		for i, r := range report.SkippedRows {
			rows[i] = fmt.Sprint(r + 1)
		}
		fmt.Fprintf(out, "  skipped rows without description: %s\n", strings.Join(rows, ", "))
	}
	if issues > 0 {
		fmt.Fprintf(out, "  %d row(s) with unreadable amounts\n", issues)
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(out, "  warning: %s\n", w)
	}
	return nil
}

func newLedgerScanCommand(dir *string) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Import statements waiting in the import directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, *dir)
			if err != nil {
				return err
			}
			return runLedgerScan(cmd.Context(), cmd.OutOrStdout(), p, user)
		},
	}

	cmd.Flags().StringVar(&user, "user", defaultUser(), "who is importing")

	return cmd
}

// runLedgerScan imports each waiting file in name order. Each successful
// import replaces the snapshot, so the last file wins.
func runLedgerScan(ctx context.Context, out io.Writer, p *project, user string) error {
	files, err := p.readers().Scan(p.importDir())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "No statements to import")
		return nil
	}

	var failed []string
	for _, f := range files {
		if err := runLedgerImport(ctx, out, p, f.Path, user); err != nil {
			log := logger.FromContext(ctx)
			log.Error().Err(err).Str("file", f.Name).Msg("statement import failed")
			fmt.Fprintf(out, "Failed %s: %v\n", f.Name, err)
			failed = append(failed, f.Name)
			continue
		}
		if err := importer.MarkProcessed(p.importDir(), f.Name); err != nil {
			return err
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d statements failed: %s", len(failed), len(files), strings.Join(failed, ", "))
	}
	return nil
}

func newLedgerShowCommand(dir *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current ledger snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, *dir)
			if err != nil {
				return err
			}
			return runLedgerShow(cmd.OutOrStdout(), p, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many rows (0 = all)")

	return cmd
}

func runLedgerShow(out io.Writer, p *project, limit int) error {
	table, err := p.snapshots().Load()
	if errors.Is(err, ledger.ErrNoSnapshot) {
		fmt.Fprintln(out, "No ledger uploaded yet")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%-12s  %14s  %6s  %s\n", "Date", "Credit", "Row", "Description")
	for i, txn := range table.Transactions {
		if limit > 0 && i >= limit {
			fmt.Fprintf(out, "... %d more\n", table.Len()-limit)
			break
		}
		credit := txn.Credit.StringFixed(2)
		if txn.Issue != "" {
			credit = "?"
		}
		fmt.Fprintf(out, "%-12s  %14s  %6d  %s\n", txn.DateText, credit, txn.RawRowIndex+1, txn.Description)
	}
	fmt.Fprintf(out, "%d transactions\n", table.Len())
	return nil
}
