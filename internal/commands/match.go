package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/depositmatch/internal/logger"
	"github.com/cleared-dev/depositmatch/internal/match"
)

func newMatchCommand(dir *string) *cobra.Command {
	var ref, amount, date string

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Check a deposit against the current ledger snapshot",
		Long: `Check a deposit against the current ledger snapshot without recording anything.

Prints the match result as JSON. The receipt workflow runs the same check
once, at approval time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, *dir)
			if err != nil {
				return err
			}
			return runMatch(cmd.Context(), cmd.OutOrStdout(), p, ref, amount, date)
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "", "receipt reference number (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "deposit amount in AED (required)")
	cmd.Flags().StringVar(&date, "date", "", "deposit date, DD/MM/YYYY")
	_ = cmd.MarkFlagRequired("ref")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runMatch(ctx context.Context, out io.Writer, p *project, ref, amount, date string) error {
	m, err := p.matcher(ctx)
	if err != nil {
		return err
	}

	result := m.Match(match.ParseReceipt(ref, amount, date))
	log := logger.FromContext(ctx)
	log.Debug().
		Str("reference", ref).
		Str("outcome", string(result.Outcome)).
		Int("candidates", len(result.Candidates)).
		Msg("match checked")

	data, err := json.MarshalIndent(struct {
		IsMatch      bool `json:"is_match"`
		MatchDetails any  `json:"match_details"`
	}{result.IsMatch, result}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}
