package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/depositmatch/internal/ledger"
	"github.com/cleared-dev/depositmatch/internal/logger"
	"github.com/cleared-dev/depositmatch/internal/receipt"
	"github.com/cleared-dev/depositmatch/internal/vision"
)

func newReceiptCommand(dir *string) *cobra.Command {
	receiptCmd := &cobra.Command{
		Use:   "receipt",
		Short: "Deposit receipt review workflow",
	}
	receiptCmd.AddCommand(newReceiptSubmitCommand(dir))
	receiptCmd.AddCommand(newReceiptScanCommand(dir))
	receiptCmd.AddCommand(newReceiptApproveCommand(dir))
	receiptCmd.AddCommand(newReceiptRejectCommand(dir))
	receiptCmd.AddCommand(newReceiptListCommand(dir))
	receiptCmd.AddCommand(newReceiptShowCommand(dir))
	receiptCmd.AddCommand(newReceiptStatsCommand(dir))
	return receiptCmd
}

// draft holds receipt fields as typed by a user or read from an image.
type draft struct {
	Reference     string
	Amount        string
	Date          string
	AccountNumber string
	AccountName   string
	Customer      string
	User          string
}

// build validates the draft's formats and turns it into a receipt.
func (d draft) build(p *project, source receipt.Source) (*receipt.Receipt, error) {
	amount, err := ledger.ParseAmount(d.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q", d.Amount)
	}
	date := strings.TrimSpace(d.Date)
	if date != "" {
		t, ok := ledger.ParseDate(date)
		if !ok {
			return nil, fmt.Errorf("invalid deposit date %q (want DD/MM/YYYY)", d.Date)
		}
		date = t.Format("02/01/2006")
	}
	if !p.cfg.KnowsAccount(d.AccountNumber) {
		return nil, fmt.Errorf("unknown bank account %q", d.AccountNumber)
	}
	return &receipt.Receipt{
		ReferenceNumber:   d.Reference,
		AmountAED:         amount,
		DepositDate:       date,
		BankAccountNumber: d.AccountNumber,
		BankAccountName:   d.AccountName,
		CustomerName:      d.Customer,
		Source:            source,
		SubmittedBy:       d.User,
	}, nil
}

func submitDraft(ctx context.Context, out io.Writer, p *project, d draft, source receipt.Source) error {
	r, err := d.build(p, source)
	if err != nil {
		return err
	}

	svc, store, err := p.receipts(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	r, err = svc.Submit(r)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Submitted %s (reference %s, AED %s)\n", r.ApprovalID, r.ReferenceNumber, r.AmountAED.StringFixed(2))
	return nil
}

func newReceiptSubmitCommand(dir *string) *cobra.Command {
	var d draft

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a deposit receipt for review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, *dir)
			if err != nil {
				return err
			}
			return submitDraft(cmd.Context(), cmd.OutOrStdout(), p, d, receipt.SourceManual)
		},
	}

	cmd.Flags().StringVar(&d.Reference, "ref", "", "reference number printed on the receipt (required)")
	cmd.Flags().StringVar(&d.Amount, "amount", "", "deposit amount in AED (required)")
	cmd.Flags().StringVar(&d.Date, "date", "", "deposit date, DD/MM/YYYY")
	cmd.Flags().StringVar(&d.AccountNumber, "account-number", "", "bank account number")
	cmd.Flags().StringVar(&d.AccountName, "account-name", "", "bank account name")
	cmd.Flags().StringVar(&d.Customer, "customer", "", "customer name")
	cmd.Flags().StringVar(&d.User, "user", defaultUser(), "who is submitting")
	_ = cmd.MarkFlagRequired("ref")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newReceiptScanCommand(dir *string) *cobra.Command {
	var (
		submit   bool
		customer string
		user     string
	)

	cmd := &cobra.Command{
		Use:   "scan <image>",
		Short: "Read receipt fields from an image",
		Long: `Read receipt fields from an image with the configured vision service.

The extracted fields are printed as JSON for checking. With --submit the
draft is submitted for review as a vision-sourced receipt.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, *dir)
			if err != nil {
				return err
			}

			ext, err := scanImage(cmd, p, args[0])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(ext, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding extraction: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))

			if !submit {
				return nil
			}
			if ext.ReferenceNumber == "" || !ext.HasAmount {
				return fmt.Errorf("cannot submit: reference number and amount must both be readable")
			}
			return submitDraft(cmd.Context(), cmd.OutOrStdout(), p, draft{
				Reference:     ext.ReferenceNumber,
				Amount:        ext.Amount.String(),
				Date:          ext.DepositDate,
				AccountNumber: ext.BankAccountNumber,
				AccountName:   ext.BankAccountName,
				Customer:      customer,
				User:          user,
			}, receipt.SourceVision)
		},
	}

	cmd.Flags().BoolVar(&submit, "submit", false, "submit the extracted receipt for review")
	cmd.Flags().StringVar(&customer, "customer", "", "customer name")
	cmd.Flags().StringVar(&user, "user", defaultUser(), "who is submitting")

	return cmd
}

func scanImage(cmd *cobra.Command, p *project, path string) (*vision.Extraction, error) {
	if p.cfg.Vision.Provider != "gemini" {
		return nil, fmt.Errorf("unsupported vision provider %q", p.cfg.Vision.Provider)
	}
	apiKey := os.Getenv(p.cfg.Vision.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%s is not set", p.cfg.Vision.APIKeyEnv)
	}
	timeout, err := p.cfg.VisionTimeout()
	if err != nil {
		return nil, err
	}

	image, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	scanner, err := vision.NewGemini(cmd.Context(), apiKey, p.cfg.Vision.Model, timeout)
	if err != nil {
		return nil, err
	}
	defer scanner.Close()

	log := logger.FromContext(cmd.Context())
	log.Info().Str("image", path).Str("model", p.cfg.Vision.Model).Msg("scanning receipt")
	ext, err := scanner.Scan(cmd.Context(), image, vision.ContentTypeFor(path))
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return ext, nil
}

func newReceiptApproveCommand(dir *string) *cobra.Command {
	var user, notes string

	cmd := &cobra.Command{
		Use:   "approve <approval-id>",
		Short: "Approve a pending receipt and record its ledger match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, *dir)
			if err != nil {
				return err
			}
			svc, store, err := p.receipts(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			r, err := svc.Approve(args[0], user, notes)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Approved %s\n", r.ApprovalID)
			if m := r.MatchDetails; m != nil {
				fmt.Fprintf(out, "  ledger match: %t (%s)\n", m.IsMatch, m.Diagnostic)
				for _, c := range m.Candidates {
					fmt.Fprintf(out, "  %s quality: row %d, %s, AED %s\n",
						c.Quality, c.RowIndex+1, c.Date, c.Amount.StringFixed(2))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", defaultUser(), "reviewer")
	cmd.Flags().StringVar(&notes, "notes", "", "review notes")

	return cmd
}

func newReceiptRejectCommand(dir *string) *cobra.Command {
	var user, reason string

	cmd := &cobra.Command{
		Use:   "reject <approval-id>",
		Short: "Reject a pending receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, *dir)
			if err != nil {
				return err
			}
			svc, store, err := p.receipts(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			r, err := svc.Reject(args[0], user, reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rejected %s: %s\n", r.ApprovalID, r.RejectionReason)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", defaultUser(), "reviewer")
	cmd.Flags().StringVar(&reason, "reason", "", "why the receipt is rejected (required)")
	_ = cmd.MarkFlagRequired("reason")

	return cmd
}

func newReceiptListCommand(dir *string) *cobra.Command {
	var status, user string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List receipts by status or by submitter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, *dir)
			if err != nil {
				return err
			}
			svc, store, err := p.receipts(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			var receipts []*receipt.Receipt
			if user != "" {
				receipts, err = svc.BySubmitter(user)
			} else {
				s := receipt.Status(status)
				if !s.Valid() {
					return fmt.Errorf("unknown status %q", status)
				}
				receipts, err = svc.List(s)
			}
			if err != nil {
				return err
			}
			return printReceipts(cmd.OutOrStdout(), receipts)
		},
	}

	cmd.Flags().StringVar(&status, "status", string(receipt.StatusPending), "pending, approved or rejected")
	cmd.Flags().StringVar(&user, "user", "", "list every receipt submitted by this user instead")

	return cmd
}

func printReceipts(out io.Writer, receipts []*receipt.Receipt) error {
	if len(receipts) == 0 {
		fmt.Fprintln(out, "No receipts")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "APPROVAL ID\tREFERENCE\tAMOUNT\tDATE\tSTATUS\tMATCH\tSUBMITTED BY")
	for _, r := range receipts {
		matched := "-"
		if r.MatchDetails != nil {
			matched = fmt.Sprint(r.MatchDetails.IsMatch)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ApprovalID, r.ReferenceNumber, r.AmountAED.StringFixed(2), r.DepositDate, r.Status, matched, r.SubmittedBy)
	}
	return w.Flush()
}

func newReceiptShowCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <approval-id>",
		Short: "Print one receipt as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, *dir)
			if err != nil {
				return err
			}
			svc, store, err := p.receipts(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			r, err := svc.Get(args[0])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(r, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding receipt: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newReceiptStatsCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize receipts by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, *dir)
			if err != nil {
				return err
			}
			svc, store, err := p.receipts(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			st, err := svc.Stats()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range receipt.Statuses {
				ss := st.ByStatus[s]
				fmt.Fprintf(out, "%-9s %4d  AED %s\n", s, ss.Count, ss.Total.StringFixed(2))
			}
			fmt.Fprintf(out, "approved receipts found in ledger: %d of %d\n", st.Matched, st.Matched+st.Unmatched)
			return nil
		},
	}
}
