// Package match reconciles deposit receipts against the ledger snapshot.
package match

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/depositmatch/internal/ledger"
	"github.com/cleared-dev/depositmatch/internal/model"
)

// DefaultTolerance is the exclusive bound on the amount difference of a match.
var DefaultTolerance = decimal.RequireFromString("0.01")

// Diagnostics reported on MatchResult.
const (
	DiagLedgerUnavailable = "ledger not available"
	DiagNoMatch           = "no matching transactions found"
)

// Matcher compares receipts with ledger rows.
type Matcher struct {
	Tolerance decimal.Decimal
}

// NewMatcher returns a matcher using tolerance, or DefaultTolerance when
// tolerance is not positive.
func NewMatcher(tolerance decimal.Decimal) *Matcher {
	if !tolerance.IsPositive() {
		tolerance = DefaultTolerance
	}
	return &Matcher{Tolerance: tolerance}
}

// Match scans table in order and returns every row whose reference is
// compatible with the receipt and whose credit is within tolerance. Rows
// with unusable amounts are skipped and counted.
func (m *Matcher) Match(rec model.ReceiptRecord, table *model.TransactionTable) model.MatchResult {
	if table.Len() == 0 {
		return unavailable()
	}

	result := model.MatchResult{Candidates: []model.MatchCandidate{}}
	for _, txn := range table.Transactions {
		ref, ok := ExtractReference(txn.Description)
		if !ok || !ReferencesCompatible(ref, rec.ReferenceNumber) {
			continue
		}
		if txn.Issue != "" {
			result.SkippedRows++
			continue
		}
		if txn.Credit.Sub(rec.Amount).Abs().GreaterThanOrEqual(m.Tolerance) {
			continue
		}
		quality := model.QualityMedium
		if rec.HasDate() && txn.HasDate() && model.SameDay(txn.Date, rec.DepositDate) {
			quality = model.QualityHigh
		}
		result.Candidates = append(result.Candidates, model.MatchCandidate{
			Reference:   ref,
			Date:        txn.DateText,
			Amount:      txn.Credit,
			Description: txn.Description,
			RowIndex:    txn.RawRowIndex,
			Quality:     quality,
		})
	}

	if len(result.Candidates) > 0 {
		result.IsMatch = true
		result.Outcome = model.OutcomeMatched
		result.Diagnostic = fmt.Sprintf("found %d matching transaction(s)", len(result.Candidates))
	} else {
		result.Outcome = model.OutcomeNoMatch
		result.Diagnostic = DiagNoMatch
	}
	if result.SkippedRows > 0 {
		result.Diagnostic += fmt.Sprintf("; skipped %d row(s) with unreadable amounts", result.SkippedRows)
	}
	return result
}

func unavailable() model.MatchResult {
	return model.MatchResult{
		Outcome:    model.OutcomeLedgerUnavailable,
		Candidates: []model.MatchCandidate{},
		Diagnostic: DiagLedgerUnavailable,
	}
}

// ParseReceipt converts the boundary form of a receipt. An unparseable
// amount becomes 0 and an unparseable date is left unknown.
func ParseReceipt(reference, amount, depositDate string) model.ReceiptRecord {
	rec := model.ReceiptRecord{ReferenceNumber: strings.TrimSpace(reference), Amount: decimal.Zero}
	if a, err := ledger.ParseAmount(amount); err == nil {
		rec.Amount = a
	}
	if d, ok := ledger.ParseDate(depositDate); ok {
		rec.DepositDate = d
	}
	return rec
}

// SnapshotMatcher matches receipts against the persisted ledger snapshot,
// reading it on every call.
type SnapshotMatcher struct {
	Snapshots *ledger.SnapshotStore
	Matcher   *Matcher
	Log       zerolog.Logger
}

// Match loads the snapshot and matches rec against it. A missing snapshot
// is a non-match; an unreadable one is an error outcome with no candidates.
func (s *SnapshotMatcher) Match(rec model.ReceiptRecord) model.MatchResult {
	start := time.Now()
	table, err := s.Snapshots.Load()
	if errors.Is(err, ledger.ErrNoSnapshot) {
		s.Log.Warn().Str("reference", rec.ReferenceNumber).Msg("ledger snapshot not uploaded")
		return unavailable()
	}
	if err != nil {
		s.Log.Error().Err(err).Str("reference", rec.ReferenceNumber).Msg("reading ledger snapshot")
		return model.MatchResult{
			Outcome:    model.OutcomeError,
			Candidates: []model.MatchCandidate{},
			Diagnostic: "reading ledger: " + err.Error(),
		}
	}

	result := s.Matcher.Match(rec, table)
	s.Log.Info().
		Str("reference", rec.ReferenceNumber).
		Str("outcome", string(result.Outcome)).
		Int("candidates", len(result.Candidates)).
		Int("skipped_rows", result.SkippedRows).
		Dur("elapsed", time.Since(start)).
		Msg("matched receipt")
	return result
}
