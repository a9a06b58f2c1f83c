package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quality grades a match candidate.
type Quality string

const (
	QualityHigh   Quality = "High"   // amount and date both match
	QualityMedium Quality = "Medium" // amount matches, date differs or is unknown
)

// MatchOutcome distinguishes why a match attempt ended the way it did.
type MatchOutcome string

const (
	OutcomeMatched           MatchOutcome = "matched"
	OutcomeNoMatch           MatchOutcome = "no_match"
	OutcomeLedgerUnavailable MatchOutcome = "ledger_unavailable"
	OutcomeError             MatchOutcome = "error"
)

// ReceiptRecord is the part of a deposit receipt the matcher looks at.
type ReceiptRecord struct {
	ReferenceNumber string
	Amount          decimal.Decimal
	DepositDate     time.Time // zero when unknown
}

// HasDate reports whether the receipt carries a parsed deposit date.
func (r ReceiptRecord) HasDate() bool {
	return !r.DepositDate.IsZero()
}

// MatchCandidate is a ledger row judged to plausibly correspond to a receipt.
type MatchCandidate struct {
	Reference   string          `json:"transaction_ref"`
	Date        string          `json:"transaction_date"`
	Amount      decimal.Decimal `json:"transaction_amount"`
	Description string          `json:"description_text"`
	RowIndex    int             `json:"raw_row_index"`
	Quality     Quality         `json:"quality"`
}

// MatchResult is computed once at approval time and stored with the receipt.
type MatchResult struct {
	IsMatch     bool             `json:"is_match"`
	Outcome     MatchOutcome     `json:"outcome"`
	Candidates  []MatchCandidate `json:"candidates"`
	Diagnostic  string           `json:"diagnostic"`
	SkippedRows int              `json:"skipped_rows,omitempty"`
}
