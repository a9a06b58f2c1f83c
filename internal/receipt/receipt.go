// Package receipt runs the deposit receipt workflow: submission, review
// and the one-time ledger match recorded at approval.
package receipt

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/depositmatch/internal/match"
	"github.com/cleared-dev/depositmatch/internal/model"
)

// Status is a receipt's place in the review workflow.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Statuses lists every workflow status in display order.
var Statuses = []Status{StatusPending, StatusApproved, StatusRejected}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Source records how a receipt's fields were captured.
type Source string

const (
	SourceManual Source = "manual"
	SourceVision Source = "vision"
)

// Receipt is a bank deposit receipt moving through review.
type Receipt struct {
	ApprovalID        string             `json:"approval_id"`
	ReferenceNumber   string             `json:"reference_number"`
	AmountAED         decimal.Decimal    `json:"amount_aed"`
	DepositDate       string             `json:"deposit_date"` // DD/MM/YYYY
	BankAccountNumber string             `json:"bank_account_number,omitempty"`
	BankAccountName   string             `json:"bank_account_name,omitempty"`
	CustomerName      string             `json:"customer_name,omitempty"`
	Source            Source             `json:"source"`
	SubmittedBy       string             `json:"submitted_by"`
	SubmittedAt       time.Time          `json:"submitted_at"`
	Status            Status             `json:"status"`
	ReviewedBy        string             `json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time         `json:"reviewed_at,omitempty"`
	Notes             string             `json:"notes,omitempty"`
	RejectionReason   string             `json:"rejection_reason,omitempty"`
	MatchDetails      *model.MatchResult `json:"match_details,omitempty"`
}

// Record returns the fields the ledger matcher looks at.
func (r *Receipt) Record() model.ReceiptRecord {
	return match.ParseReceipt(r.ReferenceNumber, r.AmountAED.String(), r.DepositDate)
}

// IsMatched reports whether approval found the deposit in the ledger.
func (r *Receipt) IsMatched() bool {
	return r.MatchDetails != nil && r.MatchDetails.IsMatch
}
