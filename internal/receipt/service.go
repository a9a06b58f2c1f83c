package receipt

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/depositmatch/internal/auditlog"
	"github.com/cleared-dev/depositmatch/internal/id"
	"github.com/cleared-dev/depositmatch/internal/model"
)

var (
	// ErrMissingReference means a receipt was submitted without a reference number.
	ErrMissingReference = errors.New("reference number is required")
	// ErrInvalidAmount means the receipt amount is not positive.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrReasonRequired means a rejection was attempted without a reason.
	ErrReasonRequired = errors.New("rejection reason is required")
	// ErrNotPending means the receipt has already been reviewed.
	ErrNotPending = errors.New("receipt is not pending")
)

// DuplicateError reports a reference number that was already submitted.
type DuplicateError struct {
	Reference  string
	ApprovalID string
	Status     Status
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("reference %s already submitted as %s (%s)", e.Reference, e.ApprovalID, e.Status)
}

// LedgerMatcher reconciles a receipt with the current ledger snapshot.
type LedgerMatcher interface {
	Match(rec model.ReceiptRecord) model.MatchResult
}

// Service handles receipt workflow operations.
type Service struct {
	store   Store
	matcher LedgerMatcher
	audit   *auditlog.Log
	log     zerolog.Logger
	now     func() time.Time
	newID   func(time.Time) string
}

// NewService creates a Service using the wall clock and random approval IDs.
func NewService(store Store, matcher LedgerMatcher, audit *auditlog.Log, log zerolog.Logger) *Service {
	return NewServiceWithDeps(store, matcher, audit, log, time.Now, id.NewApprovalID)
}

// NewServiceWithDeps creates a Service with a custom clock and ID generator.
func NewServiceWithDeps(store Store, matcher LedgerMatcher, audit *auditlog.Log, log zerolog.Logger, now func() time.Time, newID func(time.Time) string) *Service {
	return &Service{
		store:   store,
		matcher: matcher,
		audit:   audit,
		log:     log,
		now:     now,
		newID:   newID,
	}
}

// Submit validates r, rejects references already on file in any status,
// and stores r as pending with a fresh approval ID.
func (s *Service) Submit(r *Receipt) (*Receipt, error) {
	r.ReferenceNumber = strings.TrimSpace(r.ReferenceNumber)
	if r.ReferenceNumber == "" {
		return nil, ErrMissingReference
	}
	if !r.AmountAED.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, r.AmountAED)
	}

	existing, err := s.store.FindByReference(r.ReferenceNumber)
	switch {
	case err == nil:
		return nil, &DuplicateError{Reference: r.ReferenceNumber, ApprovalID: existing.ApprovalID, Status: existing.Status}
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("checking duplicates: %w", err)
	}

	now := s.now()
	r.ApprovalID = s.newID(now)
	r.Status = StatusPending
	r.SubmittedAt = now
	if r.Source == "" {
		r.Source = SourceManual
	}
	if err := s.store.Put(r); err != nil {
		return nil, fmt.Errorf("saving receipt: %w", err)
	}

	s.record(auditlog.Entry{
		Timestamp:  now,
		Actor:      r.SubmittedBy,
		Action:     auditlog.ActionSubmit,
		ApprovalID: r.ApprovalID,
		Reference:  r.ReferenceNumber,
		Details:    fmt.Sprintf("amount %s, source %s", r.AmountAED.StringFixed(2), r.Source),
	})
	s.log.Info().
		Str("approval_id", r.ApprovalID).
		Str("reference", r.ReferenceNumber).
		Str("submitted_by", r.SubmittedBy).
		Msg("receipt submitted")
	return r, nil
}

// Approve runs the ledger match once, stores its result on the receipt
// and moves it to approved.
func (s *Service) Approve(approvalID, reviewer, notes string) (*Receipt, error) {
	r, err := s.pending(approvalID)
	if err != nil {
		return nil, err
	}

	result := s.matcher.Match(r.Record())
	now := s.now()
	r.MatchDetails = &result
	r.Status = StatusApproved
	r.ReviewedBy = reviewer
	r.ReviewedAt = &now
	r.Notes = notes
	if err := s.store.Move(r, StatusPending); err != nil {
		return nil, fmt.Errorf("approving receipt: %w", err)
	}

	s.record(auditlog.Entry{
		Timestamp:  now,
		Actor:      reviewer,
		Action:     auditlog.ActionApprove,
		ApprovalID: r.ApprovalID,
		Reference:  r.ReferenceNumber,
		Details:    fmt.Sprintf("%s: %s", result.Outcome, result.Diagnostic),
	})
	s.log.Info().
		Str("approval_id", r.ApprovalID).
		Str("reviewed_by", reviewer).
		Bool("is_match", result.IsMatch).
		Str("outcome", string(result.Outcome)).
		Msg("receipt approved")
	return r, nil
}

// Reject moves a pending receipt to rejected. A reason is required.
func (s *Service) Reject(approvalID, reviewer, reason string) (*Receipt, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	r, err := s.pending(approvalID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	r.Status = StatusRejected
	r.ReviewedBy = reviewer
	r.ReviewedAt = &now
	r.RejectionReason = reason
	if err := s.store.Move(r, StatusPending); err != nil {
		return nil, fmt.Errorf("rejecting receipt: %w", err)
	}

	s.record(auditlog.Entry{
		Timestamp:  now,
		Actor:      reviewer,
		Action:     auditlog.ActionReject,
		ApprovalID: r.ApprovalID,
		Reference:  r.ReferenceNumber,
		Details:    reason,
	})
	s.log.Info().
		Str("approval_id", r.ApprovalID).
		Str("reviewed_by", reviewer).
		Str("reason", reason).
		Msg("receipt rejected")
	return r, nil
}

func (s *Service) pending(approvalID string) (*Receipt, error) {
	r, err := s.store.Get(approvalID)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	if r.Status != StatusPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotPending, approvalID, r.Status)
	}
	return r, nil
}

// record appends to the audit log. Failures are logged; the workflow
// change has already been committed.
func (s *Service) record(e auditlog.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(e); err != nil {
		s.log.Error().Err(err).Str("approval_id", e.ApprovalID).Str("action", e.Action).Msg("writing audit log")
	}
}

// Get returns one receipt by approval ID.
func (s *Service) Get(approvalID string) (*Receipt, error) {
	r, err := s.store.Get(approvalID)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return r, nil
}

// List returns receipts in status, oldest first.
func (s *Service) List(status Status) ([]*Receipt, error) {
	receipts, err := s.store.List(status)
	if err != nil {
		return nil, fmt.Errorf("listing %s receipts: %w", status, err)
	}
	return receipts, nil
}

// BySubmitter returns every receipt submitted by user, oldest first.
func (s *Service) BySubmitter(user string) ([]*Receipt, error) {
	var out []*Receipt
	for _, status := range Statuses {
		receipts, err := s.List(status)
		if err != nil {
			return nil, err
		}
		for _, r := range receipts {
			if r.SubmittedBy == user {
				out = append(out, r)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out, nil
}

// StatusStats is the count and total amount of receipts in one status.
type StatusStats struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total_amount_aed"`
}

// Stats summarizes the workflow.
type Stats struct {
	ByStatus  map[Status]StatusStats `json:"by_status"`
	Matched   int                    `json:"matched"`
	Unmatched int                    `json:"unmatched"`
}

// Stats counts receipts and sums amounts per status. Approved receipts
// are further split by whether the ledger match found them.
func (s *Service) Stats() (*Stats, error) {
	st := &Stats{ByStatus: make(map[Status]StatusStats, len(Statuses))}
	for _, status := range Statuses {
		receipts, err := s.List(status)
		if err != nil {
			return nil, err
		}
		ss := StatusStats{Total: decimal.Zero}
		for _, r := range receipts {
			ss.Count++
			ss.Total = ss.Total.Add(r.AmountAED)
			if status == StatusApproved {
				if r.IsMatched() {
					st.Matched++
				} else {
					st.Unmatched++
				}
			}
		}
		st.ByStatus[status] = ss
	}
	return st, nil
}
