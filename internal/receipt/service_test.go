package receipt

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/depositmatch/internal/auditlog"
	"github.com/cleared-dev/depositmatch/internal/model"
)

type fakeMatcher struct {
	result model.MatchResult
	calls  []model.ReceiptRecord
}

func (f *fakeMatcher) Match(rec model.ReceiptRecord) model.MatchResult {
	f.calls = append(f.calls, rec)
	return f.result
}

type fixture struct {
	svc     *Service
	matcher *fakeMatcher
	audit   *auditlog.Log
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		matcher: &fakeMatcher{result: model.MatchResult{
			IsMatch:    true,
			Outcome:    model.OutcomeMatched,
			Diagnostic: "found 1 matching transaction(s)",
			Candidates: []model.MatchCandidate{{Reference: "4010262250107773", Quality: model.QualityHigh}},
		}},
		audit: auditlog.New(t.TempDir()),
		now:   time.Date(2025, 3, 31, 10, 0, 0, 0, time.UTC),
	}
	seq := 0
	f.svc = NewServiceWithDeps(openStore(t), f.matcher, f.audit, zerolog.Nop(),
		func() time.Time { return f.now },
		func(now time.Time) string {
			seq++
			return fmt.Sprintf("APR-%d-%08d", now.Unix(), seq)
		})
	return f
}

func submission(ref, amount string) *Receipt {
	return &Receipt{
		ReferenceNumber: ref,
		AmountAED:       decimal.RequireFromString(amount),
		DepositDate:     "31/03/2025",
		SubmittedBy:     "fatima",
	}
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)
	r, err := f.svc.Submit(submission(" 4010262250107773 ", "5000.00"))
	require.NoError(t, err)

	assert.Equal(t, "APR-1743415200-00000001", r.ApprovalID)
	assert.Equal(t, "4010262250107773", r.ReferenceNumber)
	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, SourceManual, r.Source)
	assert.Equal(t, f.now, r.SubmittedAt)
	assert.Empty(t, f.matcher.calls, "submission must not match")

	entries, err := f.audit.Read()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, auditlog.ActionSubmit, entries[0].Action)
	assert.Equal(t, "fatima", entries[0].Actor)
	assert.Equal(t, "amount 5000.00, source manual", entries[0].Details)
}

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(submission("  ", "5000"))
	assert.ErrorIs(t, err, ErrMissingReference)

	_, err = f.svc.Submit(submission("123", "0"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestSubmit_DuplicateInAnyStatus(t *testing.T) {
	f := newFixture(t)
	first, err := f.svc.Submit(submission("4010262250107773", "5000"))
	require.NoError(t, err)

	_, err = f.svc.Submit(submission("4010262250107773", "5000"))
	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.ApprovalID, dup.ApprovalID)
	assert.Equal(t, StatusPending, dup.Status)

	_, err = f.svc.Reject(first.ApprovalID, "omar", "wrong branch")
	require.NoError(t, err)
	_, err = f.svc.Submit(submission("4010262250107773", "5000"))
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, StatusRejected, dup.Status)
	assert.Contains(t, err.Error(), "already submitted")
}

func TestApprove_MatchesOnceAndStoresResult(t *testing.T) {
	f := newFixture(t)
	r, err := f.svc.Submit(submission("4010262250107773", "5000.00"))
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	approved, err := f.svc.Approve(r.ApprovalID, "omar", "checked slip")
	require.NoError(t, err)

	require.Len(t, f.matcher.calls, 1)
	rec := f.matcher.calls[0]
	assert.Equal(t, "4010262250107773", rec.ReferenceNumber)
	assert.Equal(t, "5000.00", rec.Amount.StringFixed(2))
	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), rec.DepositDate)

	assert.Equal(t, StatusApproved, approved.Status)
	assert.Equal(t, "omar", approved.ReviewedBy)
	require.NotNil(t, approved.ReviewedAt)
	assert.Equal(t, f.now, *approved.ReviewedAt)
	assert.True(t, approved.IsMatched())

	stored, err := f.svc.Get(r.ApprovalID)
	require.NoError(t, err)
	require.NotNil(t, stored.MatchDetails)
	assert.Equal(t, model.OutcomeMatched, stored.MatchDetails.Outcome)
	require.Len(t, stored.MatchDetails.Candidates, 1)
	assert.Equal(t, model.QualityHigh, stored.MatchDetails.Candidates[0].Quality)

	// reading it back does not re-run the match
	_, err = f.svc.List(StatusApproved)
	require.NoError(t, err)
	assert.Len(t, f.matcher.calls, 1)

	entries, err := f.audit.ForApproval(r.ApprovalID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, auditlog.ActionApprove, entries[1].Action)
	assert.Equal(t, "matched: found 1 matching transaction(s)", entries[1].Details)
}

func TestApprove_NoMatchIsNotAnError(t *testing.T) {
	f := newFixture(t)
	f.matcher.result = model.MatchResult{Outcome: model.OutcomeLedgerUnavailable, Diagnostic: "ledger not available"}
	r, err := f.svc.Submit(submission("4010262250107773", "5000.00"))
	require.NoError(t, err)

	approved, err := f.svc.Approve(r.ApprovalID, "omar", "")
	require.NoError(t, err)
	assert.False(t, approved.IsMatched())
	assert.Equal(t, "ledger not available", approved.MatchDetails.Diagnostic)
}

func TestApprove_OnlyPending(t *testing.T) {
	f := newFixture(t)
	r, err := f.svc.Submit(submission("4010262250107773", "5000.00"))
	require.NoError(t, err)
	_, err = f.svc.Approve(r.ApprovalID, "omar", "")
	require.NoError(t, err)

	_, err = f.svc.Approve(r.ApprovalID, "omar", "")
	assert.ErrorIs(t, err, ErrNotPending)
	_, err = f.svc.Reject(r.ApprovalID, "omar", "late")
	assert.ErrorIs(t, err, ErrNotPending)
	assert.Len(t, f.matcher.calls, 1)

	_, err = f.svc.Approve("APR-404", "omar", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	r, err := f.svc.Submit(submission("4010262250107773", "5000.00"))
	require.NoError(t, err)

	_, err = f.svc.Reject(r.ApprovalID, "omar", "   ")
	assert.ErrorIs(t, err, ErrReasonRequired)

	rejected, err := f.svc.Reject(r.ApprovalID, "omar", "amount differs from slip")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, "amount differs from slip", rejected.RejectionReason)
	assert.Nil(t, rejected.MatchDetails)
	assert.Empty(t, f.matcher.calls)

	entries, err := f.audit.ForApproval(r.ApprovalID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, auditlog.ActionReject, entries[1].Action)
}

func TestBySubmitter(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Submit(submission("111", "10"))
	require.NoError(t, err)
	f.now = f.now.Add(time.Minute)
	other := submission("222", "20")
	other.SubmittedBy = "omar"
	_, err = f.svc.Submit(other)
	require.NoError(t, err)
	f.now = f.now.Add(time.Minute)
	c, err := f.svc.Submit(submission("333", "30"))
	require.NoError(t, err)
	_, err = f.svc.Approve(a.ApprovalID, "omar", "")
	require.NoError(t, err)

	mine, err := f.svc.BySubmitter("fatima")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, a.ApprovalID, mine[0].ApprovalID)
	assert.Equal(t, c.ApprovalID, mine[1].ApprovalID)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Submit(submission("111", "1000.50"))
	require.NoError(t, err)
	b, err := f.svc.Submit(submission("222", "2000.25"))
	require.NoError(t, err)
	c, err := f.svc.Submit(submission("333", "300"))
	require.NoError(t, err)
	_, err = f.svc.Submit(submission("444", "44"))
	require.NoError(t, err)

	_, err = f.svc.Approve(a.ApprovalID, "omar", "")
	require.NoError(t, err)
	f.matcher.result = model.MatchResult{Outcome: model.OutcomeNoMatch, Diagnostic: "no matching transactions found"}
	_, err = f.svc.Approve(b.ApprovalID, "omar", "")
	require.NoError(t, err)
	_, err = f.svc.Reject(c.ApprovalID, "omar", "duplicate slip")
	require.NoError(t, err)

	st, err := f.svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, st.ByStatus[StatusPending].Count)
	assert.Equal(t, "44.00", st.ByStatus[StatusPending].Total.StringFixed(2))
	assert.Equal(t, 2, st.ByStatus[StatusApproved].Count)
	assert.Equal(t, "3000.75", st.ByStatus[StatusApproved].Total.StringFixed(2))
	assert.Equal(t, 1, st.ByStatus[StatusRejected].Count)
	assert.Equal(t, 1, st.Matched)
	assert.Equal(t, 1, st.Unmatched)
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusApproved.Valid())
	assert.False(t, Status("archived").Valid())
}
