package commands_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/depositmatch/internal/auditlog"
	"github.com/cleared-dev/depositmatch/internal/receipt"
)

var approvalIDPattern = regexp.MustCompile(`APR-\d+-[0-9a-f]{8}`)

func submitReceipt(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := runDepositmatch(t, append([]string{"receipt", "submit", "--dir", dir}, args...)...)
	require.NoError(t, err)
	id := approvalIDPattern.FindString(out)
	require.NotEmpty(t, id, "submit output should contain an approval id: %s", out)
	return id
}

func showReceipt(t *testing.T, dir, id string) receipt.Receipt {
	t.Helper()
	out, err := runDepositmatch(t, "receipt", "show", id, "--dir", dir)
	require.NoError(t, err)
	var r receipt.Receipt
	require.NoError(t, json.Unmarshal([]byte(out), &r), out)
	return r
}

func TestReceipt_ApproveRecordsMatch(t *testing.T) {
	dir := initProject(t)
	_, err := runDepositmatch(t, "ledger", "import", statement, "--dir", dir)
	require.NoError(t, err)

	id := submitReceipt(t, dir, "--ref", "4010262250107773", "--amount", "5,000.00",
		"--date", "31/03/2025", "--customer", "Gulf Traders", "--user", "ahmed")

	r := showReceipt(t, dir, id)
	assert.Equal(t, receipt.StatusPending, r.Status)
	assert.Equal(t, receipt.SourceManual, r.Source)
	assert.Equal(t, "ahmed", r.SubmittedBy)
	assert.Nil(t, r.MatchDetails, "pending receipts are not matched yet")

	out, err := runDepositmatch(t, "receipt", "approve", id, "--dir", dir, "--user", "fatima", "--notes", "ok")
	require.NoError(t, err)
	assert.Contains(t, out, "ledger match: true")
	assert.Contains(t, out, "High quality: row 9")

	r = showReceipt(t, dir, id)
	assert.Equal(t, receipt.StatusApproved, r.Status)
	assert.Equal(t, "fatima", r.ReviewedBy)
	require.NotNil(t, r.MatchDetails)
	assert.True(t, r.MatchDetails.IsMatch)

	_, err = runDepositmatch(t, "receipt", "approve", id, "--dir", dir)
	require.Error(t, err, "approving twice should fail")

	entries, err := auditlog.New(dir).ForApproval(id)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, auditlog.ActionSubmit, entries[0].Action)
	assert.Equal(t, auditlog.ActionApprove, entries[1].Action)
}

func TestReceipt_ApproveWithoutLedger(t *testing.T) {
	dir := initProject(t)
	id := submitReceipt(t, dir, "--ref", "4010262250107773", "--amount", "5000")

	out, err := runDepositmatch(t, "receipt", "approve", id, "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "ledger not available")

	r := showReceipt(t, dir, id)
	require.NotNil(t, r.MatchDetails)
	assert.False(t, r.MatchDetails.IsMatch)
}

func TestReceipt_DuplicateReference(t *testing.T) {
	dir := initProject(t)
	submitReceipt(t, dir, "--ref", "REF-1001", "--amount", "100")

	_, err := runDepositmatch(t, "receipt", "submit", "--dir", dir, "--ref", " REF-1001 ", "--amount", "200")
	require.Error(t, err)
}

func TestReceipt_SubmitValidation(t *testing.T) {
	dir := initProject(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing ref", []string{"--amount", "100"}},
		{"zero amount", []string{"--ref", "R1", "--amount", "0"}},
		{"garbage amount", []string{"--ref", "R1", "--amount", "lots"}},
		{"bad date", []string{"--ref", "R1", "--amount", "10", "--date", "yesterday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runDepositmatch(t, append([]string{"receipt", "submit", "--dir", dir}, tt.args...)...)
			require.Error(t, err)
		})
	}
}

func TestReceipt_RejectAndList(t *testing.T) {
	dir := initProject(t)
	keep := submitReceipt(t, dir, "--ref", "R-1", "--amount", "100", "--user", "ahmed")
	drop := submitReceipt(t, dir, "--ref", "R-2", "--amount", "250.75", "--user", "ahmed")
	submitReceipt(t, dir, "--ref", "R-3", "--amount", "10", "--user", "omar")

	_, err := runDepositmatch(t, "receipt", "reject", drop, "--dir", dir)
	require.Error(t, err, "reject needs a reason")

	out, err := runDepositmatch(t, "receipt", "reject", drop, "--dir", dir, "--reason", "blurry photo")
	require.NoError(t, err)
	assert.Contains(t, out, "blurry photo")

	out, err = runDepositmatch(t, "receipt", "list", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, keep)
	assert.NotContains(t, out, drop)

	out, err = runDepositmatch(t, "receipt", "list", "--dir", dir, "--status", "rejected")
	require.NoError(t, err)
	assert.Contains(t, out, drop)

	out, err = runDepositmatch(t, "receipt", "list", "--dir", dir, "--user", "ahmed")
	require.NoError(t, err)
	assert.Contains(t, out, keep)
	assert.Contains(t, out, drop)
	assert.NotContains(t, out, "omar")

	_, err = runDepositmatch(t, "receipt", "list", "--dir", dir, "--status", "lost")
	require.Error(t, err)

	out, err = runDepositmatch(t, "receipt", "stats", "--dir", dir)
	require.NoError(t, err)
	assert.Regexp(t, `pending\s+2\s+AED 110\.00`, out)
	assert.Regexp(t, `rejected\s+1\s+AED 250\.75`, out)
}

func TestReceipt_UnknownAccount(t *testing.T) {
	dir := initProject(t)
	cfgPath := filepath.Join(dir, "depositmatch.yaml")
	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	data = append(data, []byte("bank_accounts:\n  - name: Main\n    number: \"1015123456701\"\n")...)
	require.NoError(t, os.WriteFile(cfgPath, data, 0o644))

	_, err = runDepositmatch(t, "receipt", "submit", "--dir", dir, "--ref", "R1", "--amount", "10", "--account-number", "999")
	require.Error(t, err)

	submitReceipt(t, dir, "--ref", "R1", "--amount", "10", "--account-number", "1015123456701")
}

func TestReceiptScan_RequiresAPIKey(t *testing.T) {
	dir := initProject(t)
	img := filepath.Join(t.TempDir(), "receipt.jpg")
	require.NoError(t, os.WriteFile(img, []byte{0xff, 0xd8, 0xff}, 0o644))

	t.Setenv("GEMINI_API_KEY", "")
	_, err := runDepositmatch(t, "receipt", "scan", img, "--dir", dir)
	require.Error(t, err)
}
