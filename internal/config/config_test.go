package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Acme Trading LLC")
	cfg.BankAccounts = []BankAccount{{Name: "ACME TRADING LLC", Number: "1015123456701"}}
	cfg.Ledger.FallbackHeaderRow = 9
	cfg.Matching.AmountTolerance = "0.05"

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default("My Company")

	assert.Equal(t, "My Company", cfg.Business.Name)
	assert.Equal(t, []string{"date", "description", "debit", "credit", "balance"}, cfg.Ledger.HeaderKeywords)
	assert.Equal(t, 2, cfg.Ledger.MinHeaderMatches)
	assert.Equal(t, 13, cfg.Ledger.FallbackHeaderRow)
	assert.Equal(t, 15, cfg.Ledger.DescriptionMinLength)
	assert.Equal(t, "ledger", cfg.Ledger.SnapshotDir)
	assert.Equal(t, "import", cfg.Ledger.ImportDir)
	assert.Equal(t, "depositmatch.db", cfg.Store.Path)
	assert.Equal(t, "gemini", cfg.Vision.Provider)
	assert.Equal(t, "GEMINI_API_KEY", cfg.Vision.APIKeyEnv)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Empty(t, cfg.BankAccounts)

	tol, err := cfg.Tolerance()
	require.NoError(t, err)
	assert.Equal(t, "0.01", tol.String())

	timeout, err := cfg.VisionTimeout()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, timeout)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("ledger:\n  fallback_header_row: 7\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Ledger.FallbackHeaderRow)
	assert.Equal(t, 2, cfg.Ledger.MinHeaderMatches)
	assert.Equal(t, "0.01", cfg.Matching.AmountTolerance)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("ledger: [unterminated"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default("Test Biz")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Test Biz")
	assert.Contains(t, contents, "fallback_header_row: 13")
	assert.Contains(t, contents, `amount_tolerance: "0.01"`)
	assert.Contains(t, contents, "api_key_env: GEMINI_API_KEY")
}

func TestExtractorOptions(t *testing.T) {
	cfg := Default("x")
	cfg.Ledger.FallbackHeaderRow = 0
	opts := cfg.ExtractorOptions()
	assert.Equal(t, 0, opts.FallbackHeaderRow)
	assert.Equal(t, 2, opts.MinHeaderMatches)
	assert.Equal(t, cfg.Ledger.HeaderKeywords, opts.HeaderKeywords)
}

func TestTolerance_Invalid(t *testing.T) {
	cfg := Default("x")
	for _, v := range []string{"", "abc", "0", "-0.01"} {
		cfg.Matching.AmountTolerance = v
		_, err := cfg.Tolerance()
		assert.Error(t, err, "tolerance %q", v)
	}
}

func TestResolve(t *testing.T) {
	assert.Equal(t, filepath.Join("/srv/acme", "ledger"), Resolve("/srv/acme", "ledger"))
	assert.Equal(t, "/var/lib/receipts.db", Resolve("/srv/acme", "/var/lib/receipts.db"))
}

func TestKnowsAccount(t *testing.T) {
	cfg := Default("x")
	assert.True(t, cfg.KnowsAccount("123"))

	cfg.BankAccounts = []BankAccount{{Name: "Main", Number: "1015123456701"}}
	assert.True(t, cfg.KnowsAccount("1015123456701"))
	assert.True(t, cfg.KnowsAccount(""))
	assert.False(t, cfg.KnowsAccount("999"))
}
