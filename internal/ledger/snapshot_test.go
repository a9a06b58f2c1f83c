package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cleared-dev/depositmatch/internal/model"
)

func TestSnapshotStore_RoundTrip(t *testing.T) {
	table, _, err := NewExtractor(DefaultOptions()).Extract(statementSheet())
	require.NoError(t, err)

	store := NewSnapshotStore(filepath.Join(t.TempDir(), "ledger"))
	require.NoError(t, store.Save(table, Upload{Name: "March.XLSX", Data: []byte("raw workbook bytes")}))

	original, err := os.ReadFile(filepath.Join(store.Dir, "transactions_database.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, "raw workbook bytes", string(original))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Description", "Credit", "Value Date", "Debit", "Balance", "Source Row"}, loaded.Columns)
	require.Len(t, loaded.Transactions, len(table.Transactions))

	for i, want := range table.Transactions {
		got := loaded.Transactions[i]
		assert.Equal(t, want.Description, got.Description)
		assert.Equal(t, want.RawRowIndex, got.RawRowIndex)
		assert.Equal(t, want.Date, got.Date)
		assert.True(t, want.Credit.Equal(got.Credit), "row %d credit %s != %s", i, want.Credit, got.Credit)
		assert.Equal(t, want.Issue != "", got.Issue != "", "row %d issue", i)
	}
	assert.Equal(t, "1,200.00", loaded.Transactions[1].Values[4])
}

func TestSnapshotStore_RoundTripWithoutCreditColumn(t *testing.T) {
	sheet := model.RawSheet{Rows: [][]string{
		{"Date", "Description", "Reference"},
		{"31/03/2025", "CASH DEPOSIT REF.-E4010262250107773 BRANCH", "CHQ-1"},
	}}
	table, report, err := NewExtractor(DefaultOptions()).Extract(sheet)
	require.NoError(t, err)
	require.NotContains(t, report.Columns, RoleCredit)
	require.Len(t, table.Transactions, 1)
	require.Equal(t, "no credit column", table.Transactions[0].Issue)

	store := NewSnapshotStore(t.TempDir())
	require.NoError(t, store.Save(table, Upload{}))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.NotContains(t, loaded.Columns, "Credit")
	require.Len(t, loaded.Transactions, 1)
	assert.NotEmpty(t, loaded.Transactions[0].Issue, "a row without a credit must not reload as a zero credit")
	assert.True(t, loaded.Transactions[0].Credit.IsZero())
}

func TestSnapshotStore_LoadMissing(t *testing.T) {
	store := NewSnapshotStore(t.TempDir())
	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSnapshotStore_LoadCorrupt(t *testing.T) {
	store := NewSnapshotStore(t.TempDir())
	require.NoError(t, os.WriteFile(store.Path(), []byte("not a workbook"), 0o644))
	_, err := store.Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSnapshot)
}

func writeWorkbook(t *testing.T, path string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &rows[i]))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestSnapshotStore_LoadAmountFallback(t *testing.T) {
	store := NewSnapshotStore(t.TempDir())
	writeWorkbook(t, store.Path(), [][]interface{}{
		{"Date", "Description", "Debit", "Balance", "Deposit Amt"},
		{"31/03/2025", "SDM DEPOSIT REF.-E1", "", 900, 750},
		{"01/04/2025", "ATM WITHDRAWAL", 100, 800, ""},
	})

	table, err := store.Load()
	require.NoError(t, err)
	require.Len(t, table.Transactions, 2)
	assert.Equal(t, "750.00", table.Transactions[0].Credit.StringFixed(2))
	assert.Empty(t, table.Transactions[0].Issue)
	assert.Equal(t, 1, table.Transactions[0].RawRowIndex)
	assert.NotEmpty(t, table.Transactions[1].Issue)
}

func TestSnapshotStore_LoadExactAmountColumn(t *testing.T) {
	store := NewSnapshotStore(t.TempDir())
	writeWorkbook(t, store.Path(), [][]interface{}{
		{"Description", "Amount", "Date"},
		{"CASH REF.-E42", "1,250.50", "2025-03-31"},
	})

	table, err := store.Load()
	require.NoError(t, err)
	require.Len(t, table.Transactions, 1)
	assert.Equal(t, "1250.50", table.Transactions[0].Credit.StringFixed(2))
	assert.True(t, table.Transactions[0].HasDate())
}

func TestSnapshotStore_LoadWithoutDescription(t *testing.T) {
	store := NewSnapshotStore(t.TempDir())
	writeWorkbook(t, store.Path(), [][]interface{}{{"Date", "Credit"}, {"31/03/2025", 10}})
	_, err := store.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Description column")
}
