package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/cleared-dev/depositmatch/internal/model"
)

const (
	// SnapshotFile is the normalized ledger table.
	SnapshotFile = "processed_transactions.xlsx"
	// originalBase is the stem of the verbatim copy of the last upload.
	originalBase = "transactions_database"
)

// ErrNoSnapshot means no ledger has been uploaded yet.
var ErrNoSnapshot = errors.New("no ledger snapshot")

// Upload is the statement file a snapshot was built from.
type Upload struct {
	Name string
	Data []byte
}

// Amount columns tried by exact name when reading a snapshot.
var amountColumns = []string{"Credit", "Amount", "Deposit"}

// Columns never used as the per-row amount fallback.
var nonAmountColumns = []string{
	model.ColumnDate, model.ColumnDescription, "Debit", "Balance", model.ColumnSourceRow,
}

// SnapshotStore persists the ledger snapshot under Dir.
type SnapshotStore struct {
	Dir string
}

// NewSnapshotStore returns a store rooted at dir.
func NewSnapshotStore(dir string) *SnapshotStore {
	return &SnapshotStore{Dir: dir}
}

// Path returns the snapshot workbook path.
func (s *SnapshotStore) Path() string {
	return filepath.Join(s.Dir, SnapshotFile)
}

// OriginalPath returns where the verbatim upload named name is kept.
func (s *SnapshotStore) OriginalPath(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".xlsx"
	}
	return filepath.Join(s.Dir, originalBase+ext)
}

// Save writes the snapshot workbook and, when src carries data, a verbatim
// copy of the uploaded statement.
func (s *SnapshotStore) Save(table *model.TransactionTable, src Upload) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("creating ledger dir: %w", err)
	}
	if len(src.Data) > 0 {
		if err := os.WriteFile(s.OriginalPath(src.Name), src.Data, 0o644); err != nil {
			return fmt.Errorf("writing original statement: %w", err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	// Without a credit column there is no Credit header, so a reload falls
	// back to per-row amounts instead of reading every row as zero.
	hasCredit := indexOf(table.Columns, model.ColumnCredit) >= 0
	extras := extraColumns(table.Columns)
	header := []interface{}{model.ColumnDate, model.ColumnDescription}
	if hasCredit {
		header = append(header, model.ColumnCredit)
	}
	for _, i := range extras {
		header = append(header, table.Columns[i])
	}
	header = append(header, model.ColumnSourceRow)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing snapshot header: %w", err)
	}

	for n, txn := range table.Transactions {
		row := []interface{}{txn.DateText, txn.Description}
		if hasCredit {
			row = append(row, creditCell(txn))
		}
		for _, i := range extras {
			v := ""
			if i < len(txn.Values) {
				v = txn.Values[i]
			}
			row = append(row, v)
		}
		row = append(row, txn.RawRowIndex)
		cell, err := excelize.CoordinatesToCellName(1, n+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing snapshot row %d: %w", n+2, err)
		}
	}

	if err := f.SaveAs(s.Path()); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// creditCell keeps an unusable credit as text so reloading reports the same issue.
func creditCell(txn model.Transaction) interface{} {
	if txn.Issue != "" && txn.CreditText != "" {
		return txn.CreditText
	}
	return txn.Credit.InexactFloat64()
}

func extraColumns(columns []string) []int {
	var out []int
	for i, c := range columns {
		switch c {
		case model.ColumnDate, model.ColumnDescription, model.ColumnCredit, model.ColumnSourceRow:
			continue
		}
		out = append(out, i)
	}
	return out
}

// Load reads the snapshot back. It returns ErrNoSnapshot when nothing has
// been saved.
func (s *SnapshotStore) Load() (*model.TransactionTable, error) {
	path := s.Path()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("checking snapshot: %w", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("reading snapshot rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("snapshot %s has no header row", path)
	}
	return parseSnapshot(rows)
}

func parseSnapshot(rows [][]string) (*model.TransactionTable, error) {
	header := rows[0]
	width := len(header)
	for _, row := range rows[1:] {
		width = max(width, len(row))
	}
	columns := padRow(header, width)
	for i := range columns {
		columns[i] = strings.TrimSpace(columns[i])
	}

	descCol := indexOf(columns, model.ColumnDescription)
	if descCol < 0 {
		return nil, fmt.Errorf("snapshot has no %s column", model.ColumnDescription)
	}
	dateCol := indexOf(columns, model.ColumnDate)
	sourceCol := indexOf(columns, model.ColumnSourceRow)
	amountCol := -1
	for _, name := range amountColumns {
		if amountCol = indexOf(columns, name); amountCol >= 0 {
			break
		}
	}

	table := &model.TransactionTable{Columns: columns}
	for n, raw := range rows[1:] {
		values := padRow(raw, width)
		desc := strings.TrimSpace(values[descCol])
		if desc == "" {
			continue
		}
		txn := model.Transaction{
			Description: desc,
			Credit:      decimal.Zero,
			RawRowIndex: n + 1,
			Values:      values,
		}
		if sourceCol >= 0 {
			if idx, err := strconv.Atoi(strings.TrimSpace(values[sourceCol])); err == nil {
				txn.RawRowIndex = idx
			}
		}
		if dateCol >= 0 {
			txn.DateText = strings.TrimSpace(values[dateCol])
			if d, ok := ParseDate(txn.DateText); ok {
				txn.Date = d
			}
		}
		if amountCol >= 0 {
			txn.CreditText = strings.TrimSpace(values[amountCol])
			if txn.CreditText != "" {
				amount, err := ParseAmount(txn.CreditText)
				if err != nil {
					txn.Issue = fmt.Sprintf("unparseable credit %q", txn.CreditText)
				} else {
					txn.Credit = amount
				}
			}
		} else if !fallbackAmount(columns, values, &txn) {
			txn.Issue = "no positive amount in row"
		}
		table.Transactions = append(table.Transactions, txn)
	}
	return table, nil
}

// fallbackAmount takes the first positive number outside the excluded columns.
func fallbackAmount(columns, values []string, txn *model.Transaction) bool {
	for i, name := range columns {
		if containsFold(nonAmountColumns, name) {
			continue
		}
		amount, err := ParseAmount(values[i])
		if err != nil || !amount.IsPositive() {
			continue
		}
		txn.Credit = amount
		txn.CreditText = strings.TrimSpace(values[i])
		return true
	}
	return false
}

func indexOf(columns []string, name string) int {
	for i, c := range columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
