// Package ledger turns bank-statement spreadsheets into a normalized
// transaction table and persists it as the ledger snapshot.
package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/depositmatch/internal/model"
)

var (
	// ErrNotTabular means no header row could be placed in the sheet.
	ErrNotTabular = errors.New("sheet is not tabular")
	// ErrNoTransactions means the table had no row with a description.
	ErrNoTransactions = errors.New("no transaction rows found")
)

// MissingColumnsError names the required columns that could not be identified.
// Err, when set, is the structural problem behind the missing columns.
type MissingColumnsError struct {
	Missing []string
	Err     error
}

func (e *MissingColumnsError) Error() string {
	msg := "missing required columns: " + strings.Join(e.Missing, ", ")
	if e.Err != nil {
		msg += " (" + e.Err.Error() + ")"
	}
	return msg
}

func (e *MissingColumnsError) Unwrap() error { return e.Err }

// ExtractorOptions tunes header and column detection.
type ExtractorOptions struct {
	HeaderKeywords       []string
	MinHeaderMatches     int
	FallbackHeaderRow    int // 1-based; 0 disables the fixed-row fallback
	DescriptionMinLength int
}

// DefaultOptions returns the detection settings that fit common bank exports.
func DefaultOptions() ExtractorOptions {
	return ExtractorOptions{
		HeaderKeywords:       DefaultHeaderKeywords,
		MinHeaderMatches:     2,
		FallbackHeaderRow:    13,
		DescriptionMinLength: 15,
	}
}

// ColumnMatch records which sheet column was assigned to a role and how.
type ColumnMatch struct {
	Index    int
	Source   string // column name before renaming
	Strategy string
}

// Report describes how a sheet was read. It is returned alongside failures
// so callers can show what was tried.
type Report struct {
	Sheet          string
	HeaderRow      int // 0-based
	HeaderStrategy string
	Degraded       bool
	Warnings       []string
	Columns        map[Role]ColumnMatch
	SkippedRows    []int // 0-based sheet rows without a description
}

// Extractor locates the transaction table inside a sheet. The zero value
// is not usable; build one with NewExtractor.
type Extractor struct {
	Headers           []HeaderStrategy
	DateColumn        []ColumnStrategy
	DescriptionColumn []ColumnStrategy
	CreditColumn      []ColumnStrategy
}

// NewExtractor builds the standard strategy chains from opts.
func NewExtractor(opts ExtractorOptions) *Extractor {
	headers := []HeaderStrategy{
		KeywordHeader{Keywords: opts.HeaderKeywords, MinMatches: opts.MinHeaderMatches},
		DatePatternHeader{},
	}
	if opts.FallbackHeaderRow > 0 {
		headers = append(headers, FixedRowHeader{Row: opts.FallbackHeaderRow})
	}
	return &Extractor{
		Headers:           headers,
		DateColumn:        []ColumnStrategy{ByName{Keyword: "date"}, FirstValueDate{}},
		DescriptionColumn: []ColumnStrategy{ByName{Keyword: "description"}, FirstValueLongText{MinLength: opts.DescriptionMinLength}},
		CreditColumn:      []ColumnStrategy{ByName{Keyword: "credit"}, NumericColumn{}},
	}
}

type dataRow struct {
	index  int
	values []string
}

// Extract normalizes sheet into a transaction table. The report is non-nil
// whenever a header row was chosen, including on failure.
func (e *Extractor) Extract(sheet model.RawSheet) (*model.TransactionTable, *Report, error) {
	if len(sheet.Rows) == 0 {
		return nil, nil, fmt.Errorf("%w: sheet %q is empty", ErrNotTabular, sheet.Name)
	}

	report := &Report{Sheet: sheet.Name, Columns: make(map[Role]ColumnMatch)}
	found := false
	for _, s := range e.Headers {
		idx, ok := s.Locate(sheet.Rows)
		if !ok {
			continue
		}
		report.HeaderRow = idx
		report.HeaderStrategy = s.Name()
		if isDegraded(s) {
			report.Degraded = true
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("no header row detected; assuming row %d", idx+1))
		}
		found = true
		break
	}
	if !found {
		return nil, report, fmt.Errorf("%w: no header row detected", ErrNotTabular)
	}
	if report.HeaderRow >= len(sheet.Rows) {
		err := fmt.Errorf("%w: header row %d is past the last row %d",
			ErrNotTabular, report.HeaderRow+1, len(sheet.Rows))
		return nil, report, &MissingColumnsError{
			Missing: []string{model.ColumnDate, model.ColumnDescription},
			Err:     err,
		}
	}

	header := sheet.Rows[report.HeaderRow]
	width := len(header)
	for _, row := range sheet.Rows[report.HeaderRow+1:] {
		width = max(width, len(row))
	}

	names := make([]string, width)
	for i := range names {
		if i < len(header) {
			names[i] = strings.TrimSpace(header[i])
		}
		if names[i] == "" {
			names[i] = fmt.Sprintf("Column_%d", i)
		}
	}

	var data []dataRow
	for i := report.HeaderRow + 1; i < len(sheet.Rows); i++ {
		values := padRow(sheet.Rows[i], width)
		if isEmptyRow(values) {
			continue
		}
		data = append(data, dataRow{index: i, values: values})
	}

	view := ColumnView{Names: names, Rows: make([][]string, len(data)), Taken: make(map[int]bool)}
	for i, r := range data {
		view.Rows[i] = r.values
	}

	var missing []string
	resolve := func(role Role, chain []ColumnStrategy) (int, bool) {
		col, strategy, ok := resolveRole(chain, view)
		if !ok {
			return 0, false
		}
		view.Taken[col] = true
		report.Columns[role] = ColumnMatch{Index: col, Source: names[col], Strategy: strategy}
		return col, true
	}
	dateCol, ok := resolve(RoleDate, e.DateColumn)
	if !ok {
		missing = append(missing, model.ColumnDate)
	}
	descCol, ok := resolve(RoleDescription, e.DescriptionColumn)
	if !ok {
		missing = append(missing, model.ColumnDescription)
	}
	if len(missing) > 0 {
		return nil, report, &MissingColumnsError{Missing: missing}
	}
	creditCol, hasCredit := resolve(RoleCredit, e.CreditColumn)
	if !hasCredit {
		report.Warnings = append(report.Warnings, "no credit column identified; amounts default to 0")
	}

	names[dateCol] = model.ColumnDate
	names[descCol] = model.ColumnDescription
	if hasCredit {
		names[creditCol] = model.ColumnCredit
	}

	table := &model.TransactionTable{Columns: names}
	for _, r := range data {
		desc := strings.TrimSpace(r.values[descCol])
		if desc == "" {
			report.SkippedRows = append(report.SkippedRows, r.index)
			continue
		}
		txn := model.Transaction{
			DateText:    strings.TrimSpace(r.values[dateCol]),
			Description: desc,
			Credit:      decimal.Zero,
			RawRowIndex: r.index,
			Values:      r.values,
		}
		if d, ok := ParseDate(txn.DateText); ok {
			txn.Date = d
		}
		if hasCredit {
			txn.CreditText = strings.TrimSpace(r.values[creditCol])
			if txn.CreditText != "" {
				amount, err := ParseAmount(txn.CreditText)
				if err != nil {
					txn.Issue = fmt.Sprintf("unparseable credit %q", txn.CreditText)
				} else {
					txn.Credit = amount
				}
			}
		} else {
			txn.Issue = "no credit column"
		}
		table.Transactions = append(table.Transactions, txn)
	}
	if len(table.Transactions) == 0 {
		return nil, report, ErrNoTransactions
	}
	return table, report, nil
}

func padRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
