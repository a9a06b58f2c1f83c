package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Canonical column names of a normalized ledger snapshot.
const (
	ColumnDate        = "Date"
	ColumnDescription = "Description"
	ColumnCredit      = "Credit"
	ColumnSourceRow   = "Source Row"
)

// RawSheet is one worksheet as read from an uploaded file. Empty strings
// are null cells. No row is assumed to be the header.
type RawSheet struct {
	Name string
	Rows [][]string
}

// Transaction is a normalized bank statement row.
type Transaction struct {
	Date        time.Time // zero when the date cell could not be parsed
	DateText    string
	Description string
	Credit      decimal.Decimal // zero when empty or unparseable
	CreditText  string
	Issue       string // set when the amount cell is present but unusable
	RawRowIndex int    // 0-based row in the source sheet
	Values      []string
}

// HasDate reports whether the row carries a parsed calendar date.
func (t Transaction) HasDate() bool {
	return !t.Date.IsZero()
}

// TransactionTable is the ledger snapshot receipts are matched against.
type TransactionTable struct {
	Columns      []string
	Transactions []Transaction
}

// Len returns the number of transactions, treating a nil table as empty.
func (t *TransactionTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Transactions)
}

// SameDay compares two dates by calendar day, ignoring time and location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
