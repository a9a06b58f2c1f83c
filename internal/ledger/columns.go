package ledger

import (
	"strings"
	"unicode/utf8"

	"github.com/cleared-dev/depositmatch/internal/model"
)

// Role is a column the extractor must identify.
type Role string

const (
	RoleDate        Role = model.ColumnDate
	RoleDescription Role = model.ColumnDescription
	RoleCredit      Role = model.ColumnCredit
)

// ColumnView is the data region handed to column strategies. Rows are
// padded to len(Names). Taken marks columns already assigned to a role.
type ColumnView struct {
	Names []string
	Rows  [][]string
	Taken map[int]bool
}

// FirstValue returns the column's value in the first data row.
func (v ColumnView) FirstValue(col int) string {
	if len(v.Rows) == 0 {
		return ""
	}
	return strings.TrimSpace(v.Rows[0][col])
}

// ColumnStrategy identifies the column for a role, or has no opinion.
type ColumnStrategy interface {
	Name() string
	Resolve(v ColumnView) (col int, ok bool)
}

// ByName matches a header containing Keyword, preferring an exact match.
type ByName struct {
	Keyword string
}

// Name returns the strategy name.
func (s ByName) Name() string { return "name:" + s.Keyword }

// Resolve searches the header names.
func (s ByName) Resolve(v ColumnView) (int, bool) {
	kw := strings.ToLower(s.Keyword)
	for i, name := range v.Names {
		if !v.Taken[i] && strings.EqualFold(strings.TrimSpace(name), kw) {
			return i, true
		}
	}
	for i, name := range v.Names {
		if !v.Taken[i] && strings.Contains(strings.ToLower(name), kw) {
			return i, true
		}
	}
	return 0, false
}

// FirstValueDate picks the first column whose first value looks like D/M/YYYY.
type FirstValueDate struct{}

// Name returns the strategy name.
func (FirstValueDate) Name() string { return "first-value-date" }

// Resolve inspects first data-row values.
func (FirstValueDate) Resolve(v ColumnView) (int, bool) {
	for i := range v.Names {
		if v.Taken[i] {
			continue
		}
		if HasDateToken(v.FirstValue(i)) {
			return i, true
		}
	}
	return 0, false
}

// FirstValueLongText picks the first column whose first value is text
// longer than MinLength characters.
type FirstValueLongText struct {
	MinLength int
}

// Name returns the strategy name.
func (FirstValueLongText) Name() string { return "first-value-long-text" }

// Resolve inspects first data-row values.
func (s FirstValueLongText) Resolve(v ColumnView) (int, bool) {
	for i := range v.Names {
		if v.Taken[i] {
			continue
		}
		val := v.FirstValue(i)
		if utf8.RuneCountInString(val) > s.MinLength && !IsNumeric(val) {
			return i, true
		}
	}
	return 0, false
}

// NumericColumn picks the first column with a non-empty first value and at
// least one numeric value.
type NumericColumn struct{}

// Name returns the strategy name.
func (NumericColumn) Name() string { return "numeric-column" }

// Resolve scans whole columns.
func (NumericColumn) Resolve(v ColumnView) (int, bool) {
	for i := range v.Names {
		if v.Taken[i] || v.FirstValue(i) == "" {
			continue
		}
		for _, row := range v.Rows {
			if IsNumeric(row[i]) {
				return i, true
			}
		}
	}
	return 0, false
}

// resolveRole runs a chain and returns the first answer with the strategy
// that produced it.
func resolveRole(chain []ColumnStrategy, v ColumnView) (int, string, bool) {
	for _, s := range chain {
		if col, ok := s.Resolve(v); ok {
			return col, s.Name(), true
		}
	}
	return 0, "", false
}
