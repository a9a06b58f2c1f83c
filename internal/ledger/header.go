package ledger

import (
	"fmt"
	"strings"
)

// HeaderStrategy locates the header row of a statement's transaction table.
// Locate returns ok=false when the strategy has no opinion.
type HeaderStrategy interface {
	Name() string
	Locate(rows [][]string) (index int, ok bool)
}

// DefaultHeaderKeywords are the column titles bank exports commonly use.
var DefaultHeaderKeywords = []string{"date", "description", "debit", "credit", "balance"}

// KeywordHeader picks the first row mentioning at least MinMatches keywords.
type KeywordHeader struct {
	Keywords   []string
	MinMatches int
}

// Name returns the strategy name.
func (h KeywordHeader) Name() string { return "keyword" }

// Locate scans rows top to bottom for the keyword threshold.
func (h KeywordHeader) Locate(rows [][]string) (int, bool) {
	for i, row := range rows {
		if h.matches(row) >= h.MinMatches {
			return i, true
		}
	}
	return 0, false
}

func (h KeywordHeader) matches(row []string) int {
	lowered := make([]string, len(row))
	for i, cell := range row {
		lowered[i] = strings.ToLower(cell)
	}
	n := 0
	for _, kw := range h.Keywords {
		kw = strings.ToLower(kw)
		for _, cell := range lowered {
			if strings.Contains(cell, kw) {
				n++
				break
			}
		}
	}
	return n
}

// DatePatternHeader treats the row before the first dated row as the header.
type DatePatternHeader struct{}

// Name returns the strategy name.
func (DatePatternHeader) Name() string { return "date-pattern" }

// Locate finds the first row holding a D/M/YYYY token.
func (DatePatternHeader) Locate(rows [][]string) (int, bool) {
	for i, row := range rows {
		for _, cell := range row {
			if HasDateToken(cell) {
				if i == 0 {
					return 0, false
				}
				return i - 1, true
			}
		}
	}
	return 0, false
}

// FixedRowHeader assumes the header sits at a configured 1-based row.
// It always has an opinion, so it belongs at the end of the chain.
type FixedRowHeader struct {
	Row int
}

// Name returns the strategy name.
func (h FixedRowHeader) Name() string { return fmt.Sprintf("fixed-row-%d", h.Row) }

// Locate returns the configured row.
func (h FixedRowHeader) Locate(rows [][]string) (int, bool) {
	if h.Row < 1 {
		return 0, false
	}
	return h.Row - 1, true
}

// Degraded marks the fixed row as a guess rather than a detection.
func (FixedRowHeader) Degraded() bool { return true }

// degradedStrategy is implemented by strategies whose answer is a guess.
type degradedStrategy interface {
	Degraded() bool
}

func isDegraded(s HeaderStrategy) bool {
	d, ok := s.(degradedStrategy)
	return ok && d.Degraded()
}
