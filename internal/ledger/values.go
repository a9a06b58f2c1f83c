package ledger

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// dateToken finds D/M/YYYY-shaped dates anywhere in a cell.
var dateToken = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`)

// Day-first layouts; statements and receipts use DD/MM/YYYY.
var dateLayouts = []string{
	"2/1/2006",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2-Jan-2006",
	"2/Jan/2006",
	"2 Jan 2006",
	"2-1-2006",
	"2.1.2006",
}

// Excel serial day numbers between 1927 and 2119.
const (
	minExcelSerial = 10000
	maxExcelSerial = 80000
)

// HasDateToken reports whether s contains a D/M/YYYY date.
func HasDateToken(s string) bool {
	return dateToken.MatchString(s)
}

// ParseDate parses a statement or receipt date. The boolean is false when
// the text is empty or in no recognised form.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= minExcelSerial && serial <= maxExcelSerial {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return dateOnly(t), true
		}
	}
	return time.Time{}, false
}

// ParseAmount parses a money cell such as "5,000.00" or "AED 1,250".
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := cleanAmount(s)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d, nil
}

// IsNumeric reports whether the cell holds a parseable amount.
func IsNumeric(s string) bool {
	_, err := ParseAmount(s)
	return err == nil
}

func cleanAmount(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 3 && strings.EqualFold(s[:3], "AED") {
		s = s[3:]
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
