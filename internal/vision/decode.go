// Package vision extracts draft deposit receipts from receipt images.
// Service output is untrusted and always goes through Decode.
package vision

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/depositmatch/internal/ledger"
)

// ErrDecode means the service response was not a usable receipt.
var ErrDecode = errors.New("undecodable vision response")

// notMentioned is what the prompt asks the model to write for absent fields.
const notMentioned = "not mentioned"

// Extraction is a decoded receipt guess. Empty strings are absent fields.
type Extraction struct {
	DepositDate       string          `json:"deposit_date"` // DD/MM/YYYY
	Amount            decimal.Decimal `json:"amount_aed"`
	HasAmount         bool            `json:"-"`
	BankAccountNumber string          `json:"bank_account_number"`
	BankAccountName   string          `json:"bank_account_name"`
	ReferenceNumber   string          `json:"reference_number"`
}

// field accepts a JSON string, number or null.
type field string

func (f *field) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = field(s)
	case len(data) > 0 && (data[0] == '-' || (data[0] >= '0' && data[0] <= '9')):
		*f = field(data)
	default:
		return fmt.Errorf("unexpected JSON value %s", data)
	}
	return nil
}

func (f field) value() string {
	s := strings.TrimSpace(string(f))
	if strings.EqualFold(s, notMentioned) {
		return ""
	}
	return s
}

type rawExtraction struct {
	DepositDate       field `json:"deposit_date"`
	Amount            field `json:"amount_aed"`
	BankAccountNumber field `json:"bank_account_number"`
	BankAccountName   field `json:"bank_account_name"`
	ReferenceNumber   field `json:"reference_number"`
}

// Decode parses a vision response. Code fences and text around the
// outermost JSON object are tolerated; anything else is ErrDecode.
func Decode(text string) (*Extraction, error) {
	body, err := isolateJSON(text)
	if err != nil {
		return nil, err
	}

	var raw rawExtraction
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	ext := &Extraction{
		BankAccountNumber: raw.BankAccountNumber.value(),
		BankAccountName:   raw.BankAccountName.value(),
		ReferenceNumber:   raw.ReferenceNumber.value(),
		Amount:            decimal.Zero,
	}
	if s := raw.DepositDate.value(); s != "" {
		d, ok := ledger.ParseDate(s)
		if !ok {
			return nil, fmt.Errorf("%w: unreadable deposit_date %q", ErrDecode, s)
		}
		ext.DepositDate = d.Format("02/01/2006")
	}
	if s := raw.Amount.value(); s != "" {
		s = strings.NewReplacer("AED", "", "Dhs", "", "DHS", "", "د.إ", "").Replace(s)
		a, err := ledger.ParseAmount(s)
		if err != nil {
			return nil, fmt.Errorf("%w: unreadable amount_aed %q", ErrDecode, string(raw.Amount))
		}
		ext.Amount = a
		ext.HasAmount = true
	}
	if ext.DepositDate == "" && !ext.HasAmount && ext.ReferenceNumber == "" &&
		ext.BankAccountNumber == "" && ext.BankAccountName == "" {
		return nil, fmt.Errorf("%w: no receipt fields found", ErrDecode)
	}
	return ext, nil
}

// isolateJSON strips markdown fences and returns the outermost object.
func isolateJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		text = strings.TrimSpace(rest)
	}

	start := strings.Index(text, "{")
	if start == -1 {
		return "", fmt.Errorf("%w: no JSON object found in response", ErrDecode)
	}
	end := strings.LastIndex(text, "}")
	if end < start {
		return "", fmt.Errorf("%w: unterminated JSON object in response", ErrDecode)
	}
	return text[start : end+1], nil
}
