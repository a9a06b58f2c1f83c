package match

import (
	"regexp"
	"strings"
)

var (
	// Deposit machine and branch credits: "REF.-E4010262250107773".
	depositRef = regexp.MustCompile(`REF\.-E?(\d+)`)
	// Standing orders: "S20250401".
	standingOrderRef = regexp.MustCompile(`S(\d+)`)
)

// ExtractReference returns the reference token embedded in a ledger
// description, trying the deposit pattern before the standing-order one.
func ExtractReference(description string) (string, bool) {
	if m := depositRef.FindStringSubmatch(description); m != nil {
		return m[1], true
	}
	if m := standingOrderRef.FindStringSubmatch(description); m != nil {
		return m[1], true
	}
	return "", false
}

// ReferencesCompatible reports whether either reference contains the other.
// Short tokens can match inside longer numbers.
func ReferencesCompatible(ledgerRef, receiptRef string) bool {
	ledgerRef = strings.TrimSpace(ledgerRef)
	receiptRef = strings.TrimSpace(receiptRef)
	if ledgerRef == "" || receiptRef == "" {
		return false
	}
	return strings.Contains(receiptRef, ledgerRef) || strings.Contains(ledgerRef, receiptRef)
}
