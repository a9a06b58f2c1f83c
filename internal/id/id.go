// Package id formats and parses receipt approval IDs.
package id

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// approvalPrefix starts every approval ID.
const approvalPrefix = "APR-"

// suffixLen is the number of hex characters taken from a random UUID.
const suffixLen = 8

// NewApprovalID returns an ID like "APR-1743400000-9f86d081" for a receipt
// submitted at now.
func NewApprovalID(now time.Time) string {
	return FormatApprovalID(now, uuid.NewString())
}

// FormatApprovalID builds an approval ID from a timestamp and a UUID string.
func FormatApprovalID(now time.Time, u string) string {
	hex := strings.ReplaceAll(u, "-", "")
	if len(hex) > suffixLen {
		hex = hex[:suffixLen]
	}
	return fmt.Sprintf("%s%d-%s", approvalPrefix, now.Unix(), hex)
}

// ParseApprovalID returns the submission time encoded in an approval ID.
func ParseApprovalID(id string) (time.Time, error) {
	rest, ok := strings.CutPrefix(id, approvalPrefix)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid approval ID %q: missing %s prefix", id, approvalPrefix)
	}
	ts, suffix, ok := strings.Cut(rest, "-")
	if !ok || len(suffix) != suffixLen {
		return time.Time{}, fmt.Errorf("invalid approval ID format: %q", id)
	}
	for _, c := range suffix {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return time.Time{}, fmt.Errorf("invalid suffix in approval ID %q", id)
		}
	}
	secs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp in approval ID %q: %w", id, err)
	}
	return time.Unix(secs, 0).UTC(), nil
}

// IsApprovalID reports whether s is a well-formed approval ID.
func IsApprovalID(s string) bool {
	_, err := ParseApprovalID(s)
	return err == nil
}
