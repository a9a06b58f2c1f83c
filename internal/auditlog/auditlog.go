// Package auditlog keeps the append-only CSV trail of receipt workflow
// and ledger events.
package auditlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Actions recorded in the audit log.
const (
	ActionSubmit       = "submit"
	ActionApprove      = "approve"
	ActionReject       = "reject"
	ActionLedgerImport = "ledger_import"
)

// Entry is one row in the audit log.
type Entry struct {
	Timestamp  time.Time
	Actor      string
	Action     string
	ApprovalID string
	Reference  string
	Details    string
}

// Header is the CSV header for audit-log.csv.
const Header = "timestamp,actor,action,approval_id,reference,details"

const (
	numFields     = 6
	logDir        = "logs"
	logFile       = "logs/audit-log.csv"
	colTimestamp  = 0
	colActor      = 1
	colAction     = 2
	colApprovalID = 3
	colReference  = 4
	colDetails    = 5
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colActor] = e.Actor
	row[colAction] = e.Action
	row[colApprovalID] = e.ApprovalID
	row[colReference] = e.Reference
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	return Entry{
		Timestamp:  ts,
		Actor:      record[colActor],
		Action:     record[colAction],
		ApprovalID: record[colApprovalID],
		Reference:  record[colReference],
		Details:    record[colDetails],
	}, nil
}

// Log appends to and reads <root>/logs/audit-log.csv.
type Log struct {
	Root string
}

// New returns the audit log of the project at root.
func New(root string) *Log {
	return &Log{Root: root}
}

// Path returns the CSV file location.
func (l *Log) Path() string {
	return filepath.Join(l.Root, logFile)
}

// Append writes entries, creating the file and header if needed.
func (l *Log) Append(entries ...Entry) error {
	if err := os.MkdirAll(filepath.Join(l.Root, logDir), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := l.Path()
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries. A missing file yields no entries.
func (l *Log) Read() ([]Entry, error) {
	f, err := os.Open(l.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

// ForApproval returns the entries recorded for one approval ID.
func (l *Log) ForApproval(approvalID string) ([]Entry, error) {
	all, err := l.Read()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range all {
		if e.ApprovalID == approvalID {
			out = append(out, e)
		}
	}
	return out, nil
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
