package history

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ChangeKind classifies one ledger entry.
type ChangeKind string

const (
	KindAdded    ChangeKind = "added"
	KindModified ChangeKind = "modified"
	KindRemoved  ChangeKind = "removed"
)

// Record is one row of the change ledger.
type Record struct {
	Timestamp time.Time
	Work      string
	Path      string
	Kind      ChangeKind
	Note      string
}

// Ledger is the append-only CSV change log. Rows are never mutated or
// reordered once written. Column order: timestamp, work, path, kind, note.
type Ledger struct {
	path string
}

// NewLedger creates a ledger backed by the given CSV file path.
func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// Path returns the backing file path.
func (l *Ledger) Path() string { return l.path }

// Append writes records to the end of the ledger, flushing after every row so
// an interrupted run cannot corrupt previously appended records.
func (l *Ledger) Append(records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, rec := range records {
		row := []string{
			rec.Timestamp.UTC().Format(time.RFC3339),
			rec.Work,
			rec.Path,
			string(rec.Kind),
			rec.Note,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write ledger row: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("flush ledger row: %w", err)
		}
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync ledger: %w", err)
	}
	return nil
}

// ReadAll loads every record in the ledger. A missing file returns an empty
// slice: the bootstrap case. Rows with an unexpected column count are skipped
// rather than failing the read.
func (l *Ledger) ReadAll() ([]Record, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var records []Record
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	for _, row := range rows {
		if len(row) < 4 {
			continue
		}
		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			continue
		}
		rec := Record{
			Timestamp: ts,
			Work:      row[1],
			Path:      row[2],
			Kind:      ChangeKind(row[3]),
		}
		if len(row) >= 5 {
			rec.Note = row[4]
		}
		records = append(records, rec)
	}
	return records, nil
}
