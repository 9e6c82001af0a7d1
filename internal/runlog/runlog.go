// Package runlog keeps the append-only history of audit runs.
package runlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is one row in the run history.
type Entry struct {
	Timestamp     time.Time
	RunID         string
	LogDir        string
	Events        int
	LedgerEntries int
	Anomalies     int
	Mismatches    int
	SummaryPath   string
}

// Header is the CSV header for audit-log.csv.
const Header = "timestamp,run_id,log_dir,events,ledger_entries,anomalies,mismatches,summary_path"

// FileName is the history file inside the output directory.
const FileName = "audit-log.csv"

const (
	numFields      = 8
	colTimestamp   = 0
	colRunID       = 1
	colLogDir      = 2
	colEvents      = 3
	colLedger      = 4
	colAnomalies   = 5
	colMismatches  = 6
	colSummaryPath = 7
)

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colRunID] = e.RunID
	row[colLogDir] = e.LogDir
	row[colEvents] = strconv.Itoa(e.Events)
	row[colLedger] = strconv.Itoa(e.LedgerEntries)
	row[colAnomalies] = strconv.Itoa(e.Anomalies)
	row[colMismatches] = strconv.Itoa(e.Mismatches)
	row[colSummaryPath] = e.SummaryPath
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
	if _, err := uuid.Parse(record[colRunID]); err != nil {
		return Entry{}, fmt.Errorf("parsing run_id %q: %w", record[colRunID], err)
	}

	counts := make([]int, 0, 4)
	for _, col := range []int{colEvents, colLedger, colAnomalies, colMismatches} {
		n, err := strconv.Atoi(record[col])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing count %q: %w", record[col], err)
		}
		counts = append(counts, n)
	}

	return Entry{
		Timestamp:     ts,
		RunID:         record[colRunID],
		LogDir:        record[colLogDir],
		Events:        counts[0],
		LedgerEntries: counts[1],
		Anomalies:     counts[2],
		Mismatches:    counts[3],
		SummaryPath:   record[colSummaryPath],
	}, nil
}

// Append writes entries to <outDir>/audit-log.csv, creating the file and
// header if needed.
func Append(outDir string, entries []Entry) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	path := filepath.Join(outDir, FileName)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
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

// Read returns all entries from <outDir>/audit-log.csv.
// Returns an empty slice if the file does not exist.
func Read(outDir string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(outDir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading run log CSV: %w", err)
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
