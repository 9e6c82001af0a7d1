// Package report renders an audit run to disk: CSV tables for every view
// of the ledger and a markdown summary for humans.
package report

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cleared-dev/ledgeraudit/internal/ledger"
	"github.com/cleared-dev/ledgeraudit/internal/model"
)

// RunStampFormat names the per-run output files.
const RunStampFormat = "20060102-150405"

// Table names, used as file name prefixes.
const (
	TableLedger         = "ledger"
	TableReconciliation = "reconciliation"
	TableByUser         = "by_user"
	TableBySource       = "by_source"
	TableOverdrafts     = "overdrafts"
	TableAnomalies      = "anomalies"
	TableRaw            = "raw_parsed"
	TableSummary        = "summary"
)

// RunStamp formats t for output file names.
func RunStamp(t time.Time) string { return t.UTC().Format(RunStampFormat) }

// Input is everything one run produced.
type Input struct {
	RunStamp       string
	RunID          string
	LogDir         string
	Ledger         []model.LedgerEntry
	Reconciliation []model.ReconciliationRow
	Anomalies      []model.AnomalyRecord
	Summary        ledger.Summary
}

// Options controls what Write produces.
type Options struct {
	// LedgerColumns restricts the ledger table; nil writes every column.
	LedgerColumns []string
	// RawCSV also writes raw_parsed.csv with every ledger column.
	RawCSV bool
	// Timestamped appends the run stamp to file names.
	Timestamped bool
	Logger      *slog.Logger
}

// Result lists the files Write created, keyed by table name.
type Result struct {
	Dir      string
	Files    map[string]string
	Markdown string
}

// SummaryPath returns the markdown summary path.
func (r Result) SummaryPath() string { return r.Files[TableSummary] }

// Write renders every table into dir, which must exist.
func Write(dir string, in Input, opts Options) (Result, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cols := opts.LedgerColumns
	if cols == nil {
		cols = model.LedgerColumns
	}

	res := Result{Dir: dir, Files: make(map[string]string)}
	name := func(table, ext string) string {
		if opts.Timestamped && in.RunStamp != "" {
			return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", table, in.RunStamp, ext))
		}
		return filepath.Join(dir, table+"."+ext)
	}

	var overdrafts []model.LedgerEntry
	for _, e := range in.Ledger {
		if e.Overdraft {
			overdrafts = append(overdrafts, e)
		}
	}

	tables := []struct {
		table string
		write func(io.Writer) error
	}{
		{TableLedger, func(w io.Writer) error { return WriteLedger(w, in.Ledger, cols) }},
		{TableReconciliation, func(w io.Writer) error { return WriteReconciliation(w, in.Reconciliation) }},
		{TableByUser, func(w io.Writer) error { return WriteByUser(w, in.Summary.ByUser) }},
		{TableBySource, func(w io.Writer) error { return WriteBySource(w, in.Summary.BySource) }},
		{TableOverdrafts, func(w io.Writer) error { return WriteLedger(w, overdrafts, model.LedgerColumns) }},
		{TableAnomalies, func(w io.Writer) error { return WriteAnomalies(w, in.Anomalies) }},
	}
	for _, t := range tables {
		path := name(t.table, "csv")
		if err := writeFile(path, t.write); err != nil {
			return res, fmt.Errorf("writing %s: %w", t.table, err)
		}
		res.Files[t.table] = path
	}

	if opts.RawCSV {
		path := filepath.Join(dir, TableRaw+".csv")
		if err := writeFile(path, func(w io.Writer) error { return WriteLedger(w, in.Ledger, model.LedgerColumns) }); err != nil {
			return res, fmt.Errorf("writing %s: %w", TableRaw, err)
		}
		res.Files[TableRaw] = path
		log.Info("wrote raw parsed CSV", "path", path)
	}

	md, err := RenderSummary(in)
	if err != nil {
		return res, err
	}
	path := name(TableSummary, "md")
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return res, fmt.Errorf("writing summary: %w", err)
	}
	res.Files[TableSummary] = path
	res.Markdown = md

	log.Info("report written", "dir", dir, "files", len(res.Files))
	return res, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
