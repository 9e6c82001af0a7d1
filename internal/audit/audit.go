// Package audit runs the full pipeline: scan logs, build the ledger,
// detect anomalies, and write the report and run history.
package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cleared-dev/ledgeraudit/internal/anomaly"
	"github.com/cleared-dev/ledgeraudit/internal/config"
	"github.com/cleared-dev/ledgeraudit/internal/eventsource"
	"github.com/cleared-dev/ledgeraudit/internal/ledger"
	"github.com/cleared-dev/ledgeraudit/internal/metrics"
	"github.com/cleared-dev/ledgeraudit/internal/model"
	"github.com/cleared-dev/ledgeraudit/internal/report"
	"github.com/cleared-dev/ledgeraudit/internal/runlog"
)

// Params configures a run.
type Params struct {
	LogDir string
	OutDir string
	Config *config.Config // nil selects config.Default()
	// MetricsFile, when set, receives the run metrics in textfile format.
	MetricsFile string
	// Now is the run clock; nil uses time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Result is what a run produced.
type Result struct {
	RunID     string
	RunStamp  string
	OutDir    string
	Events    []model.Event
	Ledger    []model.LedgerEntry
	Anomalies []model.AnomalyRecord
	Summary   ledger.Summary
	Report    report.Result
	Metrics   *metrics.Metrics
}

// Mismatches counts ledger entries with a balance mismatch.
func (r *Result) Mismatches() int {
	n := 0
	for _, e := range r.Ledger {
		if e.BalanceMismatch {
			n++
		}
	}
	return n
}

// Run executes one audit.
func Run(ctx context.Context, p Params) (*Result, error) {
	if p.LogDir == "" {
		return nil, errors.New("log dir is required")
	}
	cfg := p.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Err(); err != nil {
		return nil, err
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	log := p.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	started := now()
	res := &Result{
		RunID:    runlog.NewRunID(),
		RunStamp: report.RunStamp(started),
		Metrics:  metrics.New(),
	}
	log = log.With("run_id", res.RunID)
	log.Info("starting audit", "log_dir", p.LogDir, "out", p.OutDir)

	outDir, err := report.EnsureOutDir(p.OutDir, log)
	if err != nil {
		return nil, err
	}
	res.OutDir = outDir

	stage := func(name string, fn func() error) error {
		t0 := time.Now()
		err := fn()
		res.Metrics.ObserveStage(name, time.Since(t0))
		return err
	}

	if err := stage("scan", func() error {
		var err error
		res.Events, err = eventsource.Scan(ctx, p.LogDir, eventsource.Options{Logger: log})
		return err
	}); err != nil {
		return nil, fmt.Errorf("scanning logs: %w", err)
	}
	res.Metrics.ObserveEvents(res.Events)

	_ = stage("ledger", func() error {
		res.Ledger = ledger.Build(res.Events, cfg.LedgerOptions(log))
		return nil
	})
	res.Metrics.ObserveLedger(res.Ledger)

	_ = stage("anomalies", func() error {
		res.Anomalies = anomaly.Detect(res.Ledger, cfg.DetectorOptions(log))
		return nil
	})
	res.Metrics.ObserveAnomalies(res.Anomalies)

	res.Summary = ledger.Summarize(res.Ledger)

	in := report.Input{
		RunStamp:       res.RunStamp,
		RunID:          res.RunID,
		LogDir:         p.LogDir,
		Ledger:         res.Ledger,
		Reconciliation: ledger.Reconciliation(res.Ledger),
		Anomalies:      res.Anomalies,
		Summary:        res.Summary,
	}
	opts := report.Options{
		LedgerColumns: report.LedgerColumns(cfg.Report.LedgerColumns, log),
		RawCSV:        cfg.Report.RawCSV,
		Timestamped:   cfg.Report.Timestamped,
		Logger:        log,
	}
	if err := stage("report", func() error {
		var err error
		res.Report, err = report.Write(outDir, in, opts)
		return err
	}); err != nil {
		return nil, fmt.Errorf("writing report: %w", err)
	}

	entry := runlog.Entry{
		Timestamp:     started,
		RunID:         res.RunID,
		LogDir:        p.LogDir,
		Events:        len(res.Events),
		LedgerEntries: len(res.Ledger),
		Anomalies:     len(res.Anomalies),
		Mismatches:    res.Mismatches(),
		SummaryPath:   res.Report.SummaryPath(),
	}
	if err := runlog.Append(outDir, []runlog.Entry{entry}); err != nil {
		log.Warn("failed to write run log", "error", err)
	}

	res.Metrics.Finish(now())
	if p.MetricsFile != "" {
		if err := res.Metrics.WriteTextfile(p.MetricsFile); err != nil {
			return nil, err
		}
	}

	log.Info("audit finished",
		"events", len(res.Events),
		"ledger_entries", len(res.Ledger),
		"anomalies", len(res.Anomalies),
		"mismatches", entry.Mismatches,
		"summary", entry.SummaryPath,
	)
	return res, nil
}
