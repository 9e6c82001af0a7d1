// Package metrics provides Prometheus instrumentation for an audit run.
//
// Each run owns its registry, so nothing leaks between runs or tests.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cleared-dev/ledgeraudit/internal/model"
)

// Metrics holds the collectors of one run.
type Metrics struct {
	reg *prometheus.Registry

	// Events counts parsed events, partitioned by event type.
	Events *prometheus.CounterVec
	// LedgerEntries counts reconciled balance-sync entries.
	LedgerEntries prometheus.Counter
	// Mismatches counts entries whose reported balance disagrees.
	Mismatches prometheus.Counter
	// ContinuityBreaks counts entries that do not open on the previous close.
	ContinuityBreaks prometheus.Counter
	// Overdrafts counts entries with a negative balance.
	Overdrafts prometheus.Counter
	// Anomalies counts detector flags by anomaly type.
	Anomalies *prometheus.CounterVec
	// StageDuration records how long each pipeline stage took.
	StageDuration *prometheus.GaugeVec
	// LastRun is the unix time the run finished.
	LastRun prometheus.Gauge
}

// New registers a fresh set of collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgeraudit_events_total",
			Help: "Events parsed from the service logs",
		}, []string{"event_type"}),
		LedgerEntries: f.NewCounter(prometheus.CounterOpts{
			Name: "ledgeraudit_ledger_entries_total",
			Help: "Balance-sync entries reconciled",
		}),
		Mismatches: f.NewCounter(prometheus.CounterOpts{
			Name: "ledgeraudit_balance_mismatches_total",
			Help: "Entries whose reported new balance differs from the expected one",
		}),
		ContinuityBreaks: f.NewCounter(prometheus.CounterOpts{
			Name: "ledgeraudit_continuity_breaks_total",
			Help: "Entries whose old balance differs from the previous new balance",
		}),
		Overdrafts: f.NewCounter(prometheus.CounterOpts{
			Name: "ledgeraudit_overdrafts_total",
			Help: "Entries with a negative expected or actual balance",
		}),
		Anomalies: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgeraudit_anomalies_total",
			Help: "Anomaly flags raised, by anomaly type",
		}, []string{"anomaly_type"}),
		StageDuration: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ledgeraudit_stage_duration_seconds",
			Help: "Wall time of each pipeline stage",
		}, []string{"stage"}),
		LastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "ledgeraudit_last_run_timestamp_seconds",
			Help: "Unix time the last audit run finished",
		}),
	}
}

// Registry returns the run's registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ObserveEvents counts events by type.
func (m *Metrics) ObserveEvents(events []model.Event) {
	for _, e := range events {
		m.Events.WithLabelValues(e.EventType).Inc()
	}
}

// ObserveLedger counts entries and their flags.
func (m *Metrics) ObserveLedger(entries []model.LedgerEntry) {
	m.LedgerEntries.Add(float64(len(entries)))
	for _, e := range entries {
		if e.BalanceMismatch {
			m.Mismatches.Inc()
		}
		if e.ContinuityBreak {
			m.ContinuityBreaks.Inc()
		}
		if e.Overdraft {
			m.Overdrafts.Inc()
		}
	}
}

// ObserveAnomalies counts flags by type. Every type is exported, so absent
// types read as zero rather than missing.
func (m *Metrics) ObserveAnomalies(records []model.AnomalyRecord) {
	for _, t := range model.AnomalyTypes {
		m.Anomalies.WithLabelValues(string(t))
	}
	for _, r := range records {
		m.Anomalies.WithLabelValues(string(r.AnomalyType)).Inc()
	}
}

// ObserveStage records the duration of a named stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Set(d.Seconds())
}

// Finish stamps the completion time.
func (m *Metrics) Finish(t time.Time) {
	m.LastRun.Set(float64(t.Unix()))
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
