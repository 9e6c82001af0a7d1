package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/cleared-dev/ledgeraudit/internal/amount"
	"github.com/cleared-dev/ledgeraudit/internal/ledger"
	"github.com/cleared-dev/ledgeraudit/internal/model"
)

// TimeFormat is how timestamps appear in every table.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ByUserHeader and BySourceHeader are the summary table headers.
var (
	ByUserHeader   = []string{"userId", "txCount", "totalDebit", "totalCredit", "overdrafts", "mismatches", "continuityBreaks"}
	BySourceHeader = []string{"source", "type", "totalAmount", "txCount"}
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeFormat)
}

// ledgerFields renders each ledger column. Computed balances are shown at
// the entry's precision; values read from the logs are shown as parsed.
var ledgerFields = map[string]func(model.LedgerEntry) string{
	"timestamp":           func(e model.LedgerEntry) string { return formatTime(e.Timestamp) },
	"userId":              func(e model.LedgerEntry) string { return e.UserID },
	"id":                  func(e model.LedgerEntry) string { return e.ID },
	"messageId":           func(e model.LedgerEntry) string { return e.MessageID },
	"eventType":           func(e model.LedgerEntry) string { return e.EventType },
	"type":                func(e model.LedgerEntry) string { return e.Type },
	"source":              func(e model.LedgerEntry) string { return e.Source },
	"action":              func(e model.LedgerEntry) string { return e.Action },
	"currency":            func(e model.LedgerEntry) string { return e.Currency },
	"amount":              func(e model.LedgerEntry) string { return amount.Format(e.Amount) },
	"vat":                 func(e model.LedgerEntry) string { return amount.Format(e.VAT) },
	"oldBalance":          func(e model.LedgerEntry) string { return amount.Format(e.OldBalance) },
	"newBalance":          func(e model.LedgerEntry) string { return amount.Format(e.NewBalance) },
	"paymentBalance":      func(e model.LedgerEntry) string { return amount.Format(e.PaymentBalance) },
	"expectedNewBalance":  func(e model.LedgerEntry) string { return amount.FormatFixed(e.ExpectedNewBalance, e.Decimals) },
	"balanceMismatch":     func(e model.LedgerEntry) string { return strconv.FormatBool(e.BalanceMismatch) },
	"overdraft":           func(e model.LedgerEntry) string { return strconv.FormatBool(e.Overdraft) },
	"overdraftReason":     func(e model.LedgerEntry) string { return e.OverdraftReason },
	"suggestedAdjustment": func(e model.LedgerEntry) string { return e.SuggestedAdjustment.StringFixed(e.Decimals) },
	"continuityBreak":     func(e model.LedgerEntry) string { return strconv.FormatBool(e.ContinuityBreak) },
}

// MarshalEntry converts a LedgerEntry to a CSV row holding cols.
func MarshalEntry(e model.LedgerEntry, cols []string) []string {
	row := make([]string, len(cols))
	for i, c := range cols {
		if f, ok := ledgerFields[c]; ok {
			row[i] = f(e)
		}
	}
	return row
}

// WriteLedger writes entries restricted to cols (including header).
func WriteLedger(w io.Writer, entries []model.LedgerEntry, cols []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e, cols)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalReconciliation converts a ReconciliationRow to a CSV row in
// model.ReconciliationColumns order.
func MarshalReconciliation(r model.ReconciliationRow) []string {
	return []string{
		formatTime(r.Timestamp),
		r.UserID,
		r.ID,
		r.Type,
		r.Source,
		r.Action,
		amount.Format(r.OldBalance),
		amount.Format(r.Amount),
		amount.Format(r.NewBalance),
		amount.FormatFixed(r.ExpectedNewBalance, r.Decimals),
		strconv.FormatBool(r.BalanceMismatch),
		strconv.FormatBool(r.ContinuityBreak),
		strconv.FormatBool(r.Overdraft),
		r.OverdraftReason,
		r.SuggestedAdjustment.StringFixed(r.Decimals),
	}
}

// WriteReconciliation writes the reconciliation view (including header).
func WriteReconciliation(w io.Writer, rows []model.ReconciliationRow) error {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = MarshalReconciliation(r)
	}
	return writeAll(w, model.ReconciliationColumns, records)
}

// MarshalAnomaly converts an AnomalyRecord to a CSV row in
// model.AnomalyColumns order.
func MarshalAnomaly(a model.AnomalyRecord) []string {
	return []string{
		formatTime(a.Timestamp),
		a.UserID,
		a.ID,
		a.Type,
		a.Source,
		a.Action,
		amount.Format(a.Amount),
		amount.Format(a.OldBalance),
		amount.Format(a.NewBalance),
		string(a.AnomalyType),
		a.Details,
	}
}

// WriteAnomalies writes the anomaly table (including header).
func WriteAnomalies(w io.Writer, records []model.AnomalyRecord) error {
	rows := make([][]string, len(records))
	for i, a := range records {
		rows[i] = MarshalAnomaly(a)
	}
	return writeAll(w, model.AnomalyColumns, rows)
}

// WriteByUser writes the per-user summary (including header).
func WriteByUser(w io.Writer, users []ledger.UserSummary) error {
	rows := make([][]string, len(users))
	for i, u := range users {
		rows[i] = []string{
			u.UserID,
			strconv.Itoa(u.TxCount),
			u.TotalDebit.String(),
			u.TotalCredit.String(),
			strconv.Itoa(u.Overdrafts),
			strconv.Itoa(u.Mismatches),
			strconv.Itoa(u.ContinuityBreaks),
		}
	}
	return writeAll(w, ByUserHeader, rows)
}

// WriteBySource writes the per-(source, type) summary (including header).
func WriteBySource(w io.Writer, sources []ledger.SourceSummary) error {
	rows := make([][]string, len(sources))
	for i, s := range sources {
		rows[i] = []string{s.Source, s.Type, s.TotalAmount.String(), strconv.Itoa(s.TxCount)}
	}
	return writeAll(w, BySourceHeader, rows)
}

func writeAll(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	return nil
}
