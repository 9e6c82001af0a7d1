package report

import (
	"cmp"
	"embed"
	"fmt"
	"slices"
	"strings"
	"text/template"

	"github.com/cleared-dev/ledgeraudit/internal/amount"
	"github.com/cleared-dev/ledgeraudit/internal/ledger"
	"github.com/cleared-dev/ledgeraudit/internal/model"
)

//go:embed templates/*.md
var templates embed.FS

// Limits on the sample tables in the summary.
const (
	topOverdrafts   = 20
	firstMismatches = 20
	latestAnomalies = 50
)

var summaryTmpl = template.Must(template.ParseFS(templates, "templates/summary.md"))

type overdraftRow struct {
	Timestamp, UserID, ID, Amount, OldBalance, NewBalance, Reason string
}

type mismatchRow struct {
	Timestamp, UserID, ID, OldBalance, Amount, Expected, NewBalance, Adjustment string
}

type anomalyRow struct {
	Timestamp, UserID, ID, Kind, Details string
}

type typeRow struct{ Type, Total string }

type dayRow struct{ Date, Net string }

type summaryView struct {
	RunStamp         string
	RunID            string
	LogDir           string
	Totals           ledger.Totals
	TotalDebit       string
	TotalCredit      string
	Mismatches       int
	ContinuityBreaks int
	OverdraftCount   int
	AnomalyCount     int
	ByType           []typeRow
	DailyNet         []dayRow
	Overdrafts       []overdraftRow
	MismatchRows     []mismatchRow
	Anomalies        []anomalyRow
}

// RenderSummary renders the markdown summary of a run.
func RenderSummary(in Input) (string, error) {
	var b strings.Builder
	if err := summaryTmpl.Execute(&b, newSummaryView(in)); err != nil {
		return "", fmt.Errorf("rendering summary: %w", err)
	}
	return b.String(), nil
}

func newSummaryView(in Input) summaryView {
	v := summaryView{
		RunStamp:       in.RunStamp,
		RunID:          in.RunID,
		LogDir:         in.LogDir,
		Totals:         in.Summary.Totals,
		TotalDebit:     in.Summary.Totals.TotalDebit.String(),
		TotalCredit:    in.Summary.Totals.TotalCredit.String(),
		OverdraftCount: len(in.Summary.Overdrafts),
		AnomalyCount:   len(in.Anomalies),
	}

	for _, t := range in.Summary.ByType {
		v.ByType = append(v.ByType, typeRow{Type: cell(t.Type), Total: t.TotalAmount.String()})
	}
	for _, d := range in.Summary.DailyNet {
		v.DailyNet = append(v.DailyNet, dayRow{Date: d.Date, Net: d.Net.String()})
	}

	for _, e := range in.Ledger {
		if e.ContinuityBreak {
			v.ContinuityBreaks++
		}
		if !e.BalanceMismatch {
			continue
		}
		v.Mismatches++
		if len(v.MismatchRows) < firstMismatches {
			v.MismatchRows = append(v.MismatchRows, mismatchRow{
				Timestamp:  formatTime(e.Timestamp),
				UserID:     cell(e.UserID),
				ID:         cell(e.ID),
				OldBalance: FormatMoney(e.OldBalance, e.Currency, e.Decimals),
				Amount:     FormatMoney(e.Amount, e.Currency, e.Decimals),
				Expected:   FormatMoney(e.ExpectedNewBalance, e.Currency, e.Decimals),
				NewBalance: FormatMoney(e.NewBalance, e.Currency, e.Decimals),
				Adjustment: FormatMoney(amount.Known(e.SuggestedAdjustment), e.Currency, e.Decimals),
			})
		}
	}

	over := slices.Clone(in.Summary.Overdrafts)
	slices.SortStableFunc(over, byAmountDesc)
	for _, e := range over[:min(len(over), topOverdrafts)] {
		v.Overdrafts = append(v.Overdrafts, overdraftRow{
			Timestamp:  formatTime(e.Timestamp),
			UserID:     cell(e.UserID),
			ID:         cell(e.ID),
			Amount:     FormatMoney(e.Amount, e.Currency, e.Decimals),
			OldBalance: FormatMoney(e.OldBalance, e.Currency, e.Decimals),
			NewBalance: FormatMoney(e.NewBalance, e.Currency, e.Decimals),
			Reason:     e.OverdraftReason,
		})
	}

	recent := slices.Clone(in.Anomalies)
	slices.SortStableFunc(recent, func(a, b model.AnomalyRecord) int {
		// Newest first, unknown timestamps last.
		switch {
		case a.Timestamp.IsZero() || b.Timestamp.IsZero():
			return model.CompareTime(a.Timestamp, b.Timestamp)
		default:
			return b.Timestamp.Compare(a.Timestamp)
		}
	})
	for _, a := range recent[:min(len(recent), latestAnomalies)] {
		v.Anomalies = append(v.Anomalies, anomalyRow{
			Timestamp: formatTime(a.Timestamp),
			UserID:    cell(a.UserID),
			ID:        cell(a.ID),
			Kind:      string(a.AnomalyType),
			Details:   cell(a.Details),
		})
	}
	return v
}

// byAmountDesc orders entries by amount, largest first, unknown last.
func byAmountDesc(a, b model.LedgerEntry) int {
	switch {
	case !a.Amount.Valid && !b.Amount.Valid:
		return 0
	case !a.Amount.Valid:
		return 1
	case !b.Amount.Valid:
		return -1
	}
	return cmp.Compare(0, a.Amount.Decimal.Cmp(b.Amount.Decimal))
}

// cell escapes text for a markdown table cell.
func cell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
