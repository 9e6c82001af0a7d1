package anomaly

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgeraudit/internal/amount"
	"github.com/cleared-dev/ledgeraudit/internal/model"
)

// burstGap is the spacing below which consecutive entries count as a burst.
const burstGap = time.Second

func invalidAction(entries []model.LedgerEntry, _ Options) []model.AnomalyRecord {
	var out []model.AnomalyRecord
	for _, e := range entries {
		action := strings.ToUpper(e.Action)
		// INVAILID is a misspelling that shows up in production logs.
		if strings.Contains(action, "INVALID") || strings.Contains(action, "INVAILID") {
			out = append(out, model.NewAnomaly(e, model.AnomalyInvalidAction, "Action contains 'INVALID'"))
		}
	}
	return out
}

// madSpike flags amounts far from their (user, type) median, measured in
// median absolute deviations. Groups with zero MAD carry no signal.
func madSpike(entries []model.LedgerEntry, opts Options) []model.AnomalyRecord {
	var order []string
	groups := make(map[string][]model.LedgerEntry)
	for _, e := range entries {
		if blank(e.Type) {
			continue
		}
		if _, ok := groups[e.Type]; !ok {
			order = append(order, e.Type)
		}
		groups[e.Type] = append(groups[e.Type], e)
	}

	var out []model.AnomalyRecord
	for _, typ := range order {
		grp := groups[typ]
		var amounts []decimal.Decimal
		for _, e := range grp {
			if e.Amount.Valid {
				amounts = append(amounts, e.Amount.Decimal)
			}
		}
		med, dev, ok := mad(amounts)
		if !ok || dev.IsZero() {
			continue
		}
		for _, e := range grp {
			if !e.Amount.Valid {
				continue
			}
			score := e.Amount.Decimal.Sub(med).Abs().Div(dev)
			if score.GreaterThanOrEqual(opts.MADThreshold) {
				details := fmt.Sprintf("MAD z-score %s >= %s", score.StringFixed(2), opts.MADThreshold.String())
				out = append(out, model.NewAnomaly(e, model.AnomalyMADSpike, details))
			}
		}
	}
	return out
}

// duplicateTxID flags every entry whose transaction id occurs more than once.
func duplicateTxID(entries []model.LedgerEntry, _ Options) []model.AnomalyRecord {
	counts := make(map[string]int, len(entries))
	for _, e := range entries {
		counts[e.ID]++
	}
	var out []model.AnomalyRecord
	for _, e := range entries {
		if counts[e.ID] > 1 {
			out = append(out, model.NewAnomaly(e, model.AnomalyDuplicateTxID, "Duplicate transaction id for user"))
		}
	}
	return out
}

// missingField emits one record per blank categorical field.
func missingField(entries []model.LedgerEntry, _ Options) []model.AnomalyRecord {
	fields := []struct {
		name string
		get  func(model.LedgerEntry) string
	}{
		{"type", func(e model.LedgerEntry) string { return e.Type }},
		{"source", func(e model.LedgerEntry) string { return e.Source }},
		{"action", func(e model.LedgerEntry) string { return e.Action }},
	}
	var out []model.AnomalyRecord
	for _, f := range fields {
		for _, e := range entries {
			if blank(f.get(e)) {
				out = append(out, model.NewAnomaly(e, model.AnomalyMissingField, f.name+" is blank"))
			}
		}
	}
	return out
}

// rapidManualDeduction flags a manual debit that repeats the same amount
// within the window of the previous one.
func rapidManualDeduction(entries []model.LedgerEntry, opts Options) []model.AnomalyRecord {
	last := make(map[string]model.LedgerEntry)
	var out []model.AnomalyRecord
	for _, e := range entries {
		if blank(e.Type) || !e.Amount.Valid {
			continue
		}
		key := e.Type + "\x00" + e.Amount.Decimal.String()
		prev, seen := last[key]
		last[key] = e
		if !seen || !e.IsDebit() || !strings.Contains(strings.ToUpper(e.Source), "MANUAL") {
			continue
		}
		if prev.Timestamp.IsZero() || e.Timestamp.IsZero() {
			continue
		}
		if e.Timestamp.Sub(prev.Timestamp) <= opts.DupWindow {
			details := fmt.Sprintf("Repeated manual %s within %ss", e.Type,
				strconv.FormatFloat(opts.DupWindow.Seconds(), 'f', -1, 64))
			out = append(out, model.NewAnomaly(e, model.AnomalyRapidManualDeduction, details))
		}
	}
	return out
}

func continuityBreak(entries []model.LedgerEntry, _ Options) []model.AnomalyRecord {
	var out []model.AnomalyRecord
	for _, e := range entries {
		if e.ContinuityBreak {
			out = append(out, model.NewAnomaly(e, model.AnomalyContinuityBreak, "Old balance does not match previous new balance"))
		}
	}
	return out
}

func balanceMismatch(entries []model.LedgerEntry, _ Options) []model.AnomalyRecord {
	var out []model.AnomalyRecord
	for _, e := range entries {
		if e.BalanceMismatch {
			details := fmt.Sprintf("Expected %s != Actual %s",
				amount.FormatFixed(e.ExpectedNewBalance, e.Decimals), amount.Format(e.NewBalance))
			out = append(out, model.NewAnomaly(e, model.AnomalyBalanceMismatch, details))
		}
	}
	return out
}

// burst flags an entry that follows the user's previous entry by less than
// a second.
func burst(entries []model.LedgerEntry, _ Options) []model.AnomalyRecord {
	var out []model.AnomalyRecord
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1].Timestamp, entries[i].Timestamp
		if prev.IsZero() || cur.IsZero() {
			continue
		}
		if cur.Sub(prev) < burstGap {
			out = append(out, model.NewAnomaly(entries[i], model.AnomalyBurst, "Transactions within <1s of each other"))
		}
	}
	return out
}

// currencyMismatch flags all of a user's entries once the user has used
// more than one currency.
func currencyMismatch(entries []model.LedgerEntry, _ Options) []model.AnomalyRecord {
	seen := make(map[string]struct{})
	for _, e := range entries {
		seen[e.Currency] = struct{}{}
	}
	if len(seen) <= 1 {
		return nil
	}
	out := make([]model.AnomalyRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, model.NewAnomaly(e, model.AnomalyCurrencyMismatch, "Multiple currencies detected for same user"))
	}
	return out
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
