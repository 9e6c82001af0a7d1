// Package ledger rebuilds per-transaction balances from balance-sync
// events and reconciles them against what the system reported.
package ledger

import (
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgeraudit/internal/amount"
	"github.com/cleared-dev/ledgeraudit/internal/model"
	"github.com/cleared-dev/ledgeraudit/internal/partition"
)

// Options configures Build. Start from DefaultOptions.
type Options struct {
	// Decimals is the precision for currencies missing from CurrencyDecimals.
	Decimals int32
	// Tolerance is the largest difference still treated as equal.
	Tolerance decimal.Decimal
	// CurrencyDecimals maps currency code to precision. Empty selects
	// amount.DefaultCurrencyDecimals.
	CurrencyDecimals map[string]int32
	// Workers bounds per-user parallelism; 0 means GOMAXPROCS.
	Workers int
	// Logger receives diagnostics; nil discards them.
	Logger *slog.Logger
}

// DefaultOptions returns the standard reconciliation settings.
func DefaultOptions() Options {
	return Options{
		Decimals:         2,
		Tolerance:        decimal.RequireFromString("0.005"),
		CurrencyDecimals: maps.Clone(amount.DefaultCurrencyDecimals),
	}
}

// row pairs an entry with its filled closing balance, which feeds the
// continuity check of the next entry but is not part of the output.
type row struct {
	entry  model.LedgerEntry
	filled decimal.NullDecimal
}

// Build reconciles every BALANCE_SYNC event and returns one entry per event
// ordered by (userId, timestamp, id, messageId). Other events are dropped.
// Build never fails: bad numbers become unknown values.
func Build(events []model.Event, opts Options) []model.LedgerEntry {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var syncs []model.Event
	for _, e := range events {
		if e.IsBalanceSync() {
			syncs = append(syncs, e)
		}
	}
	if len(syncs) == 0 {
		log.Debug("no balance sync events", "events", len(events))
		return []model.LedgerEntry{}
	}

	prec := amount.NewPrecision(opts.Decimals, opts.CurrencyDecimals)
	groups := partition.ByKey(syncs, func(e model.Event) string { return e.UserID })

	entries := partition.Map(groups, opts.Workers, func(g partition.Group[model.Event]) []model.LedgerEntry {
		return buildUser(g.Rows, prec, opts.Tolerance, log)
	})

	var mismatches, breaks, overdrafts int
	for _, e := range entries {
		if e.BalanceMismatch {
			mismatches++
		}
		if e.ContinuityBreak {
			breaks++
		}
		if e.Overdraft {
			overdrafts++
		}
	}
	log.Info("ledger built",
		"events", len(events),
		"entries", len(entries),
		"users", len(groups),
		"mismatches", mismatches,
		"continuity_breaks", breaks,
		"overdrafts", overdrafts,
	)
	return entries
}

// buildUser reconciles one user's events and chains their balances.
func buildUser(events []model.Event, prec amount.Precision, tol decimal.Decimal, log *slog.Logger) []model.LedgerEntry {
	rows := make([]row, len(events))
	for i, e := range events {
		rows[i] = reconcile(e, prec, tol)
	}
	slices.SortStableFunc(rows, func(a, b row) int {
		return model.CompareEntries(a.entry, b.entry)
	})

	out := make([]model.LedgerEntry, len(rows))
	for i := range rows {
		e := rows[i].entry
		if i > 0 {
			opening := amount.Round(e.OldBalance, e.Decimals)
			e.ContinuityBreak = amount.Differs(opening, rows[i-1].filled, tol)
			if e.ContinuityBreak {
				log.Debug("continuity break",
					"user", e.UserID,
					"id", e.ID,
					"old_balance", amount.Format(opening),
					"previous_new_balance", amount.Format(rows[i-1].filled),
				)
			}
		}
		out[i] = e
	}
	return out
}

// reconcile computes the derived fields of a single event.
func reconcile(ev model.Event, prec amount.Precision, tol decimal.Decimal) row {
	currency := ev.CurrencyCode()
	dps := prec.For(currency)

	e := model.LedgerEntry{
		Timestamp:      ev.Timestamp,
		UserID:         ev.UserID,
		ID:             ev.ID,
		MessageID:      ev.MessageID,
		EventType:      ev.EventType,
		Type:           ev.Type,
		Source:         ev.Source,
		Action:         ev.Action,
		Currency:       currency,
		Amount:         amount.Parse(ev.Amount),
		VAT:            amount.Parse(ev.VAT),
		OldBalance:     amount.Parse(ev.OldBalance),
		NewBalance:     amount.Parse(ev.NewBalance),
		PaymentBalance: amount.Parse(ev.PaymentBalance),
		Decimals:       dps,
	}

	e.ExpectedNewBalance = amount.Round(expectedBalance(e), dps)
	actual := amount.Round(e.NewBalance, dps)

	e.BalanceMismatch = amount.Differs(e.ExpectedNewBalance, actual, tol)
	if e.BalanceMismatch {
		e.SuggestedAdjustment = e.ExpectedNewBalance.Decimal.Sub(actual.Decimal).Round(dps)
	}

	e.OverdraftReason = overdraftReason(e.ExpectedNewBalance, actual)
	e.Overdraft = e.OverdraftReason != ""

	filled := actual
	if !filled.Valid {
		filled = e.ExpectedNewBalance
	}
	return row{entry: e, filled: filled}
}

// expectedBalance applies the transaction to the opening balance. Missing
// inputs count as zero here and nowhere else.
func expectedBalance(e model.LedgerEntry) decimal.NullDecimal {
	net := amount.OrZero(e.Amount).Sub(amount.OrZero(e.VAT))
	old := amount.OrZero(e.OldBalance)
	switch {
	case e.IsCredit():
		return amount.Known(old.Add(net))
	case e.IsDebit():
		return amount.Known(old.Sub(net))
	default:
		return amount.Unknown
	}
}

func overdraftReason(expected, actual decimal.NullDecimal) string {
	expNeg := amount.Negative(expected)
	actNeg := amount.Negative(actual)
	switch {
	case expNeg && actNeg:
		return model.OverdraftBoth
	case expNeg:
		return model.OverdraftExpected
	case actNeg:
		return model.OverdraftActual
	}
	return ""
}
