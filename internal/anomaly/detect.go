// Package anomaly runs independent heuristics over a reconciled ledger and
// reports every entry that deserves a human look.
package anomaly

import (
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgeraudit/internal/model"
	"github.com/cleared-dev/ledgeraudit/internal/partition"
)

// Options configures Detect. Start from DefaultOptions.
type Options struct {
	// MADThreshold is the modified z-score at or above which an amount is a spike.
	MADThreshold decimal.Decimal
	// DupWindow is how close two identical manual debits must be to be flagged.
	DupWindow time.Duration
	// Workers bounds per-user parallelism; 0 means GOMAXPROCS.
	Workers int
	// Logger receives diagnostics; nil discards them.
	Logger *slog.Logger
}

// DefaultOptions returns the standard detector settings.
func DefaultOptions() Options {
	return Options{
		MADThreshold: decimal.NewFromInt(6),
		DupWindow:    60 * time.Second,
	}
}

// pass is one heuristic over a single user's entries, sorted by
// (timestamp, id).
type pass func(entries []model.LedgerEntry, opts Options) []model.AnomalyRecord

// passes run in this order for every user.
var passes = []pass{
	invalidAction,
	madSpike,
	duplicateTxID,
	missingField,
	rapidManualDeduction,
	continuityBreak,
	balanceMismatch,
	burst,
	currencyMismatch,
}

// Detect runs every pass and returns the flagged rows sorted by timestamp.
// Passes may flag the same entry; nothing is deduplicated. An empty ledger
// yields an empty, non-nil result.
func Detect(entries []model.LedgerEntry, opts Options) []model.AnomalyRecord {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if len(entries) == 0 {
		return []model.AnomalyRecord{}
	}

	groups := partition.ByKey(entries, func(e model.LedgerEntry) string { return e.UserID })
	records := partition.Map(groups, opts.Workers, func(g partition.Group[model.LedgerEntry]) []model.AnomalyRecord {
		rows := slices.Clone(g.Rows)
		slices.SortStableFunc(rows, func(a, b model.LedgerEntry) int {
			return cmpOr(
				model.CompareTime(a.Timestamp, b.Timestamp),
				strings.Compare(a.ID, b.ID),
			)
		})
		var out []model.AnomalyRecord
		for _, p := range passes {
			out = append(out, p(rows, opts)...)
		}
		return out
	})

	// Users arrive in key order, so a stable sort on time keeps equal
	// instants grouped by user and then by pass.
	slices.SortStableFunc(records, func(a, b model.AnomalyRecord) int {
		return model.CompareTime(a.Timestamp, b.Timestamp)
	})

	counts := make(map[model.AnomalyType]int)
	for _, r := range records {
		counts[r.AnomalyType]++
	}
	attrs := []any{"entries", len(entries), "anomalies", len(records)}
	for _, t := range model.AnomalyTypes {
		if n := counts[t]; n > 0 {
			attrs = append(attrs, string(t), n)
		}
	}
	log.Info("anomaly detection finished", attrs...)

	if records == nil {
		return []model.AnomalyRecord{}
	}
	return records
}

// cmpOr returns the first non-zero comparison result, or 0
// (equivalent to cmp.Or for ints, which requires Go 1.22).
func cmpOr(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
