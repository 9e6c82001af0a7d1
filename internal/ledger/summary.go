package ledger

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgeraudit/internal/amount"
	"github.com/cleared-dev/ledgeraudit/internal/model"
)

// Totals are ledger-wide figures. Amounts are summed across currencies.
type Totals struct {
	Transactions int
	UniqueUsers  int
	TotalDebit   decimal.Decimal
	TotalCredit  decimal.Decimal
}

// UserSummary aggregates one user's entries.
type UserSummary struct {
	UserID           string
	TxCount          int
	TotalDebit       decimal.Decimal
	TotalCredit      decimal.Decimal
	Overdrafts       int
	Mismatches       int
	ContinuityBreaks int
}

// SourceSummary aggregates entries sharing a (source, type) pair.
type SourceSummary struct {
	Source      string
	Type        string
	TotalAmount decimal.Decimal
	TxCount     int
}

// TypeTotal is the summed amount for one transaction type.
type TypeTotal struct {
	Type        string
	TotalAmount decimal.Decimal
}

// DailyFlow is credits minus debits for one UTC day.
type DailyFlow struct {
	Date string // YYYY-MM-DD
	Net  decimal.Decimal
}

// Summary is the aggregate view handed to the report renderer.
type Summary struct {
	Totals     Totals
	ByUser     []UserSummary
	BySource   []SourceSummary
	ByType     []TypeTotal
	DailyNet   []DailyFlow
	Overdrafts []model.LedgerEntry
}

// Summarize aggregates the ledger. An empty ledger yields an empty Summary.
func Summarize(entries []model.LedgerEntry) Summary {
	var s Summary
	if len(entries) == 0 {
		return s
	}

	users := make(map[string]*UserSummary)
	sources := make(map[[2]string]*SourceSummary)
	types := make(map[string]*TypeTotal)
	days := make(map[string]*DailyFlow)

	s.Totals.Transactions = len(entries)
	for _, e := range entries {
		amt := amount.OrZero(e.Amount)

		u, ok := users[e.UserID]
		if !ok {
			u = &UserSummary{UserID: e.UserID}
			users[e.UserID] = u
		}
		if e.ID != "" {
			u.TxCount++
		}
		switch {
		case e.IsDebit():
			s.Totals.TotalDebit = s.Totals.TotalDebit.Add(amt)
			u.TotalDebit = u.TotalDebit.Add(amt)
		case e.IsCredit():
			s.Totals.TotalCredit = s.Totals.TotalCredit.Add(amt)
			u.TotalCredit = u.TotalCredit.Add(amt)
		}
		if e.Overdraft {
			u.Overdrafts++
			s.Overdrafts = append(s.Overdrafts, e)
		}
		if e.BalanceMismatch {
			u.Mismatches++
		}
		if e.ContinuityBreak {
			u.ContinuityBreaks++
		}

		if !blank(e.Type) {
			tt, ok := types[e.Type]
			if !ok {
				tt = &TypeTotal{Type: e.Type}
				types[e.Type] = tt
			}
			tt.TotalAmount = tt.TotalAmount.Add(amt)
		}

		if !e.Timestamp.IsZero() && (e.IsCredit() || e.IsDebit()) {
			day := e.Timestamp.UTC().Format("2006-01-02")
			df, ok := days[day]
			if !ok {
				df = &DailyFlow{Date: day}
				days[day] = df
			}
			if e.IsCredit() {
				df.Net = df.Net.Add(amt)
			} else {
				df.Net = df.Net.Sub(amt)
			}
		}

		if blank(e.Source) || blank(e.Type) {
			continue
		}
		key := [2]string{e.Source, e.Type}
		src, ok := sources[key]
		if !ok {
			src = &SourceSummary{Source: e.Source, Type: e.Type}
			sources[key] = src
		}
		src.TotalAmount = src.TotalAmount.Add(amt)
		if e.ID != "" {
			src.TxCount++
		}
	}

	s.Totals.UniqueUsers = len(users)
	for _, u := range users {
		s.ByUser = append(s.ByUser, *u)
	}
	slices.SortFunc(s.ByUser, func(a, b UserSummary) int { return strings.Compare(a.UserID, b.UserID) })

	for _, src := range sources {
		s.BySource = append(s.BySource, *src)
	}
	slices.SortFunc(s.BySource, func(a, b SourceSummary) int {
		return cmpOr(strings.Compare(a.Source, b.Source), strings.Compare(a.Type, b.Type))
	})

	for _, tt := range types {
		s.ByType = append(s.ByType, *tt)
	}
	slices.SortFunc(s.ByType, func(a, b TypeTotal) int { return strings.Compare(a.Type, b.Type) })

	for _, df := range days {
		s.DailyNet = append(s.DailyNet, *df)
	}
	slices.SortFunc(s.DailyNet, func(a, b DailyFlow) int { return strings.Compare(a.Date, b.Date) })

	return s
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

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
