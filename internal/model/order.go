package model

import (
	"strings"
	"time"
)

// CompareTime orders known instants ascending and unknown (zero) instants last.
func CompareTime(a, b time.Time) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	}
	return a.Compare(b)
}

// CompareEntries orders ledger entries by (userId, timestamp, id, messageId).
func CompareEntries(a, b LedgerEntry) int {
	return firstNonZero(
		strings.Compare(a.UserID, b.UserID),
		CompareTime(a.Timestamp, b.Timestamp),
		strings.Compare(a.ID, b.ID),
		strings.Compare(a.MessageID, b.MessageID),
	)
}

// firstNonZero returns the first non-zero comparison result, or 0
// (equivalent to cmp.Or for ints, which requires Go 1.22).
func firstNonZero(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
