package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgeraudit/internal/model"
)

func TestSummarize(t *testing.T) {
	manual := syncEvent("u2", "tx3", at(86400), "DEBIT", "5", "0", "10", "-1")
	manual.Source = "MANUAL_ADJUST"
	noSource := syncEvent("u2", "tx4", at(86401), "CREDIT", "2", "0", "-1", "1")
	noSource.Source = " "

	events := []model.Event{
		syncEvent("u1", "tx1", at(0), "CREDIT", "100", "0", "0", "100"),
		syncEvent("u1", "tx2", at(60), "DEBIT", "30", "0", "100", "70.50"),
		manual,
		noSource,
	}
	s := Summarize(Build(events, DefaultOptions()))

	assert.Equal(t, 4, s.Totals.Transactions)
	assert.Equal(t, 2, s.Totals.UniqueUsers)
	assert.True(t, s.Totals.TotalDebit.Equal(dec("35")))
	assert.True(t, s.Totals.TotalCredit.Equal(dec("102")))

	require.Len(t, s.ByUser, 2)
	u1 := s.ByUser[0]
	assert.Equal(t, "u1", u1.UserID)
	assert.Equal(t, 2, u1.TxCount)
	assert.True(t, u1.TotalCredit.Equal(dec("100")))
	assert.True(t, u1.TotalDebit.Equal(dec("30")))
	assert.Equal(t, 1, u1.Mismatches)
	assert.Equal(t, 0, u1.ContinuityBreaks)

	u2 := s.ByUser[1]
	assert.Equal(t, 1, u2.Overdrafts)
	assert.Equal(t, 0, u2.ContinuityBreaks)

	require.Len(t, s.BySource, 3, "blank source is excluded")
	assert.Equal(t, "MANUAL_ADJUST", s.BySource[0].Source)
	assert.Equal(t, "PAYMENT", s.BySource[1].Source)
	assert.Equal(t, "CREDIT", s.BySource[1].Type)
	assert.Equal(t, "DEBIT", s.BySource[2].Type)
	assert.True(t, s.BySource[2].TotalAmount.Equal(dec("30")))
	assert.Equal(t, 1, s.BySource[2].TxCount)

	require.Len(t, s.ByType, 2)
	assert.Equal(t, "CREDIT", s.ByType[0].Type)
	assert.True(t, s.ByType[0].TotalAmount.Equal(dec("102")))

	require.Len(t, s.DailyNet, 2)
	assert.Equal(t, "2025-03-01", s.DailyNet[0].Date)
	assert.True(t, s.DailyNet[0].Net.Equal(dec("70")))
	assert.Equal(t, "2025-03-02", s.DailyNet[1].Date)
	assert.True(t, s.DailyNet[1].Net.Equal(dec("-3")))

	require.Len(t, s.Overdrafts, 1)
	assert.Equal(t, "tx3", s.Overdrafts[0].ID)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.Totals.Transactions)
	assert.Empty(t, s.ByUser)
	assert.Empty(t, s.BySource)
	assert.Empty(t, s.Overdrafts)
}
