package anomaly

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgeraudit/internal/amount"
	"github.com/cleared-dev/ledgeraudit/internal/ledger"
	"github.com/cleared-dev/ledgeraudit/internal/model"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func at(ms int) time.Time { return base.Add(time.Duration(ms) * time.Millisecond) }

func entry(user, id string, ts time.Time, typ, amt string) model.LedgerEntry {
	return model.LedgerEntry{
		Timestamp: ts,
		UserID:    user,
		ID:        id,
		EventType: model.EventBalanceSync,
		Type:      typ,
		Source:    "PAYMENT",
		Action:    "CHARGE",
		Currency:  model.UnknownCurrency,
		Amount:    amount.Parse(amt),
		Decimals:  2,
	}
}

func ofType(records []model.AnomalyRecord, kind model.AnomalyType) []model.AnomalyRecord {
	var out []model.AnomalyRecord
	for _, r := range records {
		if r.AnomalyType == kind {
			out = append(out, r)
		}
	}
	return out
}

func TestDetect_Empty(t *testing.T) {
	got := Detect(nil, DefaultOptions())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDetect_InvalidAction(t *testing.T) {
	a := entry("u1", "1", at(0), "DEBIT", "1")
	a.Action = "refund_INVALID"
	b := entry("u1", "2", at(5000), "DEBIT", "2")
	b.Action = "Invailid-charge"
	c := entry("u1", "3", at(10000), "DEBIT", "3")
	c.Action = "VALID"

	got := ofType(Detect([]model.LedgerEntry{a, b, c}, DefaultOptions()), model.AnomalyInvalidAction)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "2", got[1].ID)
	assert.Equal(t, "Action contains 'INVALID'", got[0].Details)
}

func TestDetect_MADSpike(t *testing.T) {
	var entries []model.LedgerEntry
	for i, amt := range []string{"10", "10", "11", "9", "10", "100"} {
		entries = append(entries, entry("u1", fmt.Sprint(i), at(i*5000), "DEBIT", amt))
	}
	// A credit group of its own; amounts there must not mix with debits.
	entries = append(entries, entry("u1", "c1", at(40000), "CREDIT", "100"))

	got := ofType(Detect(entries, DefaultOptions()), model.AnomalyMADSpike)
	require.Len(t, got, 1)
	assert.Equal(t, "5", got[0].ID)
	assert.Equal(t, "MAD z-score 180.00 >= 6", got[0].Details)
}

func TestDetect_MADSpikeThresholdInclusive(t *testing.T) {
	// median 10, MAD 1, score of 16 is exactly 6.
	var entries []model.LedgerEntry
	for i, amt := range []string{"9", "10", "11", "10", "16", "9", "11"} {
		entries = append(entries, entry("u1", fmt.Sprint(i), at(i*5000), "DEBIT", amt))
	}
	got := ofType(Detect(entries, DefaultOptions()), model.AnomalyMADSpike)
	require.Len(t, got, 1)
	assert.Equal(t, "4", got[0].ID)
}

func TestDetect_MADSpikeSkipsZeroMAD(t *testing.T) {
	var entries []model.LedgerEntry
	for i := 0; i < 5; i++ {
		entries = append(entries, entry("u1", fmt.Sprint(i), at(i*5000), "DEBIT", "5.00"))
	}
	entries = append(entries, entry("u1", "x", at(60000), "DEBIT", "500"))

	opts := DefaultOptions()
	opts.MADThreshold = decimal.Zero
	got := ofType(Detect(entries, opts), model.AnomalyMADSpike)
	assert.Empty(t, got, "MAD of zero is no signal")
}

func TestDetect_MADSpikeIgnoresUnknownAmounts(t *testing.T) {
	entries := []model.LedgerEntry{
		entry("u1", "1", at(0), "DEBIT", ""),
		entry("u1", "2", at(5000), "DEBIT", ""),
		entry("u1", "3", at(10000), "", "1000"),
	}
	got := ofType(Detect(entries, DefaultOptions()), model.AnomalyMADSpike)
	assert.Empty(t, got)
}

func TestDetect_DuplicateTxID(t *testing.T) {
	entries := []model.LedgerEntry{
		entry("u1", "tx1", at(0), "DEBIT", "1"),
		entry("u1", "tx1", at(5000), "DEBIT", "2"),
		entry("u1", "tx2", at(10000), "DEBIT", "3"),
		entry("u2", "tx1", at(15000), "DEBIT", "4"),
	}
	got := ofType(Detect(entries, DefaultOptions()), model.AnomalyDuplicateTxID)
	require.Len(t, got, 2, "both occurrences are flagged, other users are not")
	for _, r := range got {
		assert.Equal(t, "u1", r.UserID)
		assert.Equal(t, "tx1", r.ID)
	}
}

func TestDetect_MissingField(t *testing.T) {
	e := entry("u1", "1", at(0), "", "1")
	e.Source = "   "
	got := ofType(Detect([]model.LedgerEntry{e}, DefaultOptions()), model.AnomalyMissingField)
	require.Len(t, got, 2)

	var details []string
	for _, r := range got {
		details = append(details, r.Details)
	}
	assert.ElementsMatch(t, []string{"type is blank", "source is blank"}, details)
}

func manualDebit(id string, ts time.Time, amt string) model.LedgerEntry {
	e := entry("u1", id, ts, "DEBIT", amt)
	e.Source = "MANUAL_ADJUST"
	return e
}

func TestDetect_RapidManualDeduction(t *testing.T) {
	entries := []model.LedgerEntry{
		manualDebit("1", at(0), "20"),
		manualDebit("2", at(30000), "20"),
	}
	got := ofType(Detect(entries, DefaultOptions()), model.AnomalyRapidManualDeduction)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "Repeated manual DEBIT within 60s", got[0].Details)
}

func TestDetect_RapidManualDeductionNegatives(t *testing.T) {
	tests := []struct {
		name    string
		entries []model.LedgerEntry
	}{
		{"outside window", []model.LedgerEntry{manualDebit("1", at(0), "20"), manualDebit("2", at(61000), "20")}},
		{"different amount", []model.LedgerEntry{manualDebit("1", at(0), "20"), manualDebit("2", at(1000), "21")}},
		{"not manual", []model.LedgerEntry{entry("u1", "1", at(0), "DEBIT", "20"), entry("u1", "2", at(1000), "DEBIT", "20")}},
		{"credit", func() []model.LedgerEntry {
			a, b := manualDebit("1", at(0), "20"), manualDebit("2", at(1000), "20")
			a.Type, b.Type = "CREDIT", "CREDIT"
			return []model.LedgerEntry{a, b}
		}()},
		{"unknown timestamp", []model.LedgerEntry{manualDebit("1", time.Time{}, "20"), manualDebit("2", at(1000), "20")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ofType(Detect(tt.entries, DefaultOptions()), model.AnomalyRapidManualDeduction)
			assert.Empty(t, got)
		})
	}
}

func TestDetect_RapidManualDeductionEqualAmountsDifferentScale(t *testing.T) {
	entries := []model.LedgerEntry{
		manualDebit("1", at(0), "20"),
		manualDebit("2", at(60000), "20.00"),
	}
	got := ofType(Detect(entries, DefaultOptions()), model.AnomalyRapidManualDeduction)
	require.Len(t, got, 1, "window is inclusive and 20 == 20.00")
}

func TestDetect_PassThroughFlags(t *testing.T) {
	events := []model.Event{
		{EventType: model.EventBalanceSync, UserID: "u1", ID: "tx1", Timestamp: at(0), Type: "CREDIT",
			Source: "PAYMENT", Action: "TOPUP", Amount: "100.00", VAT: "0", OldBalance: "50.00", NewBalance: "150.01"},
		{EventType: model.EventBalanceSync, UserID: "u1", ID: "tx2", Timestamp: at(60000), Type: "DEBIT",
			Source: "PAYMENT", Action: "CHARGE", Amount: "10", VAT: "0", OldBalance: "100", NewBalance: "90"},
	}
	entries := ledger.Build(events, ledger.DefaultOptions())
	got := Detect(entries, DefaultOptions())

	mismatch := ofType(got, model.AnomalyBalanceMismatch)
	require.Len(t, mismatch, 1)
	assert.Equal(t, "tx1", mismatch[0].ID)
	assert.Equal(t, "Expected 150.00 != Actual 150.01", mismatch[0].Details)

	breaks := ofType(got, model.AnomalyContinuityBreak)
	require.Len(t, breaks, 1)
	assert.Equal(t, "tx2", breaks[0].ID)
	assert.Equal(t, "Old balance does not match previous new balance", breaks[0].Details)
}

func TestDetect_Burst(t *testing.T) {
	entries := []model.LedgerEntry{
		entry("u1", "1", at(0), "DEBIT", "1"),
		entry("u1", "2", at(500), "DEBIT", "2"),
		entry("u1", "3", at(1500), "DEBIT", "3"),
		entry("u2", "4", at(600), "DEBIT", "4"),
	}
	got := ofType(Detect(entries, DefaultOptions()), model.AnomalyBurst)
	require.Len(t, got, 1, "exactly one second apart is not a burst; other users do not count")
	assert.Equal(t, "2", got[0].ID)
}

func TestDetect_CurrencyMismatch(t *testing.T) {
	a := entry("u1", "1", at(0), "DEBIT", "1")
	b := entry("u1", "2", at(5000), "DEBIT", "2")
	b.Currency = "SAR"
	c := entry("u1", "3", at(10000), "DEBIT", "3")
	d := entry("u2", "4", at(15000), "DEBIT", "4")

	got := ofType(Detect([]model.LedgerEntry{a, b, c, d}, DefaultOptions()), model.AnomalyCurrencyMismatch)
	require.Len(t, got, 3)
	for _, r := range got {
		assert.Equal(t, "u1", r.UserID)
	}
}

func TestDetect_OverlappingFlagsAndOrder(t *testing.T) {
	a := entry("u2", "dup", at(2000), "DEBIT", "5")
	a.Action = "INVALID"
	b := entry("u2", "dup", at(2400), "DEBIT", "5")
	c := entry("u1", "x", at(1000), "", "5")

	got := Detect([]model.LedgerEntry{a, b, c}, DefaultOptions())
	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].Timestamp.Before(got[i-1].Timestamp), "sorted by timestamp")
	}

	assert.Equal(t, "u1", got[0].UserID)
	assert.Len(t, ofType(got, model.AnomalyDuplicateTxID), 2)
	assert.Len(t, ofType(got, model.AnomalyInvalidAction), 1)
	assert.Len(t, ofType(got, model.AnomalyBurst), 1)
	assert.Len(t, ofType(got, model.AnomalyMissingField), 1)
}

func TestDetect_UnknownTimestampsSortLast(t *testing.T) {
	a := entry("u1", "1", time.Time{}, "DEBIT", "1")
	a.Action = "INVALID"
	b := entry("u2", "2", at(0), "DEBIT", "1")
	b.Action = "INVALID"

	got := Detect([]model.LedgerEntry{a, b}, DefaultOptions())
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)
	assert.True(t, got[1].Timestamp.IsZero())
}

func TestDetect_DeterministicAcrossWorkers(t *testing.T) {
	var entries []model.LedgerEntry
	for i := 0; i < 400; i++ {
		e := entry(fmt.Sprintf("user-%02d", i%17), fmt.Sprintf("tx%d", i%150), at(i*700), "DEBIT", fmt.Sprint(i%9))
		if i%5 == 0 {
			e.Source = "MANUAL"
		}
		if i%11 == 0 {
			e.Currency = "SAR"
		}
		entries = append(entries, e)
	}

	serial := DefaultOptions()
	serial.Workers = 1
	want := Detect(entries, serial)
	require.NotEmpty(t, want)

	for _, w := range []int{3, 16} {
		opts := DefaultOptions()
		opts.Workers = w
		assert.Equal(t, want, Detect(entries, opts), "workers=%d", w)
	}
}
