package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Overdraft reasons.
const (
	OverdraftExpected = "expected<0"
	OverdraftActual   = "actual<0"
	OverdraftBoth     = "expected balance < 0, actual balance < 0"
)

// LedgerEntry is a reconciled balance-sync transaction.
//
// Monetary fields use decimal.NullDecimal; Valid=false marks a value that
// was absent or unparsable.
type LedgerEntry struct {
	Timestamp time.Time
	UserID    string
	ID        string
	MessageID string
	EventType string
	Type      string
	Source    string
	Action    string
	Currency  string

	Amount         decimal.NullDecimal
	VAT            decimal.NullDecimal
	OldBalance     decimal.NullDecimal
	NewBalance     decimal.NullDecimal
	PaymentBalance decimal.NullDecimal

	// Decimals is the precision applied to this entry's currency.
	Decimals int32

	ExpectedNewBalance  decimal.NullDecimal
	BalanceMismatch     bool
	Overdraft           bool
	OverdraftReason     string // empty when no overdraft
	SuggestedAdjustment decimal.Decimal
	ContinuityBreak     bool
}

// IsCredit reports whether the entry is a credit, ignoring case.
func (e LedgerEntry) IsCredit() bool { return strings.ToUpper(e.Type) == TypeCredit }

// IsDebit reports whether the entry is a debit, ignoring case.
func (e LedgerEntry) IsDebit() bool { return strings.ToUpper(e.Type) == TypeDebit }

// ReconciliationRow is the accounting projection of a LedgerEntry.
type ReconciliationRow struct {
	Timestamp           time.Time
	UserID              string
	ID                  string
	Type                string
	Source              string
	Action              string
	OldBalance          decimal.NullDecimal
	Amount              decimal.NullDecimal
	NewBalance          decimal.NullDecimal
	ExpectedNewBalance  decimal.NullDecimal
	BalanceMismatch     bool
	ContinuityBreak     bool
	Overdraft           bool
	OverdraftReason     string
	SuggestedAdjustment decimal.Decimal
	Decimals            int32
}

// ReconciliationColumns lists the reconciliation view in output order.
var ReconciliationColumns = []string{
	"timestamp",
	"userId",
	"id",
	"type",
	"source",
	"action",
	"oldBalance",
	"amount",
	"newBalance",
	"expectedNewBalance",
	"balanceMismatch",
	"continuityBreak",
	"overdraft",
	"overdraftReason",
	"suggestedAdjustment",
}

// LedgerColumns lists every ledger column in output order.
var LedgerColumns = []string{
	"timestamp",
	"userId",
	"id",
	"messageId",
	"eventType",
	"type",
	"source",
	"action",
	"currency",
	"amount",
	"vat",
	"oldBalance",
	"newBalance",
	"paymentBalance",
	"expectedNewBalance",
	"balanceMismatch",
	"overdraft",
	"overdraftReason",
	"suggestedAdjustment",
	"continuityBreak",
}
