package model

import (
	"strings"
	"time"
)

// Event types emitted by the event source.
const (
	EventBalanceSync            = "BALANCE_SYNC"
	EventSkipCreateSubscription = "SKIP_CREATE_SUBSCRIPTION"
)

// Transaction directions.
const (
	TypeCredit = "CREDIT"
	TypeDebit  = "DEBIT"
)

// UnknownCurrency is the currency recorded when an event carries none.
const UnknownCurrency = "UNKNOWN"

// Event is one record recovered from the service logs.
//
// Monetary fields hold the value exactly as written in the log; an empty
// string means the field was absent, which is not the same as "0".
type Event struct {
	Timestamp time.Time // zero if the line had no parsable timestamp
	UserID    string
	ID        string // transaction id
	MessageID string
	EventType string
	Type      string
	Source    string
	Action    string
	Currency  string

	Amount         string
	VAT            string
	OldBalance     string
	NewBalance     string
	PaymentBalance string

	Raw string // original line, only set for skip events
}

// CurrencyCode returns the upper-cased currency, or UnknownCurrency if blank.
func (e Event) CurrencyCode() string {
	c := strings.ToUpper(strings.TrimSpace(e.Currency))
	if c == "" {
		return UnknownCurrency
	}
	return c
}

// IsBalanceSync reports whether the event changes a balance.
func (e Event) IsBalanceSync() bool {
	return e.EventType == EventBalanceSync
}
