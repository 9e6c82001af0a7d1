package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AnomalyType names a detector heuristic.
type AnomalyType string

const (
	AnomalyInvalidAction        AnomalyType = "InvalidAction"
	AnomalyMADSpike             AnomalyType = "MADSpike"
	AnomalyDuplicateTxID        AnomalyType = "DuplicateTxId"
	AnomalyMissingField         AnomalyType = "MissingField"
	AnomalyRapidManualDeduction AnomalyType = "RapidManualDeduction"
	AnomalyContinuityBreak      AnomalyType = "ContinuityBreak"
	AnomalyBalanceMismatch      AnomalyType = "BalanceMismatch"
	AnomalyBurst                AnomalyType = "Burst"
	AnomalyCurrencyMismatch     AnomalyType = "CurrencyMismatch"
)

// AnomalyTypes lists every anomaly type in detector pass order.
var AnomalyTypes = []AnomalyType{
	AnomalyInvalidAction,
	AnomalyMADSpike,
	AnomalyDuplicateTxID,
	AnomalyMissingField,
	AnomalyRapidManualDeduction,
	AnomalyContinuityBreak,
	AnomalyBalanceMismatch,
	AnomalyBurst,
	AnomalyCurrencyMismatch,
}

// AnomalyRecord is one flag raised against a ledger entry.
type AnomalyRecord struct {
	Timestamp   time.Time
	UserID      string
	ID          string
	Type        string
	Source      string
	Action      string
	Amount      decimal.NullDecimal
	OldBalance  decimal.NullDecimal
	NewBalance  decimal.NullDecimal
	AnomalyType AnomalyType
	Details     string
}

// AnomalyColumns lists the anomaly table in output order.
var AnomalyColumns = []string{
	"timestamp",
	"userId",
	"id",
	"type",
	"source",
	"action",
	"amount",
	"oldBalance",
	"newBalance",
	"anomalyType",
	"details",
}

// NewAnomaly copies the identifying fields of e into a record.
func NewAnomaly(e LedgerEntry, kind AnomalyType, details string) AnomalyRecord {
	return AnomalyRecord{
		Timestamp:   e.Timestamp,
		UserID:      e.UserID,
		ID:          e.ID,
		Type:        e.Type,
		Source:      e.Source,
		Action:      e.Action,
		Amount:      e.Amount,
		OldBalance:  e.OldBalance,
		NewBalance:  e.NewBalance,
		AnomalyType: kind,
		Details:     details,
	}
}
