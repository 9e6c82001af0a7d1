package ledger

import "github.com/cleared-dev/ledgeraudit/internal/model"

// Reconciliation projects the ledger onto the accounting columns.
func Reconciliation(entries []model.LedgerEntry) []model.ReconciliationRow {
	rows := make([]model.ReconciliationRow, len(entries))
	for i, e := range entries {
		rows[i] = model.ReconciliationRow{
			Timestamp:           e.Timestamp,
			UserID:              e.UserID,
			ID:                  e.ID,
			Type:                e.Type,
			Source:              e.Source,
			Action:              e.Action,
			OldBalance:          e.OldBalance,
			Amount:              e.Amount,
			NewBalance:          e.NewBalance,
			ExpectedNewBalance:  e.ExpectedNewBalance,
			BalanceMismatch:     e.BalanceMismatch,
			ContinuityBreak:     e.ContinuityBreak,
			Overdraft:           e.Overdraft,
			OverdraftReason:     e.OverdraftReason,
			SuggestedAdjustment: e.SuggestedAdjustment,
			Decimals:            e.Decimals,
		}
	}
	return rows
}
