package report

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/cleared-dev/ledgeraudit/internal/amount"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		currency string
		dps      int32
		want     string
	}{
		{"usd", "1234.5", "USD", 2, "$1,234.50"},
		{"usd lower case", "0.01", "usd", 2, "$0.01"},
		{"negative", "-0.01", "USD", 2, "-$0.01"},
		{"sar at three places", "10.1225", "SAR", 3, "10.123 \ufdfc"},
		{"unknown currency", "10.1225", "UNKNOWN", 3, "10.123"},
		{"blank currency", "7", "", 2, "7.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMoney(amount.Parse(tt.value), tt.currency, tt.dps))
		})
	}

	assert.Empty(t, FormatMoney(amount.Unknown, "USD", 2))
}

func amountOf(i int) decimal.NullDecimal {
	return amount.Known(decimal.NewFromInt(int64(i)))
}
