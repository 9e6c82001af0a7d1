package report

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatMoney renders d in currency at dps decimals. Known ISO currencies
// get their grapheme and separators; anything else is a plain number.
// Unknown values render as "".
func FormatMoney(d decimal.NullDecimal, currency string, dps int32) string {
	if !d.Valid {
		return ""
	}
	cur := money.GetCurrency(strings.ToUpper(strings.TrimSpace(currency)))
	if cur == nil {
		return d.Decimal.StringFixed(dps)
	}
	f := money.NewFormatter(int(dps), cur.Decimal, cur.Thousand, cur.Grapheme, cur.Template)
	return f.Format(d.Decimal.Round(dps).Shift(dps).IntPart())
}
