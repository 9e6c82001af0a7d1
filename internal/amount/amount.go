// Package amount holds the exact-decimal helpers shared by the ledger and
// the detectors: parsing log text, per-currency rounding and tolerance
// comparison. Unknown values are carried as invalid decimal.NullDecimal.
package amount

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrencyDecimals is the precision used for currencies that do not
// settle in hundredths.
var DefaultCurrencyDecimals = map[string]int32{
	"SAR": 3,
	"BHD": 4,
}

// Unknown is the marker for an absent or unparsable value.
var Unknown = decimal.NullDecimal{}

// Known wraps d as a present value.
func Known(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(d)
}

// Parse converts log text to an exact decimal. Blank or unparsable text
// yields Unknown; it never goes through float64.
func Parse(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unknown
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Unknown
	}
	return Known(d)
}

// MustParse is Parse for literals in tests and defaults. It panics on bad input.
func MustParse(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// OrZero returns the value, or zero if unknown.
func OrZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

// Round rounds half away from zero to places decimals. Unknown stays unknown.
func Round(d decimal.NullDecimal, places int32) decimal.NullDecimal {
	if !d.Valid {
		return Unknown
	}
	return Known(d.Decimal.Round(places))
}

// Within reports whether |a-b| <= tol.
func Within(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tol)
}

// Differs reports whether both values are known and further apart than tol.
func Differs(a, b decimal.NullDecimal, tol decimal.Decimal) bool {
	if !a.Valid || !b.Valid {
		return false
	}
	return !Within(a.Decimal, b.Decimal, tol)
}

// Negative reports whether d is known and below zero.
func Negative(d decimal.NullDecimal) bool {
	return d.Valid && d.Decimal.IsNegative()
}

// Format renders d as plain text, or "" when unknown.
func Format(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

// FormatFixed renders d with exactly places decimals, or "" when unknown.
func FormatFixed(d decimal.NullDecimal, places int32) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(places)
}

// Precision resolves the number of decimals for a currency.
type Precision struct {
	Default    int32
	ByCurrency map[string]int32
}

// NewPrecision builds a Precision. A nil or empty byCurrency selects
// DefaultCurrencyDecimals.
func NewPrecision(def int32, byCurrency map[string]int32) Precision {
	if len(byCurrency) == 0 {
		byCurrency = DefaultCurrencyDecimals
	}
	upper := make(map[string]int32, len(byCurrency))
	for k, v := range byCurrency {
		upper[strings.ToUpper(k)] = v
	}
	return Precision{Default: def, ByCurrency: upper}
}

// For returns the decimals for currency, matched case-insensitively.
func (p Precision) For(currency string) int32 {
	if dps, ok := p.ByCurrency[strings.ToUpper(strings.TrimSpace(currency))]; ok {
		return dps
	}
	return p.Default
}
