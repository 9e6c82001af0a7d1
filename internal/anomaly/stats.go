package anomaly

import (
	"slices"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// median returns the median of values, averaging the two middle values
// for an even count. ok is false for an empty input.
func median(values []decimal.Decimal) (m decimal.Decimal, ok bool) {
	if len(values) == 0 {
		return decimal.Zero, false
	}
	sorted := slices.Clone(values)
	slices.SortFunc(sorted, func(a, b decimal.Decimal) int { return a.Cmp(b) })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return sorted[mid-1].Add(sorted[mid]).Div(two), true
}

// mad returns the median and the median absolute deviation of values.
func mad(values []decimal.Decimal) (med, dev decimal.Decimal, ok bool) {
	med, ok = median(values)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	devs := make([]decimal.Decimal, len(values))
	for i, v := range values {
		devs[i] = v.Sub(med).Abs()
	}
	dev, _ = median(devs)
	return med, dev, true
}
