// Package usd formats amounts as US dollars for display.
package usd

import (
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Invalid is returned by Format when the value is not a number.
const Invalid = "invalid input"

// Format renders v as "$1,234.50". Numbers, decimals and numeric strings are
// accepted; anything else yields Invalid instead of an error. Floats are read
// by their shortest decimal form and half cents round away from zero, so 2.675
// shows as "$2.68". Negatives put the sign before the dollar sign.
func Format(v any) string {
	d, ok := toDecimal(v)
	if !ok {
		return Invalid
	}
	cents := d.Round(2).Shift(2)
	if !cents.BigInt().IsInt64() {
		return Invalid
	}
	return money.New(cents.IntPart(), money.USD).Display()
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero, false
		}
		return *n, true
	case decimal.NullDecimal:
		return n.Decimal, n.Valid
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(n), true
	case float32:
		f := float64(n)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt32(n), true
	case int64:
		return decimal.NewFromInt(n), true
	case uint:
		return decimal.NewFromUint64(uint64(n)), true
	case uint32:
		return decimal.NewFromUint64(uint64(n)), true
	case uint64:
		return decimal.NewFromUint64(n), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}
