package model

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a loosely typed JSON amount into a decimal.
// Accepts JSON numbers, json.Number, integer types and numeric strings ("12.500", " 60 ").
// Anything else, including empty strings, NaN and booleans, yields an invalid NullDecimal.
func ParseAmount(v any) decimal.NullDecimal {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(decimal.NewFromFloat(x))
	case float32:
		return ParseAmount(float64(x))
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(x)))
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(x))
	case int32:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(x)))
	case json.Number:
		return ParseAmount(string(x))
	case decimal.Decimal:
		return decimal.NewNullDecimal(x)
	case decimal.NullDecimal:
		return x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return decimal.NullDecimal{}
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(d)
	default:
		return decimal.NullDecimal{}
	}
}

// ParseDecimal converts a WooCommerce decimal string ("99.00") to a decimal.
// Empty and invalid strings are zero.
// Examples: "99.00" → 99, "1234.56" → 1234.56, "" → 0
func ParseDecimal(s string) decimal.Decimal {
	nd := ParseAmount(s)
	if !nd.Valid {
		return decimal.Zero
	}
	return nd.Decimal
}

// FromMinorUnits converts a minor-unit amount string to major units.
// The Store API and CoCart report prices this way, e.g. "8900" with minorUnit 2 → 89.00
// and "12500" with minorUnit 3 → 12.500.
func FromMinorUnits(s string, minorUnit int) decimal.Decimal {
	d := ParseDecimal(s)
	if minorUnit <= 0 {
		return d
	}
	return d.Shift(int32(-minorUnit))
}

// FormatAmount renders an amount with a fixed number of decimals ("12.500" for KWD, "9.90" for USD).
func FormatAmount(d decimal.Decimal, places int) string {
	if places < 0 {
		places = 0
	}
	return d.StringFixed(int32(places))
}
