// Package amount converts human-readable decimal amounts to and from the
// smallest denomination unit of a stable currency. The conversion happens
// exactly once at the system boundary; everything inside the pipeline works
// on integers only.
package amount

import (
	"github.com/shopspring/decimal"

	"github.com/giftrail/giftrail/errors"
)

// USDCDecimals is the fixed decimal precision of the default stable currency.
const USDCDecimals = 6

// ToUnits parses a decimal string and returns the amount in smallest units.
// Amounts with more fractional digits than the currency supports are
// rejected, never rounded.
func ToUnits(value string, decimals int32) (int64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, errors.NewValidation("invalid decimal amount").WithCause(err)
	}
	if d.IsNegative() {
		return 0, errors.NewValidation("amount must not be negative")
	}

	units := d.Shift(decimals)
	if !units.IsInteger() {
		return 0, errors.Newf(errors.ErrCodeValidation,
			"amount %s exceeds %d decimal places", value, decimals)
	}
	if !units.BigInt().IsInt64() {
		return 0, errors.NewValidation("amount out of range")
	}
	return units.IntPart(), nil
}

// FromUnits formats a smallest-unit amount as a decimal string with trailing
// zeros trimmed. FromUnits(ToUnits(s)) is numerically equal to s for every
// amount representable at the currency's precision.
func FromUnits(units int64, decimals int32) string {
	return decimal.New(units, -decimals).String()
}

// Equal reports whether two decimal strings denote the same amount.
func Equal(a, b string) bool {
	da, err := decimal.NewFromString(a)
	if err != nil {
		return false
	}
	db, err := decimal.NewFromString(b)
	if err != nil {
		return false
	}
	return da.Equal(db)
}
