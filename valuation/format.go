package valuation

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatCommon renders a common-unit integer as a decimal string, e.g.
// 100000000 at precision 6 -> "100.000000".
func FormatCommon(v *big.Int, precision uint32) string {
	return decimal.NewFromBigInt(v, -int32(precision)).StringFixed(int32(precision))
}

// ParseCommon parses a decimal string like "1000.50" into a common-unit
// integer at the given precision. Fractional digits beyond the precision are
// rejected rather than silently rounded: cap values must be exact.
func ParseCommon(s string, precision uint32) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse common-unit value %q: %w", s, err)
	}
	scaled := d.Shift(int32(precision))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("parse common-unit value %q: more than %d fractional digits", s, precision)
	}
	return scaled.BigInt(), nil
}
