package chain

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// The chain's token uses 12 decimal places; balances on the wire are plain
// integers of base units.
const (
	TokenDecimals = 12
	TokenSymbol   = "UNI"
)

// FormatBalance renders an amount of base units as a human display string,
// e.g. 1500000000000 -> "1.5 UNI".
func FormatBalance(base uint64) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(base), 0).Shift(-TokenDecimals)
	return d.String() + " " + TokenSymbol
}

// ParseBalance converts a human amount string (e.g. "1.5") into base units.
// Negative amounts and amounts with more than TokenDecimals fractional
// digits are rejected.
func ParseBalance(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount %q is negative", s)
	}

	scaled := d.Shift(TokenDecimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has more than %d decimal places", s, TokenDecimals)
	}

	b := scaled.BigInt()
	if !b.IsUint64() {
		return 0, fmt.Errorf("amount %q overflows the balance type", s)
	}
	return b.Uint64(), nil
}
