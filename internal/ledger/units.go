package ledger

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Decimals is the fixed precision of ledger units (1 unit = 1e-8 coin).
const Decimals = 8

var maxUnits = decimal.NewFromInt(math.MaxInt64)

// ToUnits converts a coin amount to integer ledger units, truncating extra precision.
func ToUnits(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("negative amount %s", amount)
	}
	shifted := amount.Shift(Decimals).Truncate(0)
	if shifted.GreaterThan(maxUnits) {
		return 0, fmt.Errorf("amount %s out of range", amount)
	}
	return shifted.IntPart(), nil
}

// FromUnits converts ledger units back to a coin amount.
func FromUnits(units int64) decimal.Decimal {
	return decimal.New(units, -Decimals)
}

// FormatUnits renders units as a fixed eight-decimal string.
func FormatUnits(units int64) string {
	return FromUnits(units).StringFixed(Decimals)
}
