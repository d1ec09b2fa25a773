package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestToUnitsTruncates(t *testing.T) {
	units, err := ToUnits(decimal.RequireFromString("0.123456789"))
	if err != nil {
		t.Fatalf("to units: %v", err)
	}
	if units != 12_345_678 {
		t.Fatalf("expected 12345678, got %d", units)
	}
	if got := FormatUnits(units); got != "0.12345678" {
		t.Fatalf("unexpected format %s", got)
	}
}

func TestToUnitsRejectsNegative(t *testing.T) {
	if _, err := ToUnits(decimal.NewFromInt(-1)); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}

func TestAccountCodes(t *testing.T) {
	code := WalletAccount("w1", "sol")
	if code != "wallet:w1:SOL" {
		t.Fatalf("unexpected code %s", code)
	}
	if CoinOf(code) != "SOL" || ExchangeAccount("sol") != "exchange:SOL" {
		t.Fatalf("unexpected coin mapping for %s", code)
	}
}
