package asset

import (
	"errors"
	"testing"
)

func TestLookupIsCaseInsensitive(t *testing.T) {
	coin, err := Lookup(" ton ")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if coin.CoinGeckoID != "the-open-network" || coin.CoinCapID != "ton" {
		t.Fatalf("unexpected provider ids: %+v", coin)
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := Lookup("DOGE"); !errors.Is(err, ErrUnknownCoin) {
		t.Fatalf("expected ErrUnknownCoin, got %v", err)
	}
}

func TestSymbolsSorted(t *testing.T) {
	syms := Symbols()
	if len(syms) != 12 {
		t.Fatalf("expected 12 coins, got %d", len(syms))
	}
	for i := 1; i < len(syms); i++ {
		if syms[i-1] > syms[i] {
			t.Fatalf("symbols not sorted: %v", syms)
		}
	}
}
