package wallet

import (
	"errors"
	"testing"
)

func TestSealRoundTrip(t *testing.T) {
	s, err := NewSealer("passphrase", 1<<10)
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	in := Secrets{PrivateKey: "0xabc", SolanaPrivateKey: "sol", Mnemonic: abandonMnemonic}

	sealed, err := s.Seal("wallet-1", in)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	out, err := s.Open("wallet-1", sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestSealBoundToWalletAndPassphrase(t *testing.T) {
	s, _ := NewSealer("passphrase", 1<<10)
	other, _ := NewSealer("other", 1<<10)
	sealed, err := s.Seal("wallet-1", Secrets{Mnemonic: "x"})
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := s.Open("wallet-2", sealed); !errors.Is(err, ErrSealBroken) {
		t.Fatalf("expected broken seal for other wallet, got %v", err)
	}
	if _, err := other.Open("wallet-1", sealed); !errors.Is(err, ErrSealBroken) {
		t.Fatalf("expected broken seal for other passphrase, got %v", err)
	}
	if _, err := s.Open("wallet-1", "garbage"); !errors.Is(err, ErrSealBroken) {
		t.Fatalf("expected broken seal for garbage, got %v", err)
	}
}

func TestNewSealerRequiresPassphrase(t *testing.T) {
	if _, err := NewSealer("", 0); err == nil {
		t.Fatalf("expected error")
	}
}
