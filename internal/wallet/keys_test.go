package wallet

import (
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

const abandonMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestDeriveKeysKnownVector(t *testing.T) {
	keys, err := DeriveKeys(abandonMnemonic)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if keys.EVMAddress != "0x9858EfFD232B4033E47d90003D41EC34EcaEda94" {
		t.Fatalf("unexpected EVM address %s", keys.EVMAddress)
	}
	if keys.SolanaAddress != "HAgk14JpMQLgt6rVgv7cBQFJWFto5Dqxi472uT3DKpqk" {
		t.Fatalf("unexpected Solana address %s", keys.SolanaAddress)
	}
}

func TestDeriveKeysNormalizesWhitespace(t *testing.T) {
	a, err := DeriveKeys(abandonMnemonic)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	b, err := DeriveKeys("  " + strings.ToUpper(strings.ReplaceAll(abandonMnemonic, " ", "   ")) + "\n")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if a.EVMAddress != b.EVMAddress || a.SolanaAddress != b.SolanaAddress {
		t.Fatalf("expected identical keys after normalization")
	}
}

func TestNewMnemonicRoundTrip(t *testing.T) {
	m, err := NewMnemonic()
	if err != nil {
		t.Fatalf("mnemonic: %v", err)
	}
	if n := len(strings.Fields(m)); n != 12 {
		t.Fatalf("expected 12 words, got %d", n)
	}
	keys, err := DeriveKeys(m)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !common.IsHexAddress(keys.EVMAddress) {
		t.Fatalf("invalid address %s", keys.EVMAddress)
	}
	if err := ValidateAddress("SOL", keys.SolanaAddress); err != nil {
		t.Fatalf("solana address invalid: %v", err)
	}
	secrets := keys.Secrets()
	if !strings.HasPrefix(secrets.PrivateKey, "0x") || len(secrets.PrivateKey) != 66 {
		t.Fatalf("unexpected private key encoding %q", secrets.PrivateKey)
	}
}

func TestDeriveKeysBadChecksum(t *testing.T) {
	bad := strings.Replace(abandonMnemonic, "about", "abandon", 1)
	if _, err := DeriveKeys(bad); !errors.Is(err, ErrInvalidMnemonic) {
		t.Fatalf("expected invalid mnemonic, got %v", err)
	}
}
