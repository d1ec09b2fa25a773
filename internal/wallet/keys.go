package wallet

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

const hardened = bip32.FirstHardenedChild

var (
	// ErrInvalidMnemonic is returned when an imported recovery phrase fails its checksum.
	ErrInvalidMnemonic = errors.New("invalid recovery phrase")

	// m/44'/60'/0'/0/0
	evmPath = []uint32{44 | hardened, 60 | hardened, 0 | hardened, 0, 0}
	// m/44'/501'/0'/0'
	solanaPath = []uint32{44 | hardened, 501 | hardened, 0 | hardened, 0 | hardened}
)

// Keys are the key pairs derived from one recovery phrase.
type Keys struct {
	Mnemonic      string
	EVMKey        *ecdsa.PrivateKey
	EVMAddress    string
	SolanaKey     solana.PrivateKey
	SolanaAddress string
}

// Secrets returns the exportable form of the keys.
func (k Keys) Secrets() Secrets {
	return Secrets{
		PrivateKey:       hexutil.Encode(crypto.FromECDSA(k.EVMKey)),
		SolanaPrivateKey: k.SolanaKey.String(),
		Mnemonic:         k.Mnemonic,
	}
}

// NewMnemonic generates a fresh 12-word recovery phrase.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// DeriveKeys derives the EVM and Solana key pairs from a recovery phrase.
func DeriveKeys(mnemonic string) (Keys, error) {
	mnemonic = strings.Join(strings.Fields(strings.ToLower(mnemonic)), " ")
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return Keys{}, ErrInvalidMnemonic
	}

	node, err := bip32.NewMasterKey(seed)
	if err != nil {
		return Keys{}, fmt.Errorf("derive master key: %w", err)
	}
	for _, index := range evmPath {
		if node, err = node.NewChildKey(index); err != nil {
			return Keys{}, fmt.Errorf("derive evm key: %w", err)
		}
	}
	evmKey, err := crypto.ToECDSA(common.LeftPadBytes(node.Key, 32))
	if err != nil {
		return Keys{}, err
	}

	edNode := masterKey(seed, "ed25519 seed")
	for _, index := range solanaPath {
		edNode = edNode.childEd25519(index)
	}
	solKey := solana.PrivateKey(ed25519.NewKeyFromSeed(edNode.key))

	return Keys{
		Mnemonic:      mnemonic,
		EVMKey:        evmKey,
		EVMAddress:    crypto.PubkeyToAddress(evmKey.PublicKey).Hex(),
		SolanaKey:     solKey,
		SolanaAddress: solKey.PublicKey().String(),
	}, nil
}

// slip10Key is a SLIP-10 ed25519 extended private key. go-bip32 only covers
// secp256k1, so the Solana path is derived here.
type slip10Key struct {
	key   []byte
	chain []byte
}

func masterKey(seed []byte, curveKey string) slip10Key {
	sum := hmac512([]byte(curveKey), seed)
	return slip10Key{key: sum[:32], chain: sum[32:]}
}

// childEd25519 only supports hardened derivation.
func (k slip10Key) childEd25519(index uint32) slip10Key {
	data := append([]byte{0}, k.key...)
	data = binary.BigEndian.AppendUint32(data, index|hardened)
	sum := hmac512(k.chain, data)
	return slip10Key{key: sum[:32], chain: sum[32:]}
}

func hmac512(key, data []byte) []byte {
	mac := hmac.New(sha512.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}
