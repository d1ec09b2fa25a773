package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

const (
	// DefaultScryptN keeps a seal/open under ~100ms on a server core.
	DefaultScryptN = 1 << 15
	scryptR        = 8
	scryptP        = 1
	scryptKeyLen   = 32
	saltLen        = 32
	nonceLen       = 12
	envelopeV1     = 1
)

// ErrSealBroken is returned when a sealed secret cannot be opened.
var ErrSealBroken = errors.New("wallet secret cannot be decrypted")

type envelope struct {
	Version    int    `json:"v"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"ct"`
}

// Sealer encrypts wallet secrets with a key derived from a server passphrase.
// The wallet ID is bound as additional data so envelopes cannot be swapped.
type Sealer struct {
	passphrase []byte
	n          int
}

// NewSealer builds a sealer. n is the scrypt cost; zero selects DefaultScryptN.
func NewSealer(passphrase string, n int) (*Sealer, error) {
	if passphrase == "" {
		return nil, errors.New("wallet encryption passphrase is required")
	}
	if n == 0 {
		n = DefaultScryptN
	}
	return &Sealer{passphrase: []byte(passphrase), n: n}, nil
}

// Seal encrypts secrets for walletID.
func (s *Sealer) Seal(walletID string, secrets Secrets) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	aead, err := s.aead(salt)
	if err != nil {
		return "", err
	}

	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return "", fmt.Errorf("failed to marshal secrets: %w", err)
	}
	defer clear(plaintext)

	env := envelope{
		Version:    envelopeV1,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		CipherText: base64.StdEncoding.EncodeToString(aead.Seal(nil, nonce, plaintext, []byte(walletID))),
	}
	out, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal for the same walletID.
func (s *Sealer) Open(walletID, sealed string) (Secrets, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return Secrets{}, ErrSealBroken
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Version != envelopeV1 {
		return Secrets{}, ErrSealBroken
	}
	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return Secrets{}, ErrSealBroken
	}
	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return Secrets{}, ErrSealBroken
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.CipherText)
	if err != nil {
		return Secrets{}, ErrSealBroken
	}

	aead, err := s.aead(salt)
	if err != nil {
		return Secrets{}, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(walletID))
	if err != nil {
		return Secrets{}, ErrSealBroken
	}
	defer clear(plaintext)

	var secrets Secrets
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return Secrets{}, ErrSealBroken
	}
	return secrets, nil
}

func (s *Sealer) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(s.passphrase, salt, s.n, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}
