package wallet

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/skip2/go-qrcode"

	"github.com/cryptovault/cryptovault/internal/asset"
)

var (
	// ErrEmptyAddress is returned when no recipient address was given.
	ErrEmptyAddress = errors.New("recipient address is required")
	// ErrInvalidAddress is returned when the address does not match the coin's format.
	ErrInvalidAddress = errors.New("invalid recipient address")
)

// ValidateAddress checks that address is well formed for coin.
func ValidateAddress(coin, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return ErrEmptyAddress
	}
	c, err := asset.Lookup(coin)
	if err != nil {
		return err
	}
	switch c.Family {
	case asset.FamilyEVM:
		if !common.IsHexAddress(address) {
			return fmt.Errorf("%w: expected 0x-prefixed hex address", ErrInvalidAddress)
		}
	case asset.FamilySolana:
		if _, err := solana.PublicKeyFromBase58(address); err != nil {
			return fmt.Errorf("%w: expected base58 public key", ErrInvalidAddress)
		}
	default:
		if len(address) < 20 || strings.ContainsAny(address, " \t\r\n") {
			return ErrInvalidAddress
		}
	}
	return nil
}

// ReceiveAddress returns the address of w that receives coin.
func ReceiveAddress(w Wallet, coin string) (string, error) {
	c, err := asset.Lookup(coin)
	if err != nil {
		return "", err
	}
	if c.Family == asset.FamilySolana {
		return w.SolanaAddress, nil
	}
	return w.EVMAddress, nil
}

// QRCode renders content as a base64 PNG.
func QRCode(content string) (string, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}
	png, err := qr.PNG(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate PNG: %w", err)
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
