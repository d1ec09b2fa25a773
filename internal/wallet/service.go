package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptovault/cryptovault/internal/asset"
	"github.com/cryptovault/cryptovault/internal/ledger"
	"github.com/cryptovault/cryptovault/internal/logging"
)

var (
	// ErrWalletNotFound is returned when no wallet matches.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrNotOwner indicates the caller does not own the wallet.
	ErrNotOwner = errors.New("not owner of wallet")
)

// DemoHoldings seed every new wallet so the simulated flows have something to move.
var DemoHoldings = map[string]string{
	"BTC":  "0.05",
	"ETH":  "1.2",
	"TON":  "100",
	"TRX":  "500",
	"SOL":  "1",
	"XRP":  "100",
	"USDT": "100",
	"USDC": "100",
}

// PasswordVerifier re-checks a user's password before secrets are revealed.
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, userID, password string) error
}

// Service exposes wallet operations backed by the ledger.
type Service struct {
	repo      Repository
	ledger    ledger.Ledger
	sealer    *Sealer
	passwords PasswordVerifier
	logger    *slog.Logger
	seed      map[string]string
}

// NewService builds a wallet service instance.
func NewService(repo Repository, ledger ledger.Ledger, sealer *Sealer, passwords PasswordVerifier, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledger,
		sealer:    sealer,
		passwords: passwords,
		logger:    logging.Component(logger, "wallet"),
		seed:      DemoHoldings,
	}
}

// CreateInput captures data required to create a wallet.
type CreateInput struct {
	OwnerID string
	Label   string
}

// ImportInput restores a wallet from its recovery phrase.
type ImportInput struct {
	OwnerID  string
	Label    string
	Mnemonic string
}

// Create generates a new key pair wallet and its ledger accounts.
func (s *Service) Create(ctx context.Context, input CreateInput) (Wallet, error) {
	mnemonic, err := NewMnemonic()
	if err != nil {
		return Wallet{}, fmt.Errorf("generate mnemonic: %w", err)
	}
	keys, err := DeriveKeys(mnemonic)
	if err != nil {
		return Wallet{}, err
	}
	return s.store(ctx, input.OwnerID, input.Label, keys, false)
}

// Import restores a wallet from an existing recovery phrase.
func (s *Service) Import(ctx context.Context, input ImportInput) (Wallet, error) {
	keys, err := DeriveKeys(input.Mnemonic)
	if err != nil {
		return Wallet{}, err
	}
	return s.store(ctx, input.OwnerID, input.Label, keys, true)
}

func (s *Service) store(ctx context.Context, ownerID, label string, keys Keys, imported bool) (Wallet, error) {
	if _, err := uuid.Parse(ownerID); err != nil {
		return Wallet{}, fmt.Errorf("invalid owner id: %w", err)
	}
	if label == "" {
		label = "Main Wallet"
	}

	walletID := uuid.New().String()
	sealed, err := s.sealer.Seal(walletID, keys.Secrets())
	if err != nil {
		return Wallet{}, err
	}

	for _, coin := range asset.Symbols() {
		if err := s.ledger.EnsureAccount(ctx, ledger.WalletAccount(walletID, coin)); err != nil {
			return Wallet{}, err
		}
	}

	wallet := Wallet{
		ID:            walletID,
		OwnerID:       ownerID,
		Label:         label,
		EVMAddress:    keys.EVMAddress,
		SolanaAddress: keys.SolanaAddress,
		Sealed:        sealed,
		Imported:      imported,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, wallet); err != nil {
		return Wallet{}, err
	}

	for coin, amount := range s.seed {
		units, err := ledger.ToUnits(decimal.RequireFromString(amount))
		if err != nil {
			return Wallet{}, err
		}
		code := ledger.WalletAccount(walletID, coin)
		if _, err := s.ledger.Deposit(ctx, code, ledger.KindSeed, code, units); err != nil && !errors.Is(err, ledger.ErrDuplicateTransaction) {
			return Wallet{}, fmt.Errorf("seed %s: %w", coin, err)
		}
	}

	s.logger.Info("wallet provisioned",
		slog.String("wallet_id", wallet.ID),
		slog.String("owner_id", ownerID),
		slog.String("address", wallet.EVMAddress),
		slog.Bool("imported", imported),
	)
	return wallet, nil
}

// Get retrieves wallet metadata.
func (s *Service) Get(ctx context.Context, id string) (Wallet, error) {
	return s.repo.Get(ctx, id)
}

// Authorize fetches a wallet and checks it belongs to ownerID.
func (s *Service) Authorize(ctx context.Context, ownerID, walletID string) (Wallet, error) {
	w, err := s.repo.Get(ctx, walletID)
	if err != nil {
		return Wallet{}, err
	}
	if w.OwnerID != ownerID {
		return Wallet{}, ErrNotOwner
	}
	return w, nil
}

// GetByOwner returns the owner's most recently created wallet.
func (s *Service) GetByOwner(ctx context.Context, ownerID string) (Wallet, error) {
	wallets, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return Wallet{}, err
	}
	if len(wallets) == 0 {
		return Wallet{}, ErrWalletNotFound
	}
	return wallets[len(wallets)-1], nil
}

// ListByOwner returns all of the owner's wallets.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Wallet, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// FindByAddress resolves a local wallet from one of its addresses.
func (s *Service) FindByAddress(ctx context.Context, address string) (Wallet, error) {
	return s.repo.FindByAddress(ctx, address)
}

// Reveal returns the private key and recovery phrase after re-checking the password.
func (s *Service) Reveal(ctx context.Context, ownerID, walletID, password string) (Secrets, error) {
	w, err := s.Authorize(ctx, ownerID, walletID)
	if err != nil {
		return Secrets{}, err
	}
	if s.passwords != nil {
		if err := s.passwords.VerifyPassword(ctx, ownerID, password); err != nil {
			return Secrets{}, err
		}
	}
	secrets, err := s.sealer.Open(w.ID, w.Sealed)
	if err != nil {
		return Secrets{}, err
	}
	s.logger.Warn("wallet secrets revealed", slog.String("wallet_id", w.ID), slog.String("owner_id", ownerID))
	return secrets, nil
}

// Balance returns the simulated holding of coin.
func (s *Service) Balance(ctx context.Context, walletID, coin string) (Holding, error) {
	c, err := asset.Lookup(coin)
	if err != nil {
		return Holding{}, err
	}
	units, err := s.ledger.Balance(ctx, ledger.WalletAccount(walletID, c.Symbol))
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return Holding{}, ErrWalletNotFound
		}
		return Holding{}, err
	}
	return Holding{Coin: c.Symbol, Units: units, Amount: ledger.FromUnits(units), AsOf: time.Now().UTC()}, nil
}

// Holdings returns every supported coin's holding, alphabetically.
func (s *Service) Holdings(ctx context.Context, walletID string) ([]Holding, error) {
	if _, err := s.repo.Get(ctx, walletID); err != nil {
		return nil, err
	}
	out := make([]Holding, 0, len(asset.Symbols()))
	for _, coin := range asset.Symbols() {
		h, err := s.Balance(ctx, walletID, coin)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// Receive returns the deposit address for coin plus a QR code of it.
func (s *Service) Receive(ctx context.Context, ownerID, walletID, coin string) (ReceiveInfo, error) {
	w, err := s.Authorize(ctx, ownerID, walletID)
	if err != nil {
		return ReceiveInfo{}, err
	}
	addr, err := ReceiveAddress(w, coin)
	if err != nil {
		return ReceiveInfo{}, err
	}
	qr, err := QRCode(addr)
	if err != nil {
		return ReceiveInfo{}, err
	}
	return ReceiveInfo{Coin: asset.Normalize(coin), Address: addr, QRCode: qr}, nil
}
