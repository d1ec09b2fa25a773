package history

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/cryptovault/cryptovault/internal/chain"
	"github.com/cryptovault/cryptovault/internal/logging"
)

// ChainHistory lists on-chain transfers for an address.
type ChainHistory interface {
	Transactions(ctx context.Context, address string) []chain.Transfer
}

// Service records simulated transactions and lists wallet history.
type Service struct {
	repo   Repository
	chain  ChainHistory
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a history service. chain may be nil.
func NewService(repo Repository, chain ChainHistory, logger *slog.Logger) *Service {
	return &Service{repo: repo, chain: chain, logger: logging.Component(logger, "history"), now: time.Now}
}

// NewHash returns a transaction-hash-shaped identifier for a simulated record.
func NewHash(parts ...string) string {
	return crypto.Keccak256Hash([]byte(strings.Join(parts, "|")), []byte(uuid.NewString())).Hex()
}

// Prepare fills identifier, hash, status and timestamp when unset.
func (s *Service) Prepare(rec Record) Record {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = StatusCompleted
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	if rec.Hash == "" {
		rec.Hash = NewHash(rec.WalletID, rec.Type, rec.Coin, rec.Amount.String())
	}
	return rec
}

// Record prepares and stores rec.
func (s *Service) Record(ctx context.Context, rec Record) (Record, error) {
	rec = s.Prepare(rec)
	if !validTypes[rec.Type] {
		return Record{}, fmt.Errorf("unknown record type %q", rec.Type)
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("store history record: %w", err)
	}
	return rec, nil
}

// ListInput selects a wallet's history.
type ListInput struct {
	WalletID string
	// Address enables merging on-chain transfers when set.
	Address string
	Filter  Filter
}

// List returns records newest first. On-chain transfers for Address are
// merged in and filtered the same way.
func (s *Service) List(ctx context.Context, in ListInput) ([]Record, error) {
	if err := in.Filter.Validate(); err != nil {
		return nil, err
	}
	out, err := s.repo.List(ctx, in.WalletID, in.Filter)
	if err != nil {
		return nil, err
	}
	if in.Address == "" || s.chain == nil {
		return out, nil
	}

	for _, tr := range s.chain.Transactions(ctx, in.Address) {
		rec := fromTransfer(in.WalletID, in.Address, tr)
		if in.Filter.Matches(rec) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > in.Filter.Limit {
		out = out[:in.Filter.Limit]
	}
	return out, nil
}

func fromTransfer(walletID, address string, tr chain.Transfer) Record {
	rec := Record{
		ID:        tr.Hash,
		WalletID:  walletID,
		Type:      TypeReceive,
		Coin:      strings.ToUpper(tr.Symbol),
		Amount:    tr.Value,
		Status:    StatusCompleted,
		Hash:      tr.Hash,
		OnChain:   true,
		CreatedAt: tr.Timestamp,
	}
	rec.Counterpart = tr.From
	if strings.EqualFold(tr.From, address) {
		rec.Type = TypeSend
		rec.Counterpart = tr.To
	}
	if tr.Failed {
		rec.Status = StatusFailed
	}
	rec.Details = fmt.Sprintf("%s %s %s on-chain", rec.Type, rec.Amount.String(), rec.Coin)
	return rec
}

// ShortAddress renders 0x1234...abcd style abbreviations.
func ShortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
