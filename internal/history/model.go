package history

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptovault/cryptovault/internal/asset"
)

// Record types.
const (
	TypeSend    = "send"
	TypeReceive = "receive"
	TypeSwap    = "swap"
	TypeBuy     = "buy"
	TypeSell    = "sell"
)

const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
	StatusFailed    = "failed"
)

var validTypes = map[string]bool{TypeSend: true, TypeReceive: true, TypeSwap: true, TypeBuy: true, TypeSell: true}

var validStatuses = map[string]bool{StatusCompleted: true, StatusPending: true, StatusFailed: true}

// ErrInvalidFilter wraps every filter validation failure.
var ErrInvalidFilter = errors.New("invalid history filter")

// Record is one entry in a wallet's transaction history.
type Record struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"owner_id"`
	WalletID      string          `json:"wallet_id"`
	Type          string          `json:"type"`
	Coin          string          `json:"coin"`
	Amount        decimal.Decimal `json:"amount"`
	CounterCoin   string          `json:"counter_coin,omitempty"`
	CounterAmount decimal.Decimal `json:"counter_amount"`
	FiatAmount    decimal.Decimal `json:"fiat_amount"`
	Status        string          `json:"status"`
	Counterpart   string          `json:"counterpart,omitempty"`
	Hash          string          `json:"hash"`
	Details       string          `json:"details,omitempty"`
	OnChain       bool            `json:"on_chain"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Filter narrows a history listing. Zero values match everything.
type Filter struct {
	Type      string
	Coin      string
	Status    string
	From      *time.Time
	To        *time.Time
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	Limit     int
}

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// Validate normalizes the filter and rejects impossible combinations.
func (f *Filter) Validate() error {
	f.Type = strings.ToLower(strings.TrimSpace(f.Type))
	f.Status = strings.ToLower(strings.TrimSpace(f.Status))
	f.Coin = asset.Normalize(f.Coin)

	if f.Type != "" && !validTypes[f.Type] {
		return errors.Join(ErrInvalidFilter, errors.New("unknown type "+f.Type))
	}
	if f.Status != "" && !validStatuses[f.Status] {
		return errors.Join(ErrInvalidFilter, errors.New("unknown status "+f.Status))
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return errors.Join(ErrInvalidFilter, errors.New("from must not be after to"))
	}
	if f.MinAmount != nil && f.MaxAmount != nil && f.MinAmount.GreaterThan(*f.MaxAmount) {
		return errors.Join(ErrInvalidFilter, errors.New("min amount exceeds max amount"))
	}
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	return nil
}

// Matches reports whether r passes the filter.
func (f Filter) Matches(r Record) bool {
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.Coin != "" && r.Coin != f.Coin {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.From != nil && r.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && r.CreatedAt.After(*f.To) {
		return false
	}
	if f.MinAmount != nil && r.Amount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && r.Amount.GreaterThan(*f.MaxAmount) {
		return false
	}
	return true
}
