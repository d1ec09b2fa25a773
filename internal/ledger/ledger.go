package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cryptovault/cryptovault/internal/asset"
)

var (
	// ErrInsufficientFunds occurs when the source account lacks available balance
	// to cover a requested posting.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTransaction indicates the provided client transaction identifier
	// already exists and therefore the operation should be treated as idempotent.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrAccountNotFound is returned when posting against an account that was never ensured.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidAmount rejects zero or negative postings.
	ErrInvalidAmount = errors.New("amount must be positive")
)

const (
	// StatusCompleted is the status of every simulated posting.
	StatusCompleted = "completed"

	KindSeed     = "seed"
	KindSend     = "send"
	KindReceive  = "receive"
	KindTransfer = "transfer"
	KindSwap     = "swap"
	KindBuy      = "buy"
	KindSell     = "sell"
)

// TransactionResult captures the outcome of a ledger posting between two accounts.
type TransactionResult struct {
	TransactionID string
	FromBalance   int64
	ToBalance     int64
}

// PostingResult captures a one-sided movement against the exchange counterparty.
type PostingResult struct {
	TransactionID string
	WalletBalance int64
	Status        string
}

// ExchangeResult describes a swap of one holding into another.
type ExchangeResult struct {
	TransactionID string
	FromBalance   int64
	ToBalance     int64
}

// Ledger defines the contract implemented by ledger backends (e.g. Postgres).
// Wallet holdings live in accounts named by WalletAccount; the simulated
// outside world is the per-coin ExchangeAccount, which may run negative.
type Ledger interface {
	EnsureAccount(ctx context.Context, code string) error
	Balance(ctx context.Context, code string) (int64, error)
	Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error)
	Deposit(ctx context.Context, walletCode, kind, clientTxID string, amount int64) (PostingResult, error)
	Withdraw(ctx context.Context, walletCode, kind, clientTxID string, amount int64) (PostingResult, error)
	Exchange(ctx context.Context, fromCode, toCode, clientTxID string, sold, bought int64) (ExchangeResult, error)
}

// WalletAccount is the account code holding coin for walletID.
func WalletAccount(walletID, coin string) string {
	return fmt.Sprintf("wallet:%s:%s", walletID, asset.Normalize(coin))
}

// ScopedTxID namespaces a caller-supplied client transaction id to walletID so
// identical ids from different wallets never collide.
func ScopedTxID(walletID, clientTxID string) string {
	return walletID + ":" + clientTxID
}

// ExchangeAccount is the counterparty account for coin.
func ExchangeAccount(coin string) string {
	return "exchange:" + asset.Normalize(coin)
}

// CoinOf extracts the coin symbol from an account code.
func CoinOf(code string) string {
	if i := strings.LastIndex(code, ":"); i >= 0 {
		return code[i+1:]
	}
	return code
}
