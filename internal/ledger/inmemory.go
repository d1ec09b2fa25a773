package ledger

import (
	"context"
	"sync"
)

type leg struct {
	code   string
	amount int64
}

type inMemoryLedger struct {
	mu       sync.RWMutex
	balances map[string]int64
	postings map[string]string
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit tests
// and development without Postgres.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		balances: make(map[string]int64),
		postings: make(map[string]string),
	}
}

func (l *inMemoryLedger) EnsureAccount(_ context.Context, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.balances[code]; !exists {
		l.balances[code] = 0
	}
	return nil
}

func (l *inMemoryLedger) Balance(_ context.Context, code string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	balance, exists := l.balances[code]
	if !exists {
		return 0, ErrAccountNotFound
	}
	return balance, nil
}

func (l *inMemoryLedger) Transfer(_ context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error) {
	if amount <= 0 {
		return TransactionResult{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	id, err := l.post(kind, clientTxID, []leg{{fromCode, -amount}, {toCode, amount}}, fromCode)
	return TransactionResult{TransactionID: id, FromBalance: l.balances[fromCode], ToBalance: l.balances[toCode]}, err
}

func (l *inMemoryLedger) Deposit(_ context.Context, walletCode, kind, clientTxID string, amount int64) (PostingResult, error) {
	if amount <= 0 {
		return PostingResult{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.ensureExchange(walletCode)
	id, err := l.post(kind, clientTxID, []leg{{walletCode, amount}, {ExchangeAccount(CoinOf(walletCode)), -amount}}, "")
	return PostingResult{TransactionID: id, WalletBalance: l.balances[walletCode], Status: StatusCompleted}, err
}

func (l *inMemoryLedger) Withdraw(_ context.Context, walletCode, kind, clientTxID string, amount int64) (PostingResult, error) {
	if amount <= 0 {
		return PostingResult{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.ensureExchange(walletCode)
	id, err := l.post(kind, clientTxID, []leg{{walletCode, -amount}, {ExchangeAccount(CoinOf(walletCode)), amount}}, walletCode)
	return PostingResult{TransactionID: id, WalletBalance: l.balances[walletCode], Status: StatusCompleted}, err
}

func (l *inMemoryLedger) Exchange(_ context.Context, fromCode, toCode, clientTxID string, sold, bought int64) (ExchangeResult, error) {
	if sold <= 0 || bought <= 0 {
		return ExchangeResult{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.ensureExchange(fromCode)
	l.ensureExchange(toCode)
	legs := []leg{
		{fromCode, -sold},
		{ExchangeAccount(CoinOf(fromCode)), sold},
		{ExchangeAccount(CoinOf(toCode)), -bought},
		{toCode, bought},
	}
	id, err := l.post(KindSwap, clientTxID, legs, fromCode)
	return ExchangeResult{TransactionID: id, FromBalance: l.balances[fromCode], ToBalance: l.balances[toCode]}, err
}

func (l *inMemoryLedger) ensureExchange(walletCode string) {
	code := ExchangeAccount(CoinOf(walletCode))
	if _, ok := l.balances[code]; !ok {
		l.balances[code] = 0
	}
}

// post applies legs atomically. funded names the account that must not go negative.
// Callers hold the write lock.
func (l *inMemoryLedger) post(kind, clientTxID string, legs []leg, funded string) (string, error) {
	key := kind + ":" + clientTxID
	if _, exists := l.postings[key]; exists {
		return key, ErrDuplicateTransaction
	}

	for _, lg := range legs {
		balance, ok := l.balances[lg.code]
		if !ok {
			return "", ErrAccountNotFound
		}
		if lg.code == funded && balance+lg.amount < 0 {
			return "", ErrInsufficientFunds
		}
	}

	for _, lg := range legs {
		l.balances[lg.code] += lg.amount
	}
	l.postings[key] = StatusCompleted
	return key, nil
}
