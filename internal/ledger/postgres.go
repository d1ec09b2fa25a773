package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists ledger entries in PostgreSQL ensuring double-entry balance.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureAccount guarantees an account exists for the provided code.
func (l *PostgresLedger) EnsureAccount(ctx context.Context, code string) error {
	_, err := l.db.Exec(ctx, `INSERT INTO accounts (id, code) VALUES ($1, $2)
        ON CONFLICT (code) DO NOTHING`, uuid.New(), code)
	return err
}

// Balance returns the summed balance for the specified account code.
func (l *PostgresLedger) Balance(ctx context.Context, code string) (int64, error) {
	const query = `
        SELECT COALESCE(SUM(e.amount), 0)
        FROM accounts a
        LEFT JOIN entries e ON e.account_id = a.id
        WHERE a.code = $1
        GROUP BY a.id`
	var balance int64
	if err := l.db.QueryRow(ctx, query, code).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return balance, nil
}

// Transfer records a balanced posting between two accounts.
func (l *PostgresLedger) Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error) {
	if amount <= 0 {
		return TransactionResult{}, ErrInvalidAmount
	}
	id, bals, err := l.post(ctx, kind, clientTxID, []leg{{fromCode, -amount}, {toCode, amount}}, fromCode)
	return TransactionResult{TransactionID: id, FromBalance: bals[fromCode], ToBalance: bals[toCode]}, err
}

// Deposit credits a wallet account against its coin's exchange account.
func (l *PostgresLedger) Deposit(ctx context.Context, walletCode, kind, clientTxID string, amount int64) (PostingResult, error) {
	if amount <= 0 {
		return PostingResult{}, ErrInvalidAmount
	}
	exchange := ExchangeAccount(CoinOf(walletCode))
	if err := l.EnsureAccount(ctx, exchange); err != nil {
		return PostingResult{}, err
	}
	id, bals, err := l.post(ctx, kind, clientTxID, []leg{{walletCode, amount}, {exchange, -amount}}, "")
	return PostingResult{TransactionID: id, WalletBalance: bals[walletCode], Status: StatusCompleted}, err
}

// Withdraw debits a wallet account into its coin's exchange account.
func (l *PostgresLedger) Withdraw(ctx context.Context, walletCode, kind, clientTxID string, amount int64) (PostingResult, error) {
	if amount <= 0 {
		return PostingResult{}, ErrInvalidAmount
	}
	exchange := ExchangeAccount(CoinOf(walletCode))
	if err := l.EnsureAccount(ctx, exchange); err != nil {
		return PostingResult{}, err
	}
	id, bals, err := l.post(ctx, kind, clientTxID, []leg{{walletCode, -amount}, {exchange, amount}}, walletCode)
	return PostingResult{TransactionID: id, WalletBalance: bals[walletCode], Status: StatusCompleted}, err
}

// Exchange converts sold units of one holding into bought units of another in a single transaction.
func (l *PostgresLedger) Exchange(ctx context.Context, fromCode, toCode, clientTxID string, sold, bought int64) (ExchangeResult, error) {
	if sold <= 0 || bought <= 0 {
		return ExchangeResult{}, ErrInvalidAmount
	}
	fromExchange := ExchangeAccount(CoinOf(fromCode))
	toExchange := ExchangeAccount(CoinOf(toCode))
	for _, code := range []string{fromExchange, toExchange} {
		if err := l.EnsureAccount(ctx, code); err != nil {
			return ExchangeResult{}, err
		}
	}
	legs := []leg{
		{fromCode, -sold},
		{fromExchange, sold},
		{toExchange, -bought},
		{toCode, bought},
	}
	id, bals, err := l.post(ctx, KindSwap, clientTxID, legs, fromCode)
	return ExchangeResult{TransactionID: id, FromBalance: bals[fromCode], ToBalance: bals[toCode]}, err
}

// post writes one transaction with an entry per leg. funded names the account
// that must cover its debit; the returned map holds post-commit balances.
func (l *PostgresLedger) post(ctx context.Context, kind, clientTxID string, legs []leg, funded string) (string, map[string]int64, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", nil, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	ids := make(map[string]uuid.UUID, len(legs))
	for _, code := range lockOrder(legs) {
		id, err := accountIDForCode(ctx, tx, code)
		if err != nil {
			return "", nil, err
		}
		ids[code] = id
	}

	balances := func() (map[string]int64, error) {
		out := make(map[string]int64, len(ids))
		for code, id := range ids {
			bal, err := balanceForAccount(ctx, tx, id)
			if err != nil {
				return nil, err
			}
			out[code] = bal
		}
		return out, nil
	}

	const existingTxQuery = `SELECT id FROM transactions WHERE client_tx_id = $1 AND kind = $2`
	var existingTxID uuid.UUID
	if err := tx.QueryRow(ctx, existingTxQuery, clientTxID, kind).Scan(&existingTxID); err == nil {
		bals, balErr := balances()
		if balErr != nil {
			return "", nil, balErr
		}
		return existingTxID.String(), bals, ErrDuplicateTransaction
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return "", nil, err
	}

	if funded != "" {
		current, err := balanceForAccount(ctx, tx, ids[funded])
		if err != nil {
			return "", nil, err
		}
		for _, lg := range legs {
			if lg.code == funded && current+lg.amount < 0 {
				return "", nil, ErrInsufficientFunds
			}
		}
	}

	txID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO transactions (id, client_tx_id, kind, status) VALUES ($1, $2, $3, $4)`, txID, clientTxID, kind, StatusCompleted); err != nil {
		return "", nil, err
	}
	for _, lg := range legs {
		if _, err := tx.Exec(ctx, `INSERT INTO entries (id, transaction_id, account_id, amount) VALUES ($1, $2, $3, $4)`, uuid.New(), txID, ids[lg.code], lg.amount); err != nil {
			return "", nil, err
		}
	}

	bals, err := balances()
	if err != nil {
		return "", nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", nil, err
	}
	return txID.String(), bals, nil
}

func accountIDForCode(ctx context.Context, tx pgx.Tx, code string) (uuid.UUID, error) {
	const query = `SELECT id FROM accounts WHERE code = $1 FOR UPDATE`
	var id uuid.UUID
	if err := tx.QueryRow(ctx, query, code).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("%w: %s", ErrAccountNotFound, code)
		}
		return uuid.Nil, err
	}
	return id, nil
}

func balanceForAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM entries WHERE account_id = $1`
	var balance int64
	if err := tx.QueryRow(ctx, query, accountID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}

// lockOrder returns the distinct account codes of legs sorted, so concurrent
// postings touching the same accounts take row locks in the same order.
func lockOrder(legs []leg) []string {
	codes := make([]string, 0, len(legs))
	for _, lg := range legs {
		codes = append(codes, lg.code)
	}
	slices.Sort(codes)
	return slices.Compact(codes)
}
