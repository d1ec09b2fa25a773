package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists history records.
type Repository interface {
	Insert(ctx context.Context, r Record) error
	List(ctx context.Context, walletID string, f Filter) ([]Record, error)
}

// PostgresRepository stores records in the tx_records table.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, rec Record) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return err
	}
	ownerID, err := uuid.Parse(rec.OwnerID)
	if err != nil {
		return err
	}
	walletID, err := uuid.Parse(rec.WalletID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO tx_records
        (id, owner_id, wallet_id, type, coin, amount, counter_coin, counter_amt, fiat_amount, status, counterpart, hash, details, created_at)
        VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8::numeric, $9::numeric, $10, $11, $12, $13, $14)`,
		id, ownerID, walletID, rec.Type, rec.Coin, rec.Amount.String(), rec.CounterCoin,
		rec.CounterAmount.String(), rec.FiatAmount.String(), rec.Status, rec.Counterpart, rec.Hash, rec.Details, rec.CreatedAt.UTC())
	return err
}

func (r *PostgresRepository) List(ctx context.Context, walletID string, f Filter) ([]Record, error) {
	wid, err := uuid.Parse(walletID)
	if err != nil {
		return nil, nil
	}

	where := []string{"wallet_id = $1"}
	args := []any{wid}
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.Coin != "" {
		add("coin = $%d", f.Coin)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.From != nil {
		add("created_at >= $%d", f.From.UTC())
	}
	if f.To != nil {
		add("created_at <= $%d", f.To.UTC())
	}
	if f.MinAmount != nil {
		add("amount >= $%d::numeric", f.MinAmount.String())
	}
	if f.MaxAmount != nil {
		add("amount <= $%d::numeric", f.MaxAmount.String())
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `SELECT id, owner_id, wallet_id, type, coin, amount::text, counter_coin, counter_amt::text,
        fiat_amount::text, status, counterpart, hash, details, created_at
        FROM tx_records WHERE ` + strings.Join(where, " AND ") +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec                   Record
		id, ownerID, walletID uuid.UUID
		amount, counter, fiat string
		createdAt             time.Time
	)
	if err := row.Scan(&id, &ownerID, &walletID, &rec.Type, &rec.Coin, &amount, &rec.CounterCoin, &counter,
		&fiat, &rec.Status, &rec.Counterpart, &rec.Hash, &rec.Details, &createdAt); err != nil {
		return Record{}, err
	}
	var err error
	if rec.Amount, err = decimal.NewFromString(amount); err != nil {
		return Record{}, err
	}
	if rec.CounterAmount, err = decimal.NewFromString(counter); err != nil {
		return Record{}, err
	}
	if rec.FiatAmount, err = decimal.NewFromString(fiat); err != nil {
		return Record{}, err
	}
	rec.ID = id.String()
	rec.OwnerID = ownerID.String()
	rec.WalletID = walletID.String()
	rec.CreatedAt = createdAt.UTC()
	return rec, nil
}
