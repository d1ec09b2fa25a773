package alerts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists alerts.
type Repository interface {
	Create(ctx context.Context, a Alert) error
	Delete(ctx context.Context, ownerID, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]Alert, error)
	// ListActive returns alerts that are untriggered or repeating.
	ListActive(ctx context.Context) ([]Alert, error)
	MarkTriggered(ctx context.Context, id string, at time.Time) error
}

// PostgresRepository stores alerts in price_alerts.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectAlert = `SELECT id, owner_id, coin, threshold::text, direction, repeat, triggered, last_triggered, created_at FROM price_alerts`

func (r *PostgresRepository) Create(ctx context.Context, a Alert) error {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return err
	}
	ownerID, err := uuid.Parse(a.OwnerID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO price_alerts (id, owner_id, coin, threshold, direction, repeat, triggered, created_at)
        VALUES ($1, $2, $3, $4::numeric, $5, $6, FALSE, $7)`,
		id, ownerID, a.Coin, a.Threshold.String(), string(a.Direction), a.Repeat, a.CreatedAt.UTC())
	return err
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id string) error {
	alertID, err := uuid.Parse(id)
	if err != nil {
		return ErrAlertNotFound
	}
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return ErrAlertNotFound
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM price_alerts WHERE id = $1 AND owner_id = $2`, alertID, owner)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]Alert, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return nil, nil
	}
	return r.query(ctx, selectAlert+` WHERE owner_id = $1 ORDER BY created_at DESC`, owner)
}

func (r *PostgresRepository) ListActive(ctx context.Context) ([]Alert, error) {
	return r.query(ctx, selectAlert+` WHERE NOT triggered OR repeat`)
}

func (r *PostgresRepository) MarkTriggered(ctx context.Context, id string, at time.Time) error {
	alertID, err := uuid.Parse(id)
	if err != nil {
		return ErrAlertNotFound
	}
	_, err = r.db.Exec(ctx, `UPDATE price_alerts SET triggered = TRUE, last_triggered = $2 WHERE id = $1`, alertID, at.UTC())
	return err
}

func (r *PostgresRepository) query(ctx context.Context, sql string, args ...any) ([]Alert, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAlert(row pgx.Row) (Alert, error) {
	var (
		a             Alert
		id, ownerID   uuid.UUID
		threshold     string
		direction     string
		lastTriggered *time.Time
	)
	if err := row.Scan(&id, &ownerID, &a.Coin, &threshold, &direction, &a.Repeat, &a.Triggered, &lastTriggered, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Alert{}, ErrAlertNotFound
		}
		return Alert{}, err
	}
	t, err := decimal.NewFromString(threshold)
	if err != nil {
		return Alert{}, err
	}
	a.ID = id.String()
	a.OwnerID = ownerID.String()
	a.Threshold = t
	a.Direction = Direction(direction)
	if lastTriggered != nil {
		utc := lastTriggered.UTC()
		a.LastTriggered = &utc
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}
