package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"floorwatch/database"
	"floorwatch/models"

	"github.com/shopspring/decimal"
)

// HistoryStore keeps the last observed price per tracked item
type HistoryStore interface {
	// GetLast returns nil, nil when the key has never been recorded
	GetLast(ctx context.Context, key string) (*models.HistoryRecord, error)
	Record(ctx context.Context, key string, amount decimal.Decimal, currency models.CurrencyCode, at time.Time) error
}

// HistoryLog is implemented by stores that keep every observation
type HistoryLog interface {
	GetHistory(ctx context.Context, key string, limit int) ([]models.HistoryEntry, error)
}

// HistoryRepository stores history in Postgres or SQLite. The single-slot
// floor_prices row is overwritten and floor_observations is appended in the
// same transaction.
type HistoryRepository struct {
	db *database.DB
}

func NewHistoryRepository(db *database.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// GetLast returns the last recorded price for key
func (r *HistoryRepository) GetLast(ctx context.Context, key string) (*models.HistoryRecord, error) {
	query := r.db.Rebind(`
		SELECT item_key, last_amount, last_currency, recorded_at
		FROM floor_prices
		WHERE item_key = ?
	`)

	var rec models.HistoryRecord
	var currency string
	err := r.db.QueryRowContext(ctx, query, key).Scan(&rec.ItemKey, &rec.LastAmount, &currency, &rec.RecordedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last price: %w", err)
	}
	rec.LastCurrency = models.CurrencyCode(currency)
	rec.RecordedAt = rec.RecordedAt.UTC()
	return &rec, nil
}

// Record overwrites the last price for key and appends to the observation log
func (r *HistoryRepository) Record(ctx context.Context, key string, amount decimal.Decimal, currency models.CurrencyCode, at time.Time) error {
	upsert := r.db.Rebind(`
		INSERT INTO floor_prices (item_key, last_amount, last_currency, recorded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (item_key) DO UPDATE
		SET last_amount = excluded.last_amount,
			last_currency = excluded.last_currency,
			recorded_at = excluded.recorded_at
	`)
	appendLog := r.db.Rebind(`
		INSERT INTO floor_observations (item_key, amount, currency, recorded_at)
		VALUES (?, ?, ?, ?)
	`)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	at = at.UTC()
	if _, err := tx.ExecContext(ctx, upsert, key, amount.String(), string(currency), at); err != nil {
		return fmt.Errorf("failed to record last price: %w", err)
	}
	if _, err := tx.ExecContext(ctx, appendLog, key, amount.String(), string(currency), at); err != nil {
		return fmt.Errorf("failed to add price history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit price record: %w", err)
	}
	return nil
}

// GetHistory returns up to limit observations for key, newest first
func (r *HistoryRepository) GetHistory(ctx context.Context, key string, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.db.Rebind(`
		SELECT id, item_key, amount, currency, recorded_at
		FROM floor_observations
		WHERE item_key = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?
	`)

	rows, err := r.db.QueryContext(ctx, query, key, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		var currency string
		if err := rows.Scan(&e.ID, &e.ItemKey, &e.Amount, &currency, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price history: %w", err)
		}
		e.Currency = models.CurrencyCode(currency)
		e.RecordedAt = e.RecordedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read price history: %w", err)
	}
	return entries, nil
}
