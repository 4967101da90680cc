package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mbsaloka/lume-cashier-app/internal/domain"
)

const transactionColumns = `id, items, total, method, created_at`

// CreateTransaction stores the sale and its outbox event in one SQL
// transaction. A non-empty idempotencyKey that was already used returns the
// stored record with created == false.
func (r *Repository) CreateTransaction(ctx context.Context, idempotencyKey string, req *domain.TransactionRequest) (rec *domain.TransactionRecord, created bool, err error) {
	if idempotencyKey != "" {
		existing, err := r.GetTransactionByIdempotencyKey(ctx, idempotencyKey)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, ErrTransactionNotFound) {
			return nil, false, err
		}
	}

	itemsJSON, err := json.Marshal(req.Items)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal transaction items: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	key := sql.NullString{String: idempotencyKey, Valid: idempotencyKey != ""}
	query := `INSERT INTO transactions (id, idempotency_key, items, items_count, total, method, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW())
	          RETURNING ` + transactionColumns

	rec, err = scanTransaction(tx.QueryRowContext(ctx, query,
		uuid.New(),
		key,
		string(itemsJSON),
		domain.ItemsCount(req.Items),
		req.Total,
		req.Method,
	))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && key.Valid {
			// a concurrent request with the same key won the insert
			_ = tx.Rollback()
			existing, getErr := r.GetTransactionByIdempotencyKey(ctx, idempotencyKey)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("insert transaction: %w", err)
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at) VALUES ($1, $2, $3, NOW())`,
		rec.ID, EventTransactionCommitted, string(payload))
	if err != nil {
		return nil, false, fmt.Errorf("insert outbox event: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit transaction: %w", err)
	}
	return rec, true, nil
}

func (r *Repository) GetTransactionByIdempotencyKey(ctx context.Context, key string) (*domain.TransactionRecord, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE idempotency_key = $1`
	rec, err := scanTransaction(r.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query transaction by idempotency key: %w", err)
	}
	return rec, nil
}

// ListTransactions returns records newest first; limit <= 0 means no limit
func (r *Repository) ListTransactions(ctx context.Context, limit int) ([]domain.TransactionRecord, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	records := []domain.TransactionRecord{}
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return records, nil
}

func (r *Repository) Stats(ctx context.Context) (*domain.Stats, error) {
	query := `SELECT COALESCE(SUM(total), 0), COUNT(*), COALESCE(SUM(items_count), 0) FROM transactions`

	var stats domain.Stats
	if err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalSales,
		&stats.TotalTransactions,
		&stats.TotalItemsSold,
	); err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	return &stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.TransactionRecord, error) {
	var rec domain.TransactionRecord
	var itemsJSON []byte
	if err := row.Scan(&rec.ID, &itemsJSON, &rec.Total, &rec.Method, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &rec.Items); err != nil {
		return nil, fmt.Errorf("unmarshal transaction items: %w", err)
	}
	return &rec, nil
}
