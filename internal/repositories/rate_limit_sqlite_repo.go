package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bguvava/portfolio/internal/models"
)

// SQLiteRateLimitRepository stores records in a sqlite table. Timestamps are
// unix milliseconds.
type SQLiteRateLimitRepository struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteRateLimitRepository wraps a database opened with database.OpenSQLite
func NewSQLiteRateLimitRepository(db *sql.DB) *SQLiteRateLimitRepository {
	return &SQLiteRateLimitRepository{db: db}
}

func (r *SQLiteRateLimitRepository) Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (record models.RateLimitRecord, allowed bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.RateLimitRecord{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	cutoff := now.Add(-window).UnixMilli()
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM contact_rate_limits WHERE window_start < ?`, cutoff); err != nil {
		return models.RateLimitRecord{}, false, fmt.Errorf("failed to prune rate limits: %w", err)
	}

	current := models.RateLimitRecord{Key: key}
	var startMs int64
	err = tx.QueryRowContext(ctx,
		`SELECT window_start, count FROM contact_rate_limits WHERE client_key = ?`, key,
	).Scan(&startMs, &current.Count)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = nil
	case err != nil:
		return models.RateLimitRecord{}, false, fmt.Errorf("failed to read rate limit: %w", err)
	default:
		current.WindowStart = time.UnixMilli(startMs)
	}

	record, allowed = current.Admit(now, window, limit)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO contact_rate_limits (client_key, window_start, count)
		VALUES (?, ?, ?)
		ON CONFLICT (client_key) DO UPDATE SET window_start = excluded.window_start, count = excluded.count
	`, key, record.WindowStart.UnixMilli(), record.Count)
	if err != nil {
		return models.RateLimitRecord{}, false, fmt.Errorf("failed to write rate limit: %w", err)
	}

	return record, allowed, nil
}

func (r *SQLiteRateLimitRepository) Get(ctx context.Context, key string) (models.RateLimitRecord, error) {
	record := models.RateLimitRecord{Key: key}
	var startMs int64
	err := r.db.QueryRowContext(ctx,
		`SELECT window_start, count FROM contact_rate_limits WHERE client_key = ?`, key,
	).Scan(&startMs, &record.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RateLimitRecord{}, models.ErrNotFound
	}
	if err != nil {
		return models.RateLimitRecord{}, err
	}
	record.WindowStart = time.UnixMilli(startMs)
	return record, nil
}

func (r *SQLiteRateLimitRepository) List(ctx context.Context) ([]models.RateLimitRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT client_key, window_start, count FROM contact_rate_limits ORDER BY client_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.RateLimitRecord{}
	for rows.Next() {
		var record models.RateLimitRecord
		var startMs int64
		if err := rows.Scan(&record.Key, &startMs, &record.Count); err != nil {
			return nil, err
		}
		record.WindowStart = time.UnixMilli(startMs)
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *SQLiteRateLimitRepository) Reset(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `DELETE FROM contact_rate_limits WHERE client_key = ?`, key)
	return err
}

func (r *SQLiteRateLimitRepository) Prune(ctx context.Context, now time.Time, window time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM contact_rate_limits WHERE window_start < ?`, now.Add(-window).UnixMilli())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
