package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/bguvava/portfolio/internal/database"
	"github.com/bguvava/portfolio/internal/models"
	"github.com/jackc/pgx/v5"
)

// PostgresRateLimitRepository stores records in contact_rate_limits and
// serializes hits per key with SELECT ... FOR UPDATE
type PostgresRateLimitRepository struct {
	db *database.DB
}

// NewPostgresRateLimitRepository creates a new PostgresRateLimitRepository
func NewPostgresRateLimitRepository(db *database.DB) *PostgresRateLimitRepository {
	return &PostgresRateLimitRepository{db: db}
}

func (r *PostgresRateLimitRepository) Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (models.RateLimitRecord, bool, error) {
	var (
		record  models.RateLimitRecord
		allowed bool
	)

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		// A zero window_start marks a row that has never admitted a hit
		if _, err := tx.Exec(ctx, `
			INSERT INTO contact_rate_limits (client_key, window_start, count)
			VALUES ($1, 'epoch', 0)
			ON CONFLICT (client_key) DO NOTHING
		`, key); err != nil {
			return fmt.Errorf("failed to seed rate limit: %w", err)
		}

		current := models.RateLimitRecord{Key: key}
		if err := tx.QueryRow(ctx, `
			SELECT window_start, count FROM contact_rate_limits
			WHERE client_key = $1
			FOR UPDATE
		`, key).Scan(&current.WindowStart, &current.Count); err != nil {
			return fmt.Errorf("failed to lock rate limit: %w", database.MapPostgresError(err))
		}
		if current.Count == 0 {
			current.WindowStart = time.Time{}
		}

		// Rows held by concurrent hits are left for the next prune
		if _, err := tx.Exec(ctx, `
			DELETE FROM contact_rate_limits WHERE client_key IN (
				SELECT client_key FROM contact_rate_limits
				WHERE window_start < $1 AND client_key <> $2
				FOR UPDATE SKIP LOCKED
			)
		`, now.Add(-window), key); err != nil {
			return fmt.Errorf("failed to prune rate limits: %w", err)
		}

		record, allowed = current.Admit(now, window, limit)

		if _, err := tx.Exec(ctx, `
			UPDATE contact_rate_limits SET window_start = $2, count = $3
			WHERE client_key = $1
		`, key, record.WindowStart, record.Count); err != nil {
			return fmt.Errorf("failed to write rate limit: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.RateLimitRecord{}, false, err
	}
	return record, allowed, nil
}

func (r *PostgresRateLimitRepository) Get(ctx context.Context, key string) (models.RateLimitRecord, error) {
	record := models.RateLimitRecord{Key: key}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT window_start, count FROM contact_rate_limits WHERE client_key = $1 AND count > 0`, key,
	).Scan(&record.WindowStart, &record.Count)
	if err != nil {
		return models.RateLimitRecord{}, database.MapPostgresError(err)
	}
	return record, nil
}

func (r *PostgresRateLimitRepository) List(ctx context.Context) ([]models.RateLimitRecord, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT client_key, window_start, count FROM contact_rate_limits WHERE count > 0 ORDER BY client_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.RateLimitRecord{}
	for rows.Next() {
		var record models.RateLimitRecord
		if err := rows.Scan(&record.Key, &record.WindowStart, &record.Count); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *PostgresRateLimitRepository) Reset(ctx context.Context, key string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM contact_rate_limits WHERE client_key = $1`, key)
	return err
}

func (r *PostgresRateLimitRepository) Prune(ctx context.Context, now time.Time, window time.Duration) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM contact_rate_limits WHERE window_start < $1`, now.Add(-window))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
