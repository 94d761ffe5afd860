package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bguvava/portfolio/internal/config"
	"github.com/bguvava/portfolio/internal/database"
)

// RateLimitStore is an opened rate-limit repository together with its
// backing resources
type RateLimitStore struct {
	Repository RateLimitRepository
	Kind       string

	health func(ctx context.Context) error
	close  func() error
}

// OpenRateLimitStore opens the store selected by cfg.RateLimit.Store. For
// postgres the embedded migrations are applied first when
// cfg.Database.AutoMigrate is set.
func OpenRateLimitStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*RateLimitStore, error) {
	store := &RateLimitStore{Kind: cfg.RateLimit.Store}

	switch cfg.RateLimit.Store {
	case config.StoreMemory:
		store.Repository = NewMemoryRateLimitRepository()

	case config.StoreFile:
		repo, err := NewFileRateLimitRepository(cfg.RateLimit.FilePath)
		if err != nil {
			return nil, err
		}
		store.Repository = repo

	case config.StoreSQLite:
		db, err := database.OpenSQLite(ctx, cfg.RateLimit.SQLitePath)
		if err != nil {
			return nil, err
		}
		store.Repository = NewSQLiteRateLimitRepository(db)
		store.health = db.PingContext
		store.close = db.Close

	case config.StorePostgres:
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, cfg.Database.DSN(), logger); err != nil {
				return nil, err
			}
		}
		db, err := database.NewConnection(&cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		store.Repository = NewPostgresRateLimitRepository(db)
		store.health = db.HealthCheck
		store.close = func() error {
			db.Close()
			return nil
		}

	default:
		return nil, fmt.Errorf("unknown rate limit store %q", cfg.RateLimit.Store)
	}

	logger.Info("rate limit store opened", slog.String("store", store.Kind))
	return store, nil
}

// HealthCheck pings the backing database; stores without one are always healthy
func (s *RateLimitStore) HealthCheck(ctx context.Context) error {
	if s.health == nil {
		return nil
	}
	return s.health(ctx)
}

func (s *RateLimitStore) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
