package repositories

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bguvava/portfolio/internal/database"
	"github.com/bguvava/portfolio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWindow = time.Hour
	testLimit  = 5
)

// baseTime is whole seconds so the file store round-trips it exactly
var baseTime = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func storeFactories(t *testing.T) map[string]func() RateLimitRepository {
	return map[string]func() RateLimitRepository{
		"memory": func() RateLimitRepository {
			return NewMemoryRateLimitRepository()
		},
		"file": func() RateLimitRepository {
			repo, err := NewFileRateLimitRepository(filepath.Join(t.TempDir(), "logs", "rate_limit.json"))
			require.NoError(t, err)
			return repo
		},
		"sqlite": func() RateLimitRepository {
			db, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "rate_limit.db"))
			require.NoError(t, err)
			t.Cleanup(func() { db.Close() })
			return NewSQLiteRateLimitRepository(db)
		},
	}
}

func TestRateLimitRepository_Hit(t *testing.T) {
	for name, newRepo := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("admits up to the limit then refuses", func(t *testing.T) {
				repo := newRepo()
				for i := 1; i <= testLimit; i++ {
					record, allowed, err := repo.Hit(ctx, "203.0.113.7", baseTime.Add(time.Duration(i)*time.Minute), testWindow, testLimit)
					require.NoError(t, err)
					assert.True(t, allowed, "attempt %d", i)
					assert.Equal(t, i, record.Count)
					assert.True(t, record.WindowStart.Equal(baseTime.Add(time.Minute)))
				}

				record, allowed, err := repo.Hit(ctx, "203.0.113.7", baseTime.Add(30*time.Minute), testWindow, testLimit)
				require.NoError(t, err)
				assert.False(t, allowed)
				assert.Equal(t, testLimit, record.Count)
			})

			t.Run("keys are independent", func(t *testing.T) {
				repo := newRepo()
				for i := 0; i < testLimit; i++ {
					_, _, err := repo.Hit(ctx, "198.51.100.1", baseTime, testWindow, testLimit)
					require.NoError(t, err)
				}

				_, allowed, err := repo.Hit(ctx, "198.51.100.2", baseTime, testWindow, testLimit)
				require.NoError(t, err)
				assert.True(t, allowed)
			})

			t.Run("window reopens after expiry", func(t *testing.T) {
				repo := newRepo()
				for i := 0; i < testLimit; i++ {
					_, _, err := repo.Hit(ctx, "192.0.2.10", baseTime, testWindow, testLimit)
					require.NoError(t, err)
				}

				// exactly one window later is still inside the window
				_, allowed, err := repo.Hit(ctx, "192.0.2.10", baseTime.Add(testWindow), testWindow, testLimit)
				require.NoError(t, err)
				assert.False(t, allowed)

				later := baseTime.Add(testWindow + time.Second)
				record, allowed, err := repo.Hit(ctx, "192.0.2.10", later, testWindow, testLimit)
				require.NoError(t, err)
				assert.True(t, allowed)
				assert.Equal(t, 1, record.Count)
				assert.True(t, record.WindowStart.Equal(later))
			})

			t.Run("hit prunes other expired records", func(t *testing.T) {
				repo := newRepo()
				_, _, err := repo.Hit(ctx, "old", baseTime, testWindow, testLimit)
				require.NoError(t, err)

				_, _, err = repo.Hit(ctx, "new", baseTime.Add(2*testWindow), testWindow, testLimit)
				require.NoError(t, err)

				_, err = repo.Get(ctx, "old")
				assert.ErrorIs(t, err, models.ErrNotFound)
			})
		})
	}
}

func TestRateLimitRepository_ConcurrentHits(t *testing.T) {
	for name, newRepo := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			repo := newRepo()
			ctx := context.Background()

			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				admitted int
			)
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, allowed, err := repo.Hit(ctx, "203.0.113.50", baseTime, testWindow, testLimit)
					assert.NoError(t, err)
					if allowed {
						mu.Lock()
						admitted++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, testLimit, admitted)
			record, err := repo.Get(ctx, "203.0.113.50")
			require.NoError(t, err)
			assert.Equal(t, testLimit, record.Count)
		})
	}
}

func TestRateLimitRepository_ListResetPrune(t *testing.T) {
	for name, newRepo := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			repo := newRepo()
			ctx := context.Background()

			_, _, err := repo.Hit(ctx, "b", baseTime, testWindow, testLimit)
			require.NoError(t, err)
			_, _, err = repo.Hit(ctx, "a", baseTime.Add(10*time.Minute), testWindow, testLimit)
			require.NoError(t, err)

			records, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.Equal(t, "a", records[0].Key)
			assert.Equal(t, "b", records[1].Key)

			require.NoError(t, repo.Reset(ctx, "a"))
			require.NoError(t, repo.Reset(ctx, "missing"))
			_, err = repo.Get(ctx, "a")
			assert.ErrorIs(t, err, models.ErrNotFound)

			removed, err := repo.Prune(ctx, baseTime.Add(30*time.Minute), testWindow)
			require.NoError(t, err)
			assert.Equal(t, int64(0), removed)

			removed, err = repo.Prune(ctx, baseTime.Add(testWindow+time.Second), testWindow)
			require.NoError(t, err)
			assert.Equal(t, int64(1), removed)

			records, err = repo.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, records)
		})
	}
}
