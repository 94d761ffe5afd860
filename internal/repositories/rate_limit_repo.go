package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bguvava/portfolio/internal/models"
)

// RateLimitRepository defines the storage operations behind the submission limiter
type RateLimitRepository interface {
	// Hit applies one submission attempt for key atomically and reports whether
	// it was admitted. Expired records are pruned as a side effect.
	Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (models.RateLimitRecord, bool, error)

	// Get returns the record for key, or models.ErrNotFound
	Get(ctx context.Context, key string) (models.RateLimitRecord, error)

	// List returns every stored record ordered by key
	List(ctx context.Context) ([]models.RateLimitRecord, error)

	// Reset removes the record for key
	Reset(ctx context.Context, key string) error

	// Prune removes records whose window has passed and returns how many
	Prune(ctx context.Context, now time.Time, window time.Duration) (int64, error)
}

// MemoryRateLimitRepository keeps records in process memory
type MemoryRateLimitRepository struct {
	mu      sync.Mutex
	records map[string]models.RateLimitRecord
}

// NewMemoryRateLimitRepository creates an empty in-memory store
func NewMemoryRateLimitRepository() *MemoryRateLimitRepository {
	return &MemoryRateLimitRepository{records: make(map[string]models.RateLimitRecord)}
}

func (r *MemoryRateLimitRepository) Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (models.RateLimitRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pruneRecords(r.records, now, window)

	current, ok := r.records[key]
	if !ok {
		current = models.RateLimitRecord{Key: key}
	}
	next, allowed := current.Admit(now, window, limit)
	r.records[key] = next
	return next, allowed, nil
}

func (r *MemoryRateLimitRepository) Get(ctx context.Context, key string) (models.RateLimitRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[key]
	if !ok {
		return models.RateLimitRecord{}, models.ErrNotFound
	}
	return record, nil
}

func (r *MemoryRateLimitRepository) List(ctx context.Context) ([]models.RateLimitRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return sortedRecords(r.records), nil
}

func (r *MemoryRateLimitRepository) Reset(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, key)
	return nil
}

func (r *MemoryRateLimitRepository) Prune(ctx context.Context, now time.Time, window time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return pruneRecords(r.records, now, window), nil
}

// pruneRecords deletes expired entries in place
func pruneRecords(records map[string]models.RateLimitRecord, now time.Time, window time.Duration) int64 {
	var removed int64
	for key, record := range records {
		if record.Expired(now, window) {
			delete(records, key)
			removed++
		}
	}
	return removed
}

func sortedRecords(records map[string]models.RateLimitRecord) []models.RateLimitRecord {
	out := make([]models.RateLimitRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
