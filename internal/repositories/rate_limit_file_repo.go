package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bguvava/portfolio/internal/models"
)

// fileEntry is the on-disk shape: {"<ip>": {"timestamp": <unix seconds>, "count": n}}
type fileEntry struct {
	Timestamp int64 `json:"timestamp"`
	Count     int   `json:"count"`
}

// FileRateLimitRepository persists records in a single JSON document.
// Every mutation rewrites the whole file through a temp file and rename.
// Access is serialized across processes through an advisory lock on
// "<path>.lock".
type FileRateLimitRepository struct {
	mu   sync.Mutex
	path string
}

// NewFileRateLimitRepository creates the parent directory of path if needed
func NewFileRateLimitRepository(path string) (*FileRateLimitRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create rate limit directory: %w", err)
	}
	return &FileRateLimitRepository{path: path}, nil
}

func (r *FileRateLimitRepository) Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (models.RateLimitRecord, bool, error) {
	var (
		next    models.RateLimitRecord
		allowed bool
	)
	err := r.withLock(func() error {
		records, err := r.load()
		if err != nil {
			return err
		}

		pruneRecords(records, now, window)

		current, ok := records[key]
		if !ok {
			current = models.RateLimitRecord{Key: key}
		}
		next, allowed = current.Admit(now, window, limit)
		records[key] = next
		return r.save(records)
	})
	if err != nil {
		return models.RateLimitRecord{}, false, err
	}
	return next, allowed, nil
}

func (r *FileRateLimitRepository) Get(ctx context.Context, key string) (models.RateLimitRecord, error) {
	var record models.RateLimitRecord
	err := r.withLock(func() error {
		records, err := r.load()
		if err != nil {
			return err
		}
		var ok bool
		if record, ok = records[key]; !ok {
			return models.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return models.RateLimitRecord{}, err
	}
	return record, nil
}

func (r *FileRateLimitRepository) List(ctx context.Context) ([]models.RateLimitRecord, error) {
	var list []models.RateLimitRecord
	err := r.withLock(func() error {
		records, err := r.load()
		if err != nil {
			return err
		}
		list = sortedRecords(records)
		return nil
	})
	return list, err
}

func (r *FileRateLimitRepository) Reset(ctx context.Context, key string) error {
	return r.withLock(func() error {
		records, err := r.load()
		if err != nil {
			return err
		}
		if _, ok := records[key]; !ok {
			return nil
		}
		delete(records, key)
		return r.save(records)
	})
}

func (r *FileRateLimitRepository) Prune(ctx context.Context, now time.Time, window time.Duration) (int64, error) {
	var removed int64
	err := r.withLock(func() error {
		records, err := r.load()
		if err != nil {
			return err
		}
		if removed = pruneRecords(records, now, window); removed == 0 {
			return nil
		}
		return r.save(records)
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// withLock runs fn holding both the in-process mutex and an exclusive lock
// on the sidecar lock file, so a CLI and the server can share one document.
// The data file itself is replaced on every save and cannot carry the lock.
func (r *FileRateLimitRepository) withLock(fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.lockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open rate limit lock: %w", err)
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return fmt.Errorf("failed to lock rate limit file: %w", err)
	}
	defer unlockFile(f)

	return fn()
}

func (r *FileRateLimitRepository) lockPath() string {
	return r.path + ".lock"
}

// load reads the document. A missing or empty file is an empty store.
func (r *FileRateLimitRepository) load() (map[string]models.RateLimitRecord, error) {
	records := make(map[string]models.RateLimitRecord)

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rate limit file: %w", err)
	}
	if len(data) == 0 {
		return records, nil
	}

	var entries map[string]fileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode rate limit file: %w", err)
	}
	for key, entry := range entries {
		records[key] = models.RateLimitRecord{
			Key:         key,
			WindowStart: time.Unix(entry.Timestamp, 0),
			Count:       entry.Count,
		}
	}
	return records, nil
}

func (r *FileRateLimitRepository) save(records map[string]models.RateLimitRecord) error {
	entries := make(map[string]fileEntry, len(records))
	for key, record := range records {
		entries[key] = fileEntry{Timestamp: record.WindowStart.Unix(), Count: record.Count}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode rate limit file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".rate_limit-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write rate limit file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close rate limit file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace rate limit file: %w", err)
	}
	return nil
}
