package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RateLimitPruner drops expired rate-limit records
type RateLimitPruner interface {
	Prune(ctx context.Context) (int64, error)
}

// SessionTokenCleaner drops CSRF tokens of expired sessions
type SessionTokenCleaner interface {
	CleanupExpired() int
}

// CleanupManager periodically prunes expired rate-limit records and CSRF tokens
type CleanupManager struct {
	limiter  RateLimitPruner
	tokens   SessionTokenCleaner
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	limiter RateLimitPruner,
	tokens SessionTokenCleaner,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		limiter:  limiter,
		tokens:   tokens,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task and blocks until stopped
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pruned, err := cm.limiter.Prune(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to prune rate limit records", slog.Any("error", err))
	} else if pruned > 0 {
		cm.logger.Info("rate limit cleanup completed", slog.Int64("records_deleted", pruned))
	}

	if removed := cm.tokens.CleanupExpired(); removed > 0 {
		cm.logger.Info("csrf token cleanup completed", slog.Int("tokens_deleted", removed))
	}
}

// Stop signals the cleanup manager to stop. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
