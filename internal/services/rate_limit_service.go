package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/bguvava/portfolio/internal/repositories"
)

// RateLimitConfig holds configuration for the submission limiter
type RateLimitConfig struct {
	MaxSubmissions int
	Window         time.Duration
}

// RateLimitService counts contact submissions per client within a fixed window
type RateLimitService struct {
	repo   repositories.RateLimitRepository
	config RateLimitConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewRateLimitService creates a new RateLimitService
func NewRateLimitService(repo repositories.RateLimitRepository, config RateLimitConfig, logger *slog.Logger) *RateLimitService {
	return &RateLimitService{
		repo:   repo,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Allow records one submission attempt for key and reports whether it may proceed.
// Store failures fail open: a broken store must not block legitimate visitors.
func (s *RateLimitService) Allow(ctx context.Context, key string) bool {
	record, allowed, err := s.repo.Hit(ctx, key, s.now(), s.config.Window, s.config.MaxSubmissions)
	if err != nil {
		s.logger.Error("failed to check submission rate limit",
			slog.String("ip_address", key),
			slog.Any("error", err))
		return true
	}

	if !allowed {
		s.logger.Warn("submission rate limited",
			slog.String("ip_address", key),
			slog.Int("count", record.Count),
			slog.Time("window_start", record.WindowStart))
	}
	return allowed
}

// Prune removes expired records, returning how many were dropped
func (s *RateLimitService) Prune(ctx context.Context) (int64, error) {
	return s.repo.Prune(ctx, s.now(), s.config.Window)
}
