package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/bguvava/portfolio/internal/auth"
	"github.com/bguvava/portfolio/internal/models"
	pkglogger "github.com/bguvava/portfolio/pkg/logger"
)

// SubmissionLimiter admits or refuses one submission per call
type SubmissionLimiter interface {
	Allow(ctx context.Context, key string) bool
}

// CSRFStore holds the single live CSRF token of each session
type CSRFStore interface {
	Current(sessionID string) (string, bool)
	Rotate(sessionID string) (string, error)
	Validate(sessionID, submitted string) bool
}

// ContactConfig holds the tunables of the contact pipeline
type ContactConfig struct {
	MinFillTime time.Duration
	SendTimeout time.Duration
}

// ContactRequest is one submission together with where it came from
type ContactRequest struct {
	SessionID  string
	ClientIP   string
	UserAgent  string
	Submission models.Submission
}

// ContactService runs submissions through the gate chain and dispatches
// the ones that pass
type ContactService struct {
	limiter     SubmissionLimiter
	csrf        CSRFStore
	mailer      EmailService
	builder     ContactEmailBuilder
	timing      *auth.TimingDelay
	config      ContactConfig
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

// NewContactService creates a new ContactService. timing may be nil to
// answer spam rejections immediately.
func NewContactService(
	limiter SubmissionLimiter,
	csrf CSRFStore,
	mailer EmailService,
	builder ContactEmailBuilder,
	timing *auth.TimingDelay,
	config ContactConfig,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *ContactService {
	if config.MinFillTime <= 0 {
		config.MinFillTime = models.MinFillTime
	}
	return &ContactService{
		limiter:     limiter,
		csrf:        csrf,
		mailer:      mailer,
		builder:     builder,
		timing:      timing,
		config:      config,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// Submit processes one contact submission and returns the CSRF token the
// client must use next. A nil error means the message was sent.
//
// A rate-limited attempt leaves the session token untouched and echoes it.
// Every other attempt rotates the token exactly once, whatever the outcome.
func (s *ContactService) Submit(ctx context.Context, req *ContactRequest) (string, error) {
	start := s.now()
	return s.gate(ctx, req, func() error {
		return s.process(ctx, req, start)
	})
}

// Reject accounts for an attempt whose body could not be read. It counts
// against the rate limit and rotates the token like any other refusal, and
// always fails with models.ErrUnreadableRequest unless rate limited.
func (s *ContactService) Reject(ctx context.Context, req *ContactRequest, cause error) (string, error) {
	start := s.now()
	return s.gate(ctx, req, func() error {
		s.auditLogger.LogContactEvent(ctx, pkglogger.ContactEvent{
			EventType: pkglogger.EventUnreadableRequest,
			Message:   "Unreadable submission body",
			IPAddress: req.ClientIP,
			Details: map[string]string{
				"error":      pkglogger.TruncateForLog(cause.Error(), 120),
				"user_agent": pkglogger.TruncateForLog(req.UserAgent, 120),
			},
		})
		s.timing.WaitFrom(ctx, start)
		return models.ErrUnreadableRequest
	})
}

// gate applies the rate limit, runs fn when admitted and rotates the token
func (s *ContactService) gate(ctx context.Context, req *ContactRequest, fn func() error) (string, error) {
	if !s.limiter.Allow(ctx, req.ClientIP) {
		s.auditLogger.LogContactEvent(ctx, pkglogger.ContactEvent{
			EventType: pkglogger.EventRateLimitExceeded,
			Message:   "Rate limit exceeded",
			IPAddress: req.ClientIP,
		})
		token, _ := s.csrf.Current(req.SessionID)
		return token, models.ErrRateLimited
	}

	err := fn()

	token, rotateErr := s.rotate(req.SessionID)
	if rotateErr != nil {
		s.logger.Error("failed to rotate csrf token", slog.Any("error", rotateErr))
	}
	return token, err
}

func (s *ContactService) rotate(sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("no session")
	}
	return s.csrf.Rotate(sessionID)
}

// process runs the gates after the rate limit
func (s *ContactService) process(ctx context.Context, req *ContactRequest, start time.Time) error {
	sub := req.Submission

	if !s.csrf.Validate(req.SessionID, sub.CSRFToken) {
		_, hasToken := s.csrf.Current(req.SessionID)
		s.auditLogger.LogContactEvent(ctx, pkglogger.ContactEvent{
			EventType: pkglogger.EventCSRFFailed,
			Message:   "CSRF token validation failed",
			IPAddress: req.ClientIP,
			Details: map[string]string{
				"provided":          pkglogger.TruncateForLog(sub.CSRFToken, 8),
				"session_has_token": strconv.FormatBool(hasToken),
			},
		})
		return models.ErrInvalidCSRF
	}

	if sub.Honeypot != "" {
		s.auditLogger.LogContactEvent(ctx, pkglogger.ContactEvent{
			EventType: pkglogger.EventHoneypotTriggered,
			Message:   "Honeypot trap triggered",
			IPAddress: req.ClientIP,
			Details:   map[string]string{"user_agent": pkglogger.TruncateForLog(req.UserAgent, 120)},
		})
		s.timing.WaitFrom(ctx, start)
		return models.ErrSpamDetected
	}

	if elapsed := start.Sub(sub.FormTime); elapsed < s.config.MinFillTime {
		s.auditLogger.LogContactEvent(ctx, pkglogger.ContactEvent{
			EventType: pkglogger.EventTimingTriggered,
			Message:   "Timing trap triggered",
			IPAddress: req.ClientIP,
			Details:   map[string]string{"elapsed": strconv.FormatFloat(elapsed.Seconds(), 'f', 3, 64)},
		})
		s.timing.WaitFrom(ctx, start)
		return models.ErrSpamDetected
	}

	NormalizeFields(&sub)
	if err := CheckRequired(&sub); err != nil {
		s.logger.Info("contact submission missing fields", slog.Any("error", err))
		return err
	}
	if err := CheckConstraints(&sub); err != nil {
		s.logger.Info("contact submission rejected", slog.Any("error", err))
		return err
	}
	Sanitize(&sub)

	return s.dispatch(ctx, req, &sub)
}

func (s *ContactService) dispatch(ctx context.Context, req *ContactRequest, sub *models.Submission) error {
	msg := s.builder.Build(sub, req.ClientIP, s.now())

	sendCtx := ctx
	if s.config.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.config.SendTimeout)
		defer cancel()
	}

	if err := s.mailer.SendContactEmail(sendCtx, msg); err != nil {
		s.auditLogger.LogContactEvent(ctx, pkglogger.ContactEvent{
			EventType: pkglogger.EventSendFailed,
			Message:   "Email sending failed",
			IPAddress: req.ClientIP,
			Details:   map[string]string{"error": err.Error()},
		})
		return fmt.Errorf("%w: %w", models.ErrSendFailed, err)
	}

	s.auditLogger.LogContactEvent(ctx, pkglogger.ContactEvent{
		EventType: pkglogger.EventSendSucceeded,
		Message:   "Contact form submission successful",
		IPAddress: req.ClientIP,
		Success:   true,
		Details: map[string]string{
			"name":  pkglogger.TruncateForLog(sub.Name, 40),
			"email": pkglogger.SanitizedEmail(sub.Email),
		},
	})
	return nil
}
