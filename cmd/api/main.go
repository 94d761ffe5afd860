package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bguvava/portfolio/internal/auth"
	"github.com/bguvava/portfolio/internal/background"
	"github.com/bguvava/portfolio/internal/config"
	"github.com/bguvava/portfolio/internal/handlers"
	middlewareCustom "github.com/bguvava/portfolio/internal/middleware"
	"github.com/bguvava/portfolio/internal/repositories"
	"github.com/bguvava/portfolio/internal/routes"
	"github.com/bguvava/portfolio/internal/services"
	pkghttp "github.com/bguvava/portfolio/pkg/http"
	pkglogger "github.com/bguvava/portfolio/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Rate limit store
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := repositories.OpenRateLimitStore(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("failed to open rate limit store", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	// Daily contact event log
	eventLog, err := pkglogger.NewDailyFile(cfg.Contact.LogDir, "contact_form")
	if err != nil {
		logger.Error("failed to open contact event log", slog.Any("error", err))
		os.Exit(1)
	}
	defer eventLog.Close()
	auditLogger := pkglogger.NewAuditLogger(logger, eventLog)

	// Sessions and CSRF tokens
	sessionManager, err := auth.NewSessionManager(cfg.Session.Secret, cfg.Session.TTL)
	if err != nil {
		logger.Error("failed to initialize session manager", slog.Any("error", err))
		os.Exit(1)
	}
	csrfManager := auth.NewCSRFTokenManager(cfg.Session.TTL)
	cookieConfig := auth.CookieConfig{
		Name:     cfg.Session.CookieName,
		Secure:   cfg.Server.Env == "production",
		SameSite: cfg.Session.SameSite,
	}

	// Rate limiting service
	rateLimitService := services.NewRateLimitService(store.Repository, services.RateLimitConfig{
		MaxSubmissions: cfg.RateLimit.MaxSubmissions,
		Window:         cfg.RateLimit.Window,
	}, logger)

	// Timing delay for silent rejections
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Contact.RejectDelayBaseMs,
		RandomDelayMs: cfg.Contact.RejectDelayRandomMs,
	})

	// Mail transport
	emailService, err := services.NewEmailService(cfg.Mail, logger)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}
	builder := services.ContactEmailBuilder{
		FromAddress:   cfg.Mail.FromAddress,
		FromName:      cfg.Mail.FromName,
		ToAddress:     cfg.Mail.ToAddress,
		ToName:        cfg.Mail.ToName,
		SubjectPrefix: cfg.Contact.SubjectPrefix,
		SiteName:      cfg.Contact.SiteName,
	}

	contactService := services.NewContactService(
		rateLimitService,
		csrfManager,
		emailService,
		builder,
		timingDelay,
		services.ContactConfig{
			MinFillTime: cfg.Contact.MinFillTime,
			SendTimeout: cfg.Contact.SendTimeout,
		},
		logger,
		auditLogger,
	)

	// Handlers
	ipConfig := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	pageHandler, err := handlers.NewPageHandler(cfg.Contact.SiteName, logger)
	if err != nil {
		logger.Error("failed to load page templates", slog.Any("error", err))
		os.Exit(1)
	}
	contactHandler := handlers.NewContactHandler(contactService, ipConfig, logger)
	healthHandler := handlers.NewHealthHandler(store.Kind, store.HealthCheck, logger)

	burstLimit := middlewareCustom.DefaultContactRateLimit()
	if cfg.RateLimit.BurstPerMinute > 0 {
		burstLimit.RequestsPerMinute = cfg.RateLimit.BurstPerMinute
	}

	router := routes.NewRouter(routes.Dependencies{
		PageHandler:    pageHandler,
		ContactHandler: contactHandler,
		HealthHandler:  healthHandler,
		Sessions:       sessionManager,
		Cookie:         cookieConfig,
		CSRF:           csrfManager,
		IPConfig:       ipConfig,
		BurstLimit:     burstLimit,
		Logger:         logger,
		Env:            cfg.Server.Env,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: 60 * time.Second,
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupManager := background.NewCleanupManager(rateLimitService, csrfManager, logger, cfg.RateLimit.CleanupInterval)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr), slog.String("store", store.Kind))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server error", slog.Any("error", err))
		exitCode = 1
	}

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		exitCode = 1
	}

	if exitCode != 0 {
		_ = eventLog.Close()
		_ = store.Close()
		os.Exit(exitCode)
	}
	logger.Info("server stopped gracefully")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
