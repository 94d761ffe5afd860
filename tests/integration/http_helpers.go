package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/bguvava/portfolio/internal/auth"
	"github.com/bguvava/portfolio/internal/config"
	"github.com/bguvava/portfolio/internal/database"
	"github.com/bguvava/portfolio/internal/handlers"
	middlewareCustom "github.com/bguvava/portfolio/internal/middleware"
	"github.com/bguvava/portfolio/internal/models"
	"github.com/bguvava/portfolio/internal/repositories"
	"github.com/bguvava/portfolio/internal/routes"
	"github.com/bguvava/portfolio/internal/services"
	pkghttp "github.com/bguvava/portfolio/pkg/http"
	pkglogger "github.com/bguvava/portfolio/pkg/logger"
)

// MockEmailService captures sent contact emails for test assertions
type MockEmailService struct {
	SentEmails []*models.ContactEmail
	mu         sync.Mutex
}

// SendContactEmail records the email
func (m *MockEmailService) SendContactEmail(ctx context.Context, msg *models.ContactEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentEmails = append(m.SentEmails, msg)
	return nil
}

// GetLastEmail returns the most recent email sent
func (m *MockEmailService) GetLastEmail() *models.ContactEmail {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.SentEmails) == 0 {
		return nil
	}
	return m.SentEmails[len(m.SentEmails)-1]
}

// Count returns how many emails were sent
func (m *MockEmailService) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SentEmails)
}

// TestServer wraps httptest.Server with the postgres store and all dependencies
type TestServer struct {
	Server       *httptest.Server
	DB           *database.DB
	Repository   *repositories.PostgresRateLimitRepository
	EmailService *MockEmailService
	Config       *config.Config

	CSRFManager *auth.CSRFTokenManager
	logger      *slog.Logger
}

// NewTestServer initializes a complete HTTP server backed by the real database
// and a mocked mail transport
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		RateLimit: config.RateLimitConfig{
			Store:          config.StorePostgres,
			MaxSubmissions: 5,
			Window:         time.Hour,
			BurstPerMinute: 100,
		},
		Contact: config.ContactConfig{
			MinFillTime:   2 * time.Second,
			SendTimeout:   5 * time.Second,
			SubjectPrefix: "Portfolio Contact: ",
			SiteName:      "Integration Portfolio",
		},
		Mail: config.MailConfig{
			Transport:   config.TransportLog,
			FromAddress: "noreply@test.local",
			ToAddress:   "owner@test.local",
		},
		Session: config.SessionConfig{
			Secret:     "test-secret-32-characters-long-for-testing",
			TTL:        time.Hour,
			CookieName: "portfolio_session",
			SameSite:   "lax",
		},
		Server: config.ServerConfig{
			Env: "test",
		},
	}

	repo := repositories.NewPostgresRateLimitRepository(db)
	mockEmail := &MockEmailService{}
	auditLogger := pkglogger.NewAuditLogger(logger, nil)

	sessionManager, err := auth.NewSessionManager(cfg.Session.Secret, cfg.Session.TTL)
	if err != nil {
		panic(fmt.Sprintf("failed to create session manager: %v", err))
	}
	csrfManager := auth.NewCSRFTokenManager(cfg.Session.TTL)

	rateLimitService := services.NewRateLimitService(repo, services.RateLimitConfig{
		MaxSubmissions: cfg.RateLimit.MaxSubmissions,
		Window:         cfg.RateLimit.Window,
	}, logger)

	contactService := services.NewContactService(
		rateLimitService,
		csrfManager,
		mockEmail,
		services.ContactEmailBuilder{
			FromAddress:   cfg.Mail.FromAddress,
			ToAddress:     cfg.Mail.ToAddress,
			SubjectPrefix: cfg.Contact.SubjectPrefix,
			SiteName:      cfg.Contact.SiteName,
		},
		auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 50, RandomDelayMs: 10}),
		services.ContactConfig{
			MinFillTime: cfg.Contact.MinFillTime,
			SendTimeout: cfg.Contact.SendTimeout,
		},
		logger,
		auditLogger,
	)

	ipConfig := pkghttp.NewIPConfig(nil)
	pageHandler, err := handlers.NewPageHandler(cfg.Contact.SiteName, logger)
	if err != nil {
		panic(fmt.Sprintf("failed to load page templates: %v", err))
	}

	router := routes.NewRouter(routes.Dependencies{
		PageHandler:    pageHandler,
		ContactHandler: handlers.NewContactHandler(contactService, ipConfig, logger),
		HealthHandler:  handlers.NewHealthHandler(cfg.RateLimit.Store, db.HealthCheck, logger),
		Sessions:       sessionManager,
		Cookie:         auth.CookieConfig{Name: cfg.Session.CookieName, SameSite: cfg.Session.SameSite},
		CSRF:           csrfManager,
		IPConfig:       ipConfig,
		BurstLimit:     middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.RateLimit.BurstPerMinute},
		Logger:         logger,
		Env:            cfg.Server.Env,
	})

	return &TestServer{
		Server:       httptest.NewServer(router),
		DB:           db,
		Repository:   repo,
		EmailService: mockEmail,
		Config:       cfg,
		CSRFManager:  csrfManager,
		logger:       logger,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// NewClient returns a client with its own cookie jar, i.e. its own session
func (ts *TestServer) NewClient() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

// FetchToken opens a session for client and returns its CSRF token
func (ts *TestServer) FetchToken(client *http.Client) (string, error) {
	resp, err := client.Get(ts.Server.URL + "/contact/token")
	if err != nil {
		return "", err
	}
	var out models.CSRFTokenResponse
	if err := ParseJSONResponse(resp, &out); err != nil {
		return "", err
	}
	return out.CSRFToken, nil
}

// PostContact submits form and decodes the contact response
func (ts *TestServer) PostContact(client *http.Client, form url.Values) (*models.ContactResponse, error) {
	resp, err := client.PostForm(ts.Server.URL+"/contact", form)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var out models.ContactResponse
	if err := ParseJSONResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ParseJSONResponse parses JSON response body into target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}
