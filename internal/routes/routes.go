package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bguvava/portfolio/internal/auth"
	"github.com/bguvava/portfolio/internal/handlers"
	"github.com/bguvava/portfolio/internal/middleware"
	pkghttp "github.com/bguvava/portfolio/pkg/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Dependencies groups what the routes need
type Dependencies struct {
	PageHandler    *handlers.PageHandler
	ContactHandler *handlers.ContactHandler
	HealthHandler  *handlers.HealthHandler
	Sessions       *auth.SessionManager
	Cookie         auth.CookieConfig
	CSRF           *auth.CSRFTokenManager
	IPConfig       *pkghttp.IPConfig
	BurstLimit     middleware.RateLimitConfig
	Logger         *slog.Logger

	Env            string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter builds the application router with the global middleware chain
func NewRouter(deps Dependencies) *chi.Mux {
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: deps.Env}))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(deps.AllowedOrigins)))
	router.Use(middleware.SecureLogger(deps.Logger, deps.IPConfig))
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(timeout))

	RegisterRoutes(router, deps)
	return router
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, deps Dependencies) {
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteNotFound(w, "Not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteMethodNotAllowed(w, "Method not allowed")
	})

	router.Get("/health", deps.HealthHandler.Health)
	router.Get("/static/*", deps.PageHandler.Static)

	// Everything below belongs to a visitor session
	router.Group(func(r chi.Router) {
		r.Use(middleware.Session(deps.Sessions, deps.Cookie, deps.Logger))

		r.Group(func(r chi.Router) {
			r.Use(middleware.EnsureCSRFToken(deps.CSRF, deps.Logger))
			r.Get("/", deps.PageHandler.Index)
			r.Get("/contact/token", deps.ContactHandler.Token)
		})

		r.With(middleware.RateLimitByIP(deps.BurstLimit, deps.IPConfig, deps.CSRF)).
			Post("/contact", deps.ContactHandler.Submit)
	})
}
