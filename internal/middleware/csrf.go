package middleware

import (
	"log/slog"
	"net/http"

	"github.com/bguvava/portfolio/internal/auth"
)

// CSRFTokenHeader carries the session's live token on responses
const CSRFTokenHeader = "X-CSRF-Token"

// EnsureCSRFToken makes sure the session has a live CSRF token and exposes it
// to handlers through the context. Must run after Session. Validation is not
// done here: the contact pipeline checks the token after its rate limit.
func EnsureCSRFToken(csrfManager *auth.CSRFTokenManager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := auth.SessionFromContext(r.Context())
			if sessionID == "" {
				logger.Error("csrf middleware used without a session", slog.String("path", r.URL.Path))
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			token, err := csrfManager.Ensure(sessionID)
			if err != nil {
				logger.Error("failed to issue csrf token", slog.Any("error", err))
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			w.Header().Set(CSRFTokenHeader, token)
			next.ServeHTTP(w, r.WithContext(auth.WithCSRFToken(r.Context(), token)))
		})
	}
}
