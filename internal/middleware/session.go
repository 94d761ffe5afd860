package middleware

import (
	"log/slog"
	"net/http"

	"github.com/bguvava/portfolio/internal/auth"
)

// Session attaches the visitor's session ID to the request context. A missing,
// expired or tampered cookie starts a new session and issues a fresh cookie.
func Session(sm *auth.SessionManager, cookie auth.CookieConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if value, err := auth.GetSessionCookie(r, cookie.Name); err == nil {
				if sessionID, err := sm.Parse(value); err == nil {
					next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sessionID)))
					return
				}
				logger.Debug("discarding invalid session cookie", slog.String("path", r.URL.Path))
			}

			sessionID, signed, err := sm.NewSession()
			if err != nil {
				logger.Error("failed to create session", slog.Any("error", err))
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			auth.SetSessionCookie(w, signed, sm.TTL(), cookie)
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sessionID)))
		})
	}
}
