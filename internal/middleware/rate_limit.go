package middleware

import (
	"net/http"
	"time"

	"github.com/bguvava/portfolio/internal/auth"
	"github.com/bguvava/portfolio/internal/models"
	pkghttp "github.com/bguvava/portfolio/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds burst guard configuration
type RateLimitConfig struct {
	RequestsPerMinute int
}

// DefaultContactRateLimit returns the default burst guard for POST /contact
func DefaultContactRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 30,
	}
}

// RateLimitByIP creates a middleware that caps request bursts per client IP.
// It sits in front of the durable submission limiter and answers in the
// contact response shape, echoing the session's current CSRF token.
func RateLimitByIP(config RateLimitConfig, ipConfig *pkghttp.IPConfig, csrf *auth.CSRFTokenManager) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, ipConfig), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			token, _ := csrf.Current(auth.SessionFromContext(r.Context()))
			pkghttp.WriteJSON(w, http.StatusOK, models.ContactResponse{
				Success:   false,
				Message:   models.MessageRateLimited,
				CSRFToken: token,
			})
		}),
	)
}
