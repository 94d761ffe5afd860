package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"sync"
	"time"

	"github.com/bguvava/portfolio/internal/models"
)

// csrfTokenEntry stores the single live token of a session
type csrfTokenEntry struct {
	token  string
	expiry time.Time
}

// CSRFTokenManager keeps exactly one CSRF token per session
type CSRFTokenManager struct {
	tokens   map[string]*csrfTokenEntry // session ID -> entry
	mu       sync.RWMutex
	tokenTTL time.Duration
	now      func() time.Time
}

// NewCSRFTokenManager creates a new CSRF token manager. Tokens live as long as
// the session that owns them.
func NewCSRFTokenManager(ttl time.Duration) *CSRFTokenManager {
	return &CSRFTokenManager{
		tokens:   make(map[string]*csrfTokenEntry),
		tokenTTL: ttl,
		now:      time.Now,
	}
}

// GenerateToken returns a hex encoded random token
func GenerateToken() (string, error) {
	randomBytes := make([]byte, models.CSRFTokenByteCount)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(randomBytes), nil
}

// Current returns the live token for a session, if any
func (m *CSRFTokenManager) Current(sessionID string) (string, bool) {
	m.mu.RLock()
	entry, exists := m.tokens[sessionID]
	m.mu.RUnlock()

	if !exists || m.now().After(entry.expiry) {
		return "", false
	}
	return entry.token, true
}

// Ensure returns the live token for a session, issuing one if none exists
func (m *CSRFTokenManager) Ensure(sessionID string) (string, error) {
	if token, ok := m.Current(sessionID); ok {
		return token, nil
	}
	return m.Rotate(sessionID)
}

// Rotate replaces the session's token with a fresh one
func (m *CSRFTokenManager) Rotate(sessionID string) (string, error) {
	token, err := GenerateToken()
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.tokens[sessionID] = &csrfTokenEntry{
		token:  token,
		expiry: m.now().Add(m.tokenTTL),
	}
	m.mu.Unlock()

	return token, nil
}

// Validate reports whether submitted matches the session's live token.
// Both values must be present.
func (m *CSRFTokenManager) Validate(sessionID, submitted string) bool {
	if sessionID == "" || submitted == "" {
		return false
	}
	expected, ok := m.Current(sessionID)
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) == 1
}

// CleanupExpired removes tokens whose session has expired
func (m *CSRFTokenManager) CleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for sessionID, entry := range m.tokens {
		if now.After(entry.expiry) {
			delete(m.tokens, sessionID)
			removed++
		}
	}
	return removed
}
