package auth

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// SessionContextKey is the key for storing the session ID in context
	SessionContextKey contextKey = "session"
	// CSRFContextKey is the key for the session's live CSRF token
	CSRFContextKey contextKey = "csrf_token"

	sessionIssuer = "portfolio"
)

var ErrInvalidSession = errors.New("invalid session")

// SessionClaims is the payload of the signed session cookie
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies signed session identifiers
type SessionManager struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewSessionManager derives the cookie signing key from secret
func NewSessionManager(secret string, ttl time.Duration) (*SessionManager, error) {
	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("portfolio session cookie v1"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}

	return &SessionManager{
		key: key,
		ttl: ttl,
		now: time.Now,
	}, nil
}

// TTL returns the lifetime of issued sessions
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// NewSession creates a session ID and its signed cookie value
func (sm *SessionManager) NewSession() (string, string, error) {
	sessionID := uuid.NewString()
	signed, err := sm.Sign(sessionID)
	if err != nil {
		return "", "", err
	}
	return sessionID, signed, nil
}

// Sign produces a cookie value for an existing session ID
func (sm *SessionManager) Sign(sessionID string) (string, error) {
	now := sm.now()
	claims := &SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sm.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(sm.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

// Parse verifies a cookie value and returns the session ID it carries
func (sm *SessionManager) Parse(value string) (string, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (interface{}, error) {
		return sm.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(sm.now),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidSession
	}
	if _, err := uuid.Parse(claims.SessionID); err != nil {
		return "", ErrInvalidSession
	}
	return claims.SessionID, nil
}

// WithSession stores the session ID in ctx
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionContextKey, sessionID)
}

// SessionFromContext returns the session ID attached by the session middleware
func SessionFromContext(ctx context.Context) string {
	sessionID, _ := ctx.Value(SessionContextKey).(string)
	return sessionID
}

// WithCSRFToken stores the session's live CSRF token in ctx
func WithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, CSRFContextKey, token)
}

// CSRFTokenFromContext returns the token attached by the CSRF middleware
func CSRFTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(CSRFContextKey).(string)
	return token
}
