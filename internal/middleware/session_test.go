package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bguvava/portfolio/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager("a-test-secret-that-is-long-enough", time.Hour)
	require.NoError(t, err)
	return sm
}

var testCookie = auth.CookieConfig{Name: "portfolio_session", SameSite: "lax"}

func TestSession_IssuesCookieForNewVisitor(t *testing.T) {
	sm := newTestSessionManager(t)

	var seen string
	handler := Session(sm, testCookie, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.SessionFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, seen)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "portfolio_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	parsed, err := sm.Parse(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, seen, parsed)
}

func TestSession_ReusesValidCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	sessionID, signed, err := sm.NewSession()
	require.NoError(t, err)

	var seen string
	handler := Session(sm, testCookie, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.SessionFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "portfolio_session", Value: signed})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, sessionID, seen)
	assert.Empty(t, rec.Result().Cookies(), "no new cookie for an existing session")
}

func TestSession_ReplacesTamperedCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	other, err := auth.NewSessionManager("a-different-secret-entirely-here", time.Hour)
	require.NoError(t, err)
	forgedID, forged, err := other.NewSession()
	require.NoError(t, err)

	var seen string
	handler := Session(sm, testCookie, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.SessionFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "portfolio_session", Value: forged})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.NotEmpty(t, seen)
	assert.NotEqual(t, forgedID, seen)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestEnsureCSRFToken(t *testing.T) {
	csrf := auth.NewCSRFTokenManager(time.Hour)
	sessionID := "3f2d8d7a-6f55-4bb1-8f0e-4a8d1c2b3e4f"

	var seen string
	handler := EnsureCSRFToken(csrf, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.CSRFTokenFromContext(r.Context())
	}))

	serve := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.WithSession(req.Context(), sessionID))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := serve()
	require.Len(t, seen, 64)
	assert.Equal(t, seen, rec.Header().Get(CSRFTokenHeader))

	first := seen
	serve()
	assert.Equal(t, first, seen, "token is stable until rotated")
}

func TestEnsureCSRFToken_RequiresSession(t *testing.T) {
	csrf := auth.NewCSRFTokenManager(time.Hour)
	handler := EnsureCSRFToken(csrf, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORS(t *testing.T) {
	handler := CORS(DefaultCORSConfig([]string{"https://portfolio.example"}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/contact", nil)
	req.Header.Set("Origin", "https://portfolio.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "https://portfolio.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, CSRFTokenHeader, rec.Header().Get("Access-Control-Expose-Headers"))

	req = httptest.NewRequest(http.MethodPost, "/contact", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/contact", nil)
	req.Header.Set("Origin", "https://portfolio.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
