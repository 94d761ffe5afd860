package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/bguvava/portfolio/internal/auth"
	"github.com/bguvava/portfolio/internal/models"
	"github.com/bguvava/portfolio/internal/services"
	"github.com/stretchr/testify/assert"
)

// NewFormRequest creates a form-encoded request for testing
func NewFormRequest(t *testing.T, method, target string, form url.Values) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// WithSessionContext attaches a session ID and its CSRF token to the request
func WithSessionContext(req *http.Request, sessionID, csrfToken string) *http.Request {
	ctx := auth.WithSession(req.Context(), sessionID)
	if csrfToken != "" {
		ctx = auth.WithCSRFToken(ctx, csrfToken)
	}
	return req.WithContext(ctx)
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// TestLogger discards all output
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockContactService implements ContactServiceInterface for testing
type MockContactService struct {
	SubmitFunc func(ctx context.Context, req *services.ContactRequest) (string, error)
	RejectFunc func(ctx context.Context, req *services.ContactRequest, cause error) (string, error)
	Last       *services.ContactRequest
	Rejected   *services.ContactRequest
}

func (m *MockContactService) Submit(ctx context.Context, req *services.ContactRequest) (string, error) {
	m.Last = req
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, req)
	}
	return "", nil
}

func (m *MockContactService) Reject(ctx context.Context, req *services.ContactRequest, cause error) (string, error) {
	m.Rejected = req
	if m.RejectFunc != nil {
		return m.RejectFunc(ctx, req, cause)
	}
	return "", models.ErrUnreadableRequest
}
