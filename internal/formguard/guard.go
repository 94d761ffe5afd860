// Package formguard is the client side of the contact form: it validates
// fields, withholds obvious spam, submits to POST /contact and tracks the
// form's UI state.
package formguard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bguvava/portfolio/internal/models"
)

// NetworkErrorMessage is shown when no structured answer came back
const NetworkErrorMessage = "A network error occurred. Please try again."

var (
	// ErrNetwork wraps transport failures and unreadable responses
	ErrNetwork = errors.New("network error")
	// ErrSuppressed is returned when a submission looked automated and was
	// not sent. Nothing is shown to the visitor.
	ErrSuppressed = errors.New("submission suppressed")
	// ErrBusy is returned while a previous submission is in flight
	ErrBusy = errors.New("submission in progress")
)

// ServerError is a failure reported by the server in a structured response
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "server rejected submission: " + e.Message
}

// Guard drives one contact form against a server
type Guard struct {
	baseURL string
	client  *http.Client
	panel   Panel
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	state    State
	token    string
	loadedAt time.Time
	fields   Fields
}

// Option configures a Guard
type Option func(*Guard)

// WithHTTPClient replaces the default client. It must carry a cookie jar
// for the session cookie to round-trip.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Guard) { g.client = client }
}

func WithPanel(panel Panel) Option {
	return func(g *Guard) { g.panel = panel }
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// New creates a guard for the site at baseURL
func New(baseURL string, opts ...Option) (*Guard, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	g := &Guard{
		baseURL: strings.TrimRight(baseURL, "/"),
		panel:   NopPanel{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.client == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		g.client = &http.Client{Jar: jar, Timeout: 30 * time.Second}
	}

	g.loadedAt = g.now()
	return g, nil
}

// Bootstrap opens a session and fetches its CSRF token. The form counts as
// loaded from this moment.
func (g *Guard) Bootstrap(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/contact/token", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	var out models.CSRFTokenResponse
	if err := g.do(req, &out); err != nil {
		return err
	}
	if out.CSRFToken == "" {
		return fmt.Errorf("%w: empty csrf token", ErrNetwork)
	}

	g.mu.Lock()
	g.token = out.CSRFToken
	g.loadedAt = g.now()
	g.mu.Unlock()
	return nil
}

// State returns the current UI state
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Token returns the CSRF token the next submission will carry
func (g *Guard) Token() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token
}

// Fields returns the form content; it is cleared after a successful send
func (g *Guard) Fields() Fields {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fields
}

// ReadyAt is the earliest moment a submission is not considered too fast
func (g *Guard) ReadyAt() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loadedAt.Add(models.MinFillTime)
}

// Submit validates f and, when it passes and does not look automated, posts
// it. It returns nil on success, a ValidationResult for invalid fields,
// ErrSuppressed, ErrBusy, an error wrapping ErrNetwork, or a *ServerError.
func (g *Guard) Submit(ctx context.Context, f Fields) error {
	g.mu.Lock()
	if g.state == StateValidating || g.state == StateSubmitting {
		g.mu.Unlock()
		return ErrBusy
	}
	g.state = StateValidating
	g.fields = f
	loadedAt := g.loadedAt
	token := g.token
	g.mu.Unlock()

	g.panel.Render(StateValidating, "")
	result := Validate(f)
	g.panel.Annotate(result)
	if !result.Valid() {
		g.setState(StateIdle, "")
		return result
	}

	if LooksLikeSpam(f.Honeypot, loadedAt, g.now()) {
		g.logger.Debug("contact submission suppressed")
		g.setState(StateIdle, "")
		return ErrSuppressed
	}

	g.setState(StateSubmitting, "")

	resp, err := g.post(ctx, f, loadedAt, token)
	if err != nil {
		g.logger.Debug("contact submission failed", slog.Any("error", err))
		g.setState(StateError, NetworkErrorMessage)
		return err
	}

	g.mu.Lock()
	// The server rotates the token on every processed attempt
	if resp.CSRFToken != "" {
		g.token = resp.CSRFToken
	}
	if resp.Success {
		g.fields = Fields{}
		g.loadedAt = g.now()
	}
	g.mu.Unlock()

	if !resp.Success {
		g.setState(StateError, resp.Message)
		return &ServerError{Message: resp.Message}
	}

	g.setState(StateSuccess, resp.Message)
	return nil
}

func (g *Guard) setState(state State, message string) {
	g.mu.Lock()
	g.state = state
	g.mu.Unlock()
	g.panel.Render(state, message)
}

func (g *Guard) post(ctx context.Context, f Fields, loadedAt time.Time, token string) (*models.ContactResponse, error) {
	form := url.Values{}
	form.Set(models.FieldName, f.Name)
	form.Set(models.FieldEmail, f.Email)
	form.Set(models.FieldSubject, f.Subject)
	form.Set(models.FieldMessage, f.Message)
	form.Set(models.FieldFormTime, strconv.FormatInt(loadedAt.UnixMilli(), 10))
	form.Set(models.FieldCSRFToken, token)
	form.Set(models.FieldHoneypot, f.Honeypot)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/contact", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var out models.ContactResponse
	if err := g.do(req, &out); err != nil {
		return nil, err
	}
	if out.Message == "" {
		return nil, fmt.Errorf("%w: response without message", ErrNetwork)
	}
	return &out, nil
}

// do sends req and decodes a JSON body into out. Anything other than a 200
// with valid JSON is a network error.
func (g *Guard) do(req *http.Request, out any) error {
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrNetwork, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: invalid response: %v", ErrNetwork, err)
	}
	return nil
}
