package formguard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bguvava/portfolio/internal/models"
)

type rendered struct {
	state   State
	message string
}

type recordingPanel struct {
	mu          sync.Mutex
	renders     []rendered
	annotations []ValidationResult
}

func (p *recordingPanel) Render(state State, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.renders = append(p.renders, rendered{state, message})
}

func (p *recordingPanel) Annotate(result ValidationResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.annotations = append(p.annotations, result)
}

func (p *recordingPanel) states() []State {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]State, len(p.renders))
	for i, r := range p.renders {
		out[i] = r.state
	}
	return out
}

func (p *recordingPanel) last() rendered {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.renders[len(p.renders)-1]
}

// fakeSite answers the token and contact endpoints with canned behaviour
type fakeSite struct {
	mu      sync.Mutex
	posts   []map[string]string
	token   string
	respond func(w http.ResponseWriter, r *http.Request)
}

func newFakeSite(t *testing.T) (*fakeSite, *httptest.Server) {
	t.Helper()
	site := &fakeSite{token: "token-1"}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /contact/token", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "portfolio_session", Value: "sid", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		site.mu.Lock()
		defer site.mu.Unlock()
		_ = json.NewEncoder(w).Encode(models.CSRFTokenResponse{CSRFToken: site.token})
	})
	mux.HandleFunc("POST /contact", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		post := map[string]string{}
		for k := range r.PostForm {
			post[k] = r.PostForm.Get(k)
		}
		if c, err := r.Cookie("portfolio_session"); err == nil {
			post["cookie"] = c.Value
		}
		site.mu.Lock()
		site.posts = append(site.posts, post)
		respond := site.respond
		site.mu.Unlock()

		if respond != nil {
			respond(w, r)
			return
		}
		writeJSON(w, models.ContactResponse{Success: true, Message: models.MessageSent, CSRFToken: "token-2"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return site, srv
}

func (s *fakeSite) lastPost() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.posts) == 0 {
		return nil
	}
	return s.posts[len(s.posts)-1]
}

func (s *fakeSite) postCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// clock is a settable time source
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newGuard(t *testing.T, srv *httptest.Server) (*Guard, *recordingPanel, *clock) {
	t.Helper()
	panel := &recordingPanel{}
	clk := &clock{now: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}

	g, err := New(srv.URL+"/", WithPanel(panel), WithClock(clk.Now))
	require.NoError(t, err)
	require.NoError(t, g.Bootstrap(context.Background()))
	return g, panel, clk
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New("not a url")
	assert.Error(t, err)
}

func TestGuard_Bootstrap(t *testing.T) {
	_, srv := newFakeSite(t)
	g, _, clk := newGuard(t, srv)

	assert.Equal(t, "token-1", g.Token())
	assert.Equal(t, StateIdle, g.State())
	assert.Equal(t, clk.Now().Add(2*time.Second), g.ReadyAt())
}

func TestGuard_Bootstrap_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	g, err := New(srv.URL)
	require.NoError(t, err)

	err = g.Bootstrap(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestGuard_Submit_Success(t *testing.T) {
	site, srv := newFakeSite(t)
	g, panel, clk := newGuard(t, srv)
	loadedAt := clk.Now()
	clk.Advance(5 * time.Second)

	err := g.Submit(context.Background(), validFields())
	require.NoError(t, err)

	post := site.lastPost()
	require.NotNil(t, post)
	assert.Equal(t, "Ada Lovelace", post["name"])
	assert.Equal(t, "ada@example.com", post["email"])
	assert.Equal(t, "Analytical engine", post["subject"])
	assert.Equal(t, "token-1", post["csrf_token"])
	assert.Equal(t, "", post["website"])
	assert.Equal(t, "sid", post["cookie"])
	assert.Equal(t, loadedAt.UnixMilli(), mustInt(t, post["form_time"]))

	assert.Equal(t, []State{StateValidating, StateSubmitting, StateSuccess}, panel.states())
	assert.Equal(t, rendered{StateSuccess, models.MessageSent}, panel.last())
	assert.Equal(t, StateSuccess, g.State())
	assert.Equal(t, "token-2", g.Token())
	assert.Equal(t, Fields{}, g.Fields())
	assert.Equal(t, clk.Now().Add(2*time.Second), g.ReadyAt())
}

func TestGuard_Submit_InvalidFieldsNeverSent(t *testing.T) {
	site, srv := newFakeSite(t)
	g, panel, clk := newGuard(t, srv)
	clk.Advance(5 * time.Second)

	f := validFields()
	f.Email = "nope"
	err := g.Submit(context.Background(), f)

	var result ValidationResult
	require.ErrorAs(t, err, &result)
	assert.Equal(t, "Please enter a valid email address", result.Message("email"))
	assert.Equal(t, 0, site.postCount())
	assert.Equal(t, []State{StateValidating, StateIdle}, panel.states())
	assert.Equal(t, f, g.Fields())
}

func TestGuard_Submit_SpamSuppressed(t *testing.T) {
	t.Run("honeypot", func(t *testing.T) {
		site, srv := newFakeSite(t)
		g, panel, clk := newGuard(t, srv)
		clk.Advance(5 * time.Second)

		f := validFields()
		f.Honeypot = "http://spam.example"
		err := g.Submit(context.Background(), f)

		assert.ErrorIs(t, err, ErrSuppressed)
		assert.Equal(t, 0, site.postCount())
		assert.Equal(t, []State{StateValidating, StateIdle}, panel.states())
		assert.Equal(t, "", panel.last().message)
	})

	t.Run("too fast", func(t *testing.T) {
		site, srv := newFakeSite(t)
		g, _, clk := newGuard(t, srv)
		clk.Advance(1 * time.Second)

		err := g.Submit(context.Background(), validFields())
		assert.ErrorIs(t, err, ErrSuppressed)
		assert.Equal(t, 0, site.postCount())
	})
}

func TestGuard_Submit_ServerFailureAdoptsToken(t *testing.T) {
	site, srv := newFakeSite(t)
	site.respond = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, models.ContactResponse{Success: false, Message: models.MessageSendFailed, CSRFToken: "token-3"})
	}
	g, panel, clk := newGuard(t, srv)
	clk.Advance(5 * time.Second)

	f := validFields()
	err := g.Submit(context.Background(), f)

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, models.MessageSendFailed, serverErr.Message)
	assert.Equal(t, rendered{StateError, models.MessageSendFailed}, panel.last())
	assert.Equal(t, "token-3", g.Token())
	assert.Equal(t, f, g.Fields(), "fields are kept for another try")
}

func TestGuard_Submit_NetworkErrors(t *testing.T) {
	tests := []struct {
		name    string
		respond func(w http.ResponseWriter, r *http.Request)
	}{
		{"server error status", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"not json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>oops</html>"))
		}},
		{"no message", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]string{"status": "ok"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site, srv := newFakeSite(t)
			site.respond = tt.respond
			g, panel, clk := newGuard(t, srv)
			clk.Advance(5 * time.Second)

			err := g.Submit(context.Background(), validFields())
			assert.ErrorIs(t, err, ErrNetwork)
			assert.Equal(t, rendered{StateError, NetworkErrorMessage}, panel.last())
			assert.Equal(t, "token-1", g.Token())
		})
	}
}

func TestGuard_Submit_ConnectionRefused(t *testing.T) {
	_, srv := newFakeSite(t)
	g, _, clk := newGuard(t, srv)
	clk.Advance(5 * time.Second)
	srv.Close()

	err := g.Submit(context.Background(), validFields())
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, StateError, g.State())
}

func TestGuard_Submit_BusyWhileInFlight(t *testing.T) {
	site, srv := newFakeSite(t)
	release := make(chan struct{})
	entered := make(chan struct{})
	site.respond = func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		writeJSON(w, models.ContactResponse{Success: true, Message: models.MessageSent, CSRFToken: "token-2"})
	}
	g, _, clk := newGuard(t, srv)
	clk.Advance(5 * time.Second)

	done := make(chan error, 1)
	go func() { done <- g.Submit(context.Background(), validFields()) }()

	<-entered
	assert.Equal(t, StateSubmitting, g.State())
	assert.True(t, errors.Is(g.Submit(context.Background(), validFields()), ErrBusy))

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, site.postCount())
}

func mustInt(t *testing.T, s string) int64 {
	t.Helper()
	v, err := strconv.ParseInt(s, 10, 64)
	require.NoError(t, err)
	return v
}
