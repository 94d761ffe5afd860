package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/bguvava/portfolio/internal/auth"
	"github.com/bguvava/portfolio/internal/models"
	pkghttp "github.com/bguvava/portfolio/pkg/http"
	"github.com/bguvava/portfolio/web"
)

// pageData feeds web/templates/index.html
type pageData struct {
	SiteName   string
	CSRFToken  string
	FormTime   int64
	Year       int
	MaxName    int
	MaxSubject int
	MaxMessage int
}

// PageHandler renders the portfolio page and serves its assets
type PageHandler struct {
	tmpl     *template.Template
	static   http.Handler
	siteName string
	logger   *slog.Logger
	now      func() time.Time
}

// NewPageHandler parses the embedded page template
func NewPageHandler(siteName string, logger *slog.Logger) (*PageHandler, error) {
	tmpl, err := template.ParseFS(web.FS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}

	staticFS, err := fs.Sub(web.FS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open static assets: %w", err)
	}

	return &PageHandler{
		tmpl:     tmpl,
		static:   http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))),
		siteName: siteName,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Index handles GET /. The CSRF token comes from EnsureCSRFToken.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	data := pageData{
		SiteName:   h.siteName,
		CSRFToken:  auth.CSRFTokenFromContext(r.Context()),
		FormTime:   now.UnixMilli(),
		Year:       now.Year(),
		MaxName:    models.MaxNameLength,
		MaxSubject: models.MaxSubjectLength,
		MaxMessage: models.MaxMessageLength,
	}

	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, data); err != nil {
		h.logger.Error("failed to render page", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Failed to render page")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// Static serves embedded CSS and JavaScript under /static/
func (h *PageHandler) Static(w http.ResponseWriter, r *http.Request) {
	h.static.ServeHTTP(w, r)
}
