package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	pkghttp "github.com/bguvava/portfolio/pkg/http"
)

// HealthCheckFunc checks a backing store
type HealthCheckFunc func(ctx context.Context) error

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// HealthHandler reports whether the rate-limit store is reachable
type HealthHandler struct {
	store  string
	check  HealthCheckFunc
	logger *slog.Logger
}

// NewHealthHandler creates a new HealthHandler. check may be nil for stores
// with nothing to check.
func NewHealthHandler(store string, check HealthCheckFunc, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{store: store, check: check, logger: logger}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.check != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.check(ctx); err != nil {
			h.logger.Error("health check failed", slog.String("store", h.store), slog.Any("error", err))
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Store: h.store})
			return
		}
	}

	pkghttp.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok", Store: h.store})
}
