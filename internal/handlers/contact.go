package handlers

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bguvava/portfolio/internal/auth"
	"github.com/bguvava/portfolio/internal/models"
	"github.com/bguvava/portfolio/internal/services"
	pkghttp "github.com/bguvava/portfolio/pkg/http"
)

// maxContactBodyBytes bounds a submission body; the largest valid message is
// 5000 characters
const maxContactBodyBytes = 64 << 10

// ContactServiceInterface defines the interface for the contact pipeline
type ContactServiceInterface interface {
	Submit(ctx context.Context, req *services.ContactRequest) (string, error)
	Reject(ctx context.Context, req *services.ContactRequest, cause error) (string, error)
}

// ContactHandler handles contact form HTTP requests
type ContactHandler struct {
	service  ContactServiceInterface
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(service ContactServiceInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{
		service:  service,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// Submit handles POST /contact. Every outcome is answered with HTTP 200 and
// a models.ContactResponse.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	req := &services.ContactRequest{
		SessionID: auth.SessionFromContext(r.Context()),
		ClientIP:  pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.UserAgent(),
	}

	var (
		token string
		err   error
	)
	r.Body = http.MaxBytesReader(w, r.Body, maxContactBodyBytes)
	if parseErr := parseContactForm(r); parseErr != nil {
		token, err = h.service.Reject(r.Context(), req, parseErr)
	} else {
		req.Submission = submissionFromForm(r)
		token, err = h.service.Submit(r.Context(), req)
	}

	resp := models.ContactResponse{CSRFToken: token}
	resp.Success, resp.Message = h.outcome(err)
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Token handles GET /contact/token for clients that do not render the page
func (h *ContactHandler) Token(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, models.CSRFTokenResponse{
		CSRFToken: auth.CSRFTokenFromContext(r.Context()),
	})
}

// outcome maps a pipeline result to the user-facing message
func (h *ContactHandler) outcome(err error) (bool, string) {
	var (
		missing  *models.MissingFieldsError
		fieldErr *models.FieldError
	)

	switch {
	case err == nil:
		return true, models.MessageSent
	case errors.Is(err, models.ErrRateLimited):
		return false, models.MessageRateLimited
	case errors.Is(err, models.ErrInvalidCSRF):
		return false, models.MessageInvalidSubmission
	case errors.Is(err, models.ErrSpamDetected), errors.Is(err, models.ErrUnreadableRequest):
		return false, models.MessageGeneric
	case errors.As(err, &missing):
		return false, models.MessageMissingFields + strings.Join(missing.Fields, ", ")
	case errors.As(err, &fieldErr):
		return false, fieldMessage(fieldErr)
	case errors.Is(err, models.ErrSendFailed):
		return false, models.MessageSendFailed
	default:
		// Unexpected faults surface as a failed send
		h.logger.Error("contact submission failed", slog.Any("error", err))
		return false, models.MessageSendFailed
	}
}

func fieldMessage(err *models.FieldError) string {
	switch {
	case err.Field == models.FieldName && err.Reason == models.FieldTooLong:
		return models.MessageNameTooLong
	case err.Field == models.FieldEmail:
		return models.MessageInvalidEmail
	case err.Field == models.FieldSubject && err.Reason == models.FieldTooLong:
		return models.MessageSubjectTooLong
	case err.Field == models.FieldMessage && err.Reason == models.FieldTooShort:
		return models.MessageMessageTooShort
	case err.Field == models.FieldMessage && err.Reason == models.FieldTooLong:
		return models.MessageMessageTooLong
	default:
		return models.MessageGeneric
	}
}

// parseContactForm accepts url-encoded and multipart bodies; browsers post
// FormData as multipart
func parseContactForm(r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(maxContactBodyBytes)
	}
	return r.ParseForm()
}

func submissionFromForm(r *http.Request) models.Submission {
	return models.Submission{
		Name:      r.PostFormValue(models.FieldName),
		Email:     r.PostFormValue(models.FieldEmail),
		Subject:   r.PostFormValue(models.FieldSubject),
		Message:   r.PostFormValue(models.FieldMessage),
		FormTime:  parseFormTime(r.PostFormValue(models.FieldFormTime)),
		Honeypot:  r.PostFormValue(models.FieldHoneypot),
		CSRFToken: r.PostFormValue(models.FieldCSRFToken),
	}
}

// parseFormTime reads epoch milliseconds. Missing or malformed values read
// as the epoch itself.
func parseFormTime(raw string) time.Time {
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		ms = 0
	}
	return time.UnixMilli(ms)
}
