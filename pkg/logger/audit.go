package logger

import (
	"context"
	"io"
	"log/slog"
	"sort"
)

// Contact pipeline event types
const (
	EventRateLimitExceeded = "rate_limit_exceeded"
	EventCSRFFailed        = "csrf_failed"
	EventHoneypotTriggered = "honeypot_triggered"
	EventTimingTriggered   = "timing_triggered"
	EventUnreadableRequest = "unreadable_request"
	EventSendFailed        = "send_failed"
	EventSendSucceeded     = "send_succeeded"
)

// ContactEvent represents one entry of the contact form event log
type ContactEvent struct {
	EventType string
	Message   string
	IPAddress string
	Success   bool
	Details   map[string]string
}

// AuditLogger records contact events to the application log and, when a
// sink is configured, to the append-only event file.
type AuditLogger struct {
	logger *slog.Logger
	file   *slog.Logger
}

// NewAuditLogger creates a new audit logger. sink may be nil.
func NewAuditLogger(logger *slog.Logger, sink io.Writer) *AuditLogger {
	al := &AuditLogger{logger: logger}
	if sink != nil {
		al.file = slog.New(slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return al
}

// LogContactEvent writes the event. Failures are warnings, successes info.
func (al *AuditLogger) LogContactEvent(ctx context.Context, event ContactEvent) {
	level := slog.LevelWarn
	if event.Success {
		level = slog.LevelInfo
	}

	details := make([]any, 0, len(event.Details)+1)
	if event.IPAddress != "" {
		details = append(details, slog.String("ip_address", event.IPAddress))
	}
	keys := make([]string, 0, len(event.Details))
	for key := range event.Details {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		details = append(details, slog.String(key, event.Details[key]))
	}

	attrs := []slog.Attr{
		slog.String("audit_type", "contact"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.Group("details", details...),
	}

	al.logger.LogAttrs(ctx, level, event.Message, attrs...)
	if al.file != nil {
		al.file.LogAttrs(ctx, level, event.Message, attrs...)
	}
}
