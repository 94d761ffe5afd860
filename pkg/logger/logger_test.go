package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"alice@example.com", "a****@*******.com"},
		{"a@b.io", "a@*.io"},
		{"öscar@example.com", "ö****@*******.com"},
		{"zoë@bücher.de", "z**@******.de"},
		{"not-an-email", "[invalid-email]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizedEmail(tt.in), tt.in)
	}
}

func TestTruncateForLog(t *testing.T) {
	assert.Equal(t, "none", TruncateForLog("", 8))
	assert.Equal(t, "short", TruncateForLog("short", 8))
	assert.Equal(t, "abcdefgh...", TruncateForLog("abcdefghijkl", 8))
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, SanitizeQueryString("csrf_token=abc"))
	assert.True(t, SanitizeQueryString("Email=a@b.c"))
	assert.False(t, SanitizeQueryString("page=2"))
	assert.False(t, SanitizeQueryString(""))
}

func TestAuditLogger_WritesEventToSink(t *testing.T) {
	var sink bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewTextHandler(io.Discard, nil)), &sink)

	al.LogContactEvent(context.Background(), ContactEvent{
		EventType: EventTimingTriggered,
		Message:   "Timing trap triggered",
		IPAddress: "203.0.113.5",
		Details:   map[string]string{"elapsed": "0.4s"},
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(sink.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "Timing trap triggered", entry["msg"])
	assert.Equal(t, EventTimingTriggered, entry["event_type"])
	assert.NotEmpty(t, entry["time"])

	details, ok := entry["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "203.0.113.5", details["ip_address"])
	assert.Equal(t, "0.4s", details["elapsed"])
}

func TestAuditLogger_SuccessIsInfo(t *testing.T) {
	var sink bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewTextHandler(io.Discard, nil)), &sink)

	al.LogContactEvent(context.Background(), ContactEvent{
		EventType: EventSendSucceeded,
		Message:   "Contact form submission successful",
		Success:   true,
	})

	assert.Contains(t, sink.String(), `"level":"INFO"`)
}

func TestDailyFile_SwitchesOnDateChange(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDailyFile(dir, "contact_form")
	require.NoError(t, err)
	defer d.Close()

	day := time.Date(2026, 5, 1, 23, 59, 0, 0, time.UTC)
	d.now = func() time.Time { return day }
	_, err = d.Write([]byte("first\n"))
	require.NoError(t, err)
	_, err = d.Write([]byte("second\n"))
	require.NoError(t, err)

	day = day.Add(2 * time.Minute)
	_, err = d.Write([]byte("third\n"))
	require.NoError(t, err)

	first, err := os.ReadFile(filepath.Join(dir, "contact_form_2026-05-01.log"))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(first))

	second, err := os.ReadFile(filepath.Join(dir, "contact_form_2026-05-02.log"))
	require.NoError(t, err)
	assert.Equal(t, "third\n", string(second))
}

func TestDailyFile_AppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		d, err := NewDailyFile(dir, "contact_form")
		require.NoError(t, err)
		d.now = func() time.Time { return day }
		_, err = d.Write([]byte("line\n"))
		require.NoError(t, err)
		require.NoError(t, d.Close())
	}

	data, err := os.ReadFile(filepath.Join(dir, "contact_form_2026-05-01.log"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "line"))
}
