package logger

import (
	"strings"
	"unicode/utf8"
)

// SanitizedEmail masks an email address for logging (e.g., "u***@e******.com")
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username := parts[0]
	domain := parts[1]

	// Mask username: keep first char, mask rest
	if n := utf8.RuneCountInString(username); n > 1 {
		first, _ := utf8.DecodeRuneInString(username)
		username = string(first) + strings.Repeat("*", n-1)
	}

	// Mask domain: keep TLD, mask the rest
	domainParts := strings.Split(domain, ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", utf8.RuneCountInString(domainParts[i]))
		}
		domain = strings.Join(domainParts, ".")
	}

	return username + "@" + domain
}

// TruncateForLog shortens free text (e.g. a rejected token) before it is logged
func TruncateForLog(value string, max int) string {
	if value == "" {
		return "none"
	}
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max]) + "..."
}

// SanitizeQueryString reports whether a query string carries parameters
// that must not reach the request log
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := []string{
		"token",
		"csrf",
		"secret",
		"email",
		"session",
		"password",
	}

	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
