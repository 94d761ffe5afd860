package formguard

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bguvava/portfolio/internal/models"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Fields is the content of the contact form as the visitor typed it
type Fields struct {
	Name     string
	Email    string
	Subject  string
	Message  string
	Honeypot string
}

// FieldError annotates one form field
type FieldError struct {
	Field   string
	Message string
}

// ValidationResult holds every field annotation; empty means valid
type ValidationResult []FieldError

func (v ValidationResult) Valid() bool {
	return len(v) == 0
}

// Error implements error so a failed validation can be returned from Submit
func (v ValidationResult) Error() string {
	msgs := make([]string, len(v))
	for i, fe := range v {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return "invalid form: " + strings.Join(msgs, "; ")
}

// Message returns the annotation for field, or ""
func (v ValidationResult) Message(field string) string {
	for _, fe := range v {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

// Validate checks every field in form order and returns all annotations.
// Values are trimmed and counted in characters.
func Validate(f Fields) ValidationResult {
	var result ValidationResult
	add := func(field, msg string) {
		result = append(result, FieldError{Field: field, Message: msg})
	}

	name := strings.TrimSpace(f.Name)
	switch {
	case name == "":
		add(models.FieldName, "Please enter your name")
	case utf8.RuneCountInString(name) > models.MaxNameLength:
		add(models.FieldName, "Your name is too long (maximum 100 characters)")
	}

	email := strings.TrimSpace(f.Email)
	switch {
	case email == "":
		add(models.FieldEmail, "Please enter your email address")
	case !emailPattern.MatchString(email):
		add(models.FieldEmail, "Please enter a valid email address")
	}

	subject := strings.TrimSpace(f.Subject)
	switch {
	case subject == "":
		add(models.FieldSubject, "Please enter a subject")
	case utf8.RuneCountInString(subject) > models.MaxSubjectLength:
		add(models.FieldSubject, "Subject is too long (maximum 200 characters)")
	}

	message := strings.TrimSpace(f.Message)
	n := utf8.RuneCountInString(message)
	switch {
	case message == "":
		add(models.FieldMessage, "Please enter your message")
	case n < models.MinMessageLength:
		add(models.FieldMessage, "Your message should be at least 10 characters")
	case n > models.MaxMessageLength:
		add(models.FieldMessage, "Your message is too long (maximum 5000 characters)")
	}

	return result
}

// LooksLikeSpam reports a filled honeypot or a form submitted less than the
// minimum fill time after it was loaded
func LooksLikeSpam(honeypot string, loadedAt, now time.Time) bool {
	if honeypot != "" {
		return true
	}
	return now.Sub(loadedAt) < models.MinFillTime
}
