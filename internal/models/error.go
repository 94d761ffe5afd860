package models

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound = errors.New("resource not found")

	// Contact pipeline outcomes
	ErrRateLimited       = errors.New("too many submissions")
	ErrInvalidCSRF       = errors.New("invalid csrf token")
	ErrSpamDetected      = errors.New("submission flagged as spam")
	ErrUnreadableRequest = errors.New("unreadable submission body")
	ErrSendFailed        = errors.New("failed to send message")
)

// FieldReason classifies a field constraint violation
type FieldReason string

const (
	FieldTooLong       FieldReason = "too_long"
	FieldTooShort      FieldReason = "too_short"
	FieldInvalidFormat FieldReason = "invalid_format"
)

// MissingFieldsError lists required fields that were empty, in form order
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// FieldError reports the first constraint violation found on a single field
type FieldError struct {
	Field  string
	Reason FieldReason
	Limit  int
}

func (e *FieldError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("field %s: %s (limit %d)", e.Field, e.Reason, e.Limit)
	}
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}
