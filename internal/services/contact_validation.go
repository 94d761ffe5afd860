package services

import (
	"errors"
	"html"
	"strconv"
	"strings"

	"github.com/bguvava/portfolio/internal/models"
	"github.com/go-playground/validator/v10"
)

// validate is shared across the contact pipeline
var validate = validator.New()

// fieldRules are applied in order; the first violation is reported
var fieldRules = []struct {
	field string
	tag   string
}{
	{models.FieldName, "max=" + strconv.Itoa(models.MaxNameLength)},
	{models.FieldEmail, "email"},
	{models.FieldSubject, "max=" + strconv.Itoa(models.MaxSubjectLength)},
	{models.FieldMessage, "min=" + strconv.Itoa(models.MinMessageLength) + ",max=" + strconv.Itoa(models.MaxMessageLength)},
}

// NormalizeFields strips surrounding whitespace from the user-facing fields
// and canonicalizes the email address, so the address that is validated is
// the address that is sent
func NormalizeFields(sub *models.Submission) {
	sub.Name = strings.TrimSpace(sub.Name)
	sub.Email = SanitizeEmail(strings.TrimSpace(sub.Email))
	sub.Subject = strings.TrimSpace(sub.Subject)
	sub.Message = strings.TrimSpace(sub.Message)
}

// CheckRequired returns a *models.MissingFieldsError naming every empty field
func CheckRequired(sub *models.Submission) error {
	var missing []string
	for _, field := range models.RequiredFields {
		if sub.Value(field) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &models.MissingFieldsError{Fields: missing}
	}
	return nil
}

// CheckConstraints returns a *models.FieldError for the first field that
// breaks its length or format rule. Lengths are counted in characters.
func CheckConstraints(sub *models.Submission) error {
	for _, rule := range fieldRules {
		err := validate.Var(sub.Value(rule.field), rule.tag)
		if err == nil {
			continue
		}

		var ve validator.ValidationErrors
		if !errors.As(err, &ve) || len(ve) == 0 {
			return err
		}
		return toFieldError(rule.field, ve[0])
	}
	return nil
}

func toFieldError(field string, fe validator.FieldError) *models.FieldError {
	limit, _ := strconv.Atoi(fe.Param())
	switch fe.Tag() {
	case "max":
		return &models.FieldError{Field: field, Reason: models.FieldTooLong, Limit: limit}
	case "min":
		return &models.FieldError{Field: field, Reason: models.FieldTooShort, Limit: limit}
	default:
		return &models.FieldError{Field: field, Reason: models.FieldInvalidFormat}
	}
}

// Sanitize escapes the free-text fields for HTML. It never rejects input.
func Sanitize(sub *models.Submission) {
	sub.Name = html.EscapeString(sub.Name)
	sub.Subject = html.EscapeString(sub.Subject)
	sub.Message = html.EscapeString(sub.Message)
}

// SanitizeEmail drops characters outside the address atom set and lowercases
// the domain part
func SanitizeEmail(address string) string {
	cleaned := strings.Map(func(r rune) rune {
		if isEmailRune(r) {
			return r
		}
		return -1
	}, address)

	at := strings.LastIndex(cleaned, "@")
	if at < 0 {
		return cleaned
	}
	return cleaned[:at+1] + strings.ToLower(cleaned[at+1:])
}

func isEmailRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("!#$%&'*+-=?^_`{|}~@.[]", r)
}
