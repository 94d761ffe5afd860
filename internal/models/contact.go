package models

import "time"

// Form field names as posted by the contact page
const (
	FieldName      = "name"
	FieldEmail     = "email"
	FieldSubject   = "subject"
	FieldMessage   = "message"
	FieldFormTime  = "form_time"
	FieldCSRFToken = "csrf_token"
	FieldHoneypot  = "website"
)

// RequiredFields are checked in this order; error messages list them the same way.
var RequiredFields = []string{FieldName, FieldEmail, FieldSubject, FieldMessage}

// Field limits shared by the browser guard and the server gate chain
const (
	MaxNameLength      = 100
	MaxSubjectLength   = 200
	MinMessageLength   = 10
	MaxMessageLength   = 5000
	MinFillTime        = 2 * time.Second
	CSRFTokenByteCount = 32
)

// Submission is one contact form post. It is never persisted.
type Submission struct {
	Name      string
	Email     string
	Subject   string
	Message   string
	FormTime  time.Time
	Honeypot  string
	CSRFToken string
}

// Value returns the raw value of a named user-facing field.
func (s *Submission) Value(field string) string {
	switch field {
	case FieldName:
		return s.Name
	case FieldEmail:
		return s.Email
	case FieldSubject:
		return s.Subject
	case FieldMessage:
		return s.Message
	default:
		return ""
	}
}

// ContactEmail is the message handed to the mail transport
type ContactEmail struct {
	FromAddress string
	FromName    string
	ToAddress   string
	ToName      string
	ReplyTo     string
	ReplyToName string
	Subject     string
	HTMLBody    string
	TextBody    string
}

// ContactResponse is the JSON body returned for every POST /contact
type ContactResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	CSRFToken string `json:"csrf_token"`
}

// CSRFTokenResponse is returned by GET /contact/token
type CSRFTokenResponse struct {
	CSRFToken string `json:"csrf_token"`
}

// User-facing messages of the contact endpoint
const (
	MessageSent              = "Your message has been sent successfully. I'll get back to you soon!"
	MessageRateLimited       = "Too many submissions. Please try again later."
	MessageInvalidSubmission = "Invalid form submission."
	MessageGeneric           = "An error occurred while processing your request."
	MessageMissingFields     = "Please fill in all required fields: "
	MessageNameTooLong       = "Name is too long (maximum 100 characters)."
	MessageInvalidEmail      = "Please enter a valid email address."
	MessageSubjectTooLong    = "Subject is too long (maximum 200 characters)."
	MessageMessageTooShort   = "Your message should be at least 10 characters."
	MessageMessageTooLong    = "Your message is too long (maximum 5000 characters)."
	MessageSendFailed        = "Failed to send your message. Please try again or contact directly via email."
)
