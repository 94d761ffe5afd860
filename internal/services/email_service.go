package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/bguvava/portfolio/internal/config"
	"github.com/bguvava/portfolio/internal/models"
	"github.com/bguvava/portfolio/pkg/logger"
	"github.com/jordan-wright/email"
)

// EmailService defines the interface for delivering contact messages
type EmailService interface {
	SendContactEmail(ctx context.Context, msg *models.ContactEmail) error
}

// EmailServiceFunc adapts a function to EmailService
type EmailServiceFunc func(ctx context.Context, msg *models.ContactEmail) error

func (f EmailServiceFunc) SendContactEmail(ctx context.Context, msg *models.ContactEmail) error {
	return f(ctx, msg)
}

// NewEmailService builds the transport selected by MAIL_TRANSPORT
func NewEmailService(cfg config.MailConfig, log *slog.Logger) (EmailService, error) {
	switch cfg.Transport {
	case config.TransportSMTP:
		return NewSMTPEmailService(cfg, log), nil
	case config.TransportSES:
		return NewAWSSESEmailService(cfg.AWSRegion, log)
	case config.TransportLog:
		return NewLogEmailService(log), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
	}
}

// ContactEmailBuilder renders submissions into the message sent to the site owner
type ContactEmailBuilder struct {
	FromAddress   string
	FromName      string
	ToAddress     string
	ToName        string
	SubjectPrefix string
	SiteName      string
}

var lineBreaks = strings.NewReplacer("\r\n", "<br />\r\n", "\n", "<br />\n", "\r", "<br />\r")

// Build expects sanitized values; they are interpolated without further escaping.
func (b ContactEmailBuilder) Build(sub *models.Submission, ipAddress string, sentAt time.Time) *models.ContactEmail {
	htmlBody := fmt.Sprintf(`
<html>
<head>
    <title>New Contact Form Submission</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        h2 { color: #2563eb; }
        .info { margin-bottom: 20px; }
        .label { font-weight: bold; }
        .message { background-color: #f9f9f9; padding: 15px; border-left: 3px solid #2563eb; }
        .footer { margin-top: 30px; font-size: 12px; color: #777; }
    </style>
</head>
<body>
    <div class='container'>
        <h2>New Contact Form Submission</h2>
        <div class='info'>
            <p><span class='label'>Name:</span> %s</p>
            <p><span class='label'>Email:</span> %s</p>
            <p><span class='label'>Subject:</span> %s</p>
        </div>
        <div class='message'>
            <p><span class='label'>Message:</span></p>
            <p>%s</p>
        </div>
        <div class='footer'>
            <p>This email was sent from the contact form on %s.</p>
            <p>IP Address: %s</p>
            <p>Date: %s</p>
        </div>
    </div>
</body>
</html>
`, sub.Name, sub.Email, sub.Subject, lineBreaks.Replace(sub.Message),
		b.SiteName, ipAddress, sentAt.Format("2006-01-02 15:04:05"))

	textBody := fmt.Sprintf("Name: %s\nEmail: %s\nSubject: %s\n\nMessage:\n%s",
		sub.Name, sub.Email, sub.Subject, sub.Message)

	return &models.ContactEmail{
		FromAddress: b.FromAddress,
		FromName:    b.FromName,
		ToAddress:   b.ToAddress,
		ToName:      b.ToName,
		ReplyTo:     sub.Email,
		ReplyToName: sub.Name,
		Subject:     b.SubjectPrefix + sub.Subject,
		HTMLBody:    htmlBody,
		TextBody:    textBody,
	}
}

// formatAddress renders "Name <addr>", or the bare address when name is empty
func formatAddress(name, address string) string {
	if name == "" {
		return address
	}
	return (&mail.Address{Name: name, Address: address}).String()
}

// SMTPEmailService relays messages through an SMTP server
type SMTPEmailService struct {
	addr   string
	host   string
	auth   smtp.Auth
	secure string
	logger *slog.Logger

	// send performs the network delivery; replaced in tests
	send func(e *email.Email) error
}

// NewSMTPEmailService creates a new SMTP email service. SMTPSecure selects
// implicit TLS ("ssl"), STARTTLS ("tls") or a plain connection ("").
func NewSMTPEmailService(cfg config.MailConfig, log *slog.Logger) *SMTPEmailService {
	s := &SMTPEmailService{
		addr:   cfg.SMTPAddr(),
		host:   cfg.SMTPHost,
		secure: cfg.SMTPSecure,
		logger: log,
	}
	if cfg.SMTPUsername != "" {
		s.auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	s.send = s.deliver
	return s
}

func (s *SMTPEmailService) deliver(e *email.Email) error {
	switch s.secure {
	case "ssl":
		return e.SendWithTLS(s.addr, s.auth, &tls.Config{ServerName: s.host})
	case "tls":
		return e.SendWithStartTLS(s.addr, s.auth, &tls.Config{ServerName: s.host})
	default:
		return e.Send(s.addr, s.auth)
	}
}

// SendContactEmail delivers msg, giving up when ctx is done. A delivery that
// is abandoned keeps running in the background until the server answers.
func (s *SMTPEmailService) SendContactEmail(ctx context.Context, msg *models.ContactEmail) error {
	e := email.NewEmail()
	e.From = formatAddress(msg.FromName, msg.FromAddress)
	e.To = []string{formatAddress(msg.ToName, msg.ToAddress)}
	e.ReplyTo = []string{formatAddress(msg.ReplyToName, msg.ReplyTo)}
	e.Subject = msg.Subject
	e.HTML = []byte(msg.HTMLBody)
	e.Text = []byte(msg.TextBody)

	done := make(chan error, 1)
	go func() {
		done <- s.send(e)
	}()

	select {
	case err := <-done:
		if err != nil {
			s.logger.Error("failed to send contact email via SMTP",
				slog.String("smtp_host", s.host),
				slog.Any("error", err))
			return fmt.Errorf("failed to send email: %w", err)
		}
	case <-ctx.Done():
		s.logger.Error("contact email timed out",
			slog.String("smtp_host", s.host),
			slog.Any("error", ctx.Err()))
		return fmt.Errorf("failed to send email: %w", ctx.Err())
	}

	s.logger.Info("contact email sent",
		slog.String("transport", config.TransportSMTP),
		slog.String("reply_to", logger.SanitizedEmail(msg.ReplyTo)))
	return nil
}

// sesSender is the subset of the SES client used here
type sesSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	sesClient sesSender
	logger    *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region string, log *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient: ses.NewFromConfig(cfg),
		logger:    log,
	}, nil
}

// SendContactEmail sends the message through SES
func (s *AWSSESEmailService) SendContactEmail(ctx context.Context, msg *models.ContactEmail) error {
	input := &ses.SendEmailInput{
		Source: aws.String(formatAddress(msg.FromName, msg.FromAddress)),
		Destination: &types.Destination{
			ToAddresses: []string{formatAddress(msg.ToName, msg.ToAddress)},
		},
		ReplyToAddresses: []string{formatAddress(msg.ReplyToName, msg.ReplyTo)},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(msg.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(msg.HTMLBody),
					Charset: aws.String("UTF-8"),
				},
				Text: &types.Content{
					Data:    aws.String(msg.TextBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send contact email via SES", slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("contact email sent",
		slog.String("transport", config.TransportSES),
		slog.String("reply_to", logger.SanitizedEmail(msg.ReplyTo)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

// LogEmailService writes messages to the log instead of delivering them.
// Used in development when no relay is configured.
type LogEmailService struct {
	logger *slog.Logger
}

func NewLogEmailService(log *slog.Logger) *LogEmailService {
	return &LogEmailService{logger: log}
}

func (s *LogEmailService) SendContactEmail(ctx context.Context, msg *models.ContactEmail) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("contact email (not delivered)",
		slog.String("transport", config.TransportLog),
		slog.String("to", logger.SanitizedEmail(msg.ToAddress)),
		slog.String("reply_to", logger.SanitizedEmail(msg.ReplyTo)),
		slog.String("subject", logger.TruncateForLog(msg.Subject, 80)),
		slog.Int("text_length", len(msg.TextBody)))
	return nil
}
