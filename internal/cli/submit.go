package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bguvava/portfolio/internal/formguard"
)

type submitOptions struct {
	url      string
	name     string
	email    string
	subject  string
	message  string
	honeypot string
	noWait   bool
}

func newSubmitCommand() *cobra.Command {
	opts := &submitOptions{}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Send a message through the contact form",
		Long: `Opens a session on the site, waits out the minimum fill time,
validates the fields locally and posts them to /contact.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "http://localhost:8080", "Base URL of the site")
	cmd.Flags().StringVar(&opts.name, "name", "", "Your name")
	cmd.Flags().StringVar(&opts.email, "email", "", "Your email address")
	cmd.Flags().StringVar(&opts.subject, "subject", "", "Message subject")
	cmd.Flags().StringVar(&opts.message, "message", "", "Message body")
	cmd.Flags().StringVar(&opts.honeypot, "website", "", "Honeypot value (testing only)")
	cmd.Flags().BoolVar(&opts.noWait, "no-wait", false, "Do not wait for the minimum fill time")
	_ = cmd.Flags().MarkHidden("website")

	return cmd
}

func runSubmit(cmd *cobra.Command, opts *submitOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	guard, err := formguard.New(opts.url,
		formguard.WithPanel(formguard.NewWriterPanel(out)),
		formguard.WithLogger(commandLogger(cmd)),
	)
	if err != nil {
		return err
	}

	if err := guard.Bootstrap(ctx); err != nil {
		return fmt.Errorf("failed to open contact session: %w", err)
	}

	if !opts.noWait {
		if wait := time.Until(guard.ReadyAt()); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}

	err = guard.Submit(ctx, formguard.Fields{
		Name:     opts.name,
		Email:    opts.email,
		Subject:  opts.subject,
		Message:  opts.message,
		Honeypot: opts.honeypot,
	})

	var invalid formguard.ValidationResult
	switch {
	case err == nil:
		return nil
	case errors.As(err, &invalid):
		return errors.New("message not sent: fix the fields above")
	case errors.Is(err, formguard.ErrSuppressed):
		return errors.New("message not sent: submission looked automated")
	default:
		return err
	}
}
