// Package cli implements the contactctl command line tool.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

var verbose bool

// NewRootCommand builds the contactctl command tree
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "contactctl",
		Short:         "Portfolio contact form tooling",
		Long:          "Submit to a running contact endpoint and manage the persisted rate limit state.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(newSubmitCommand())
	root.AddCommand(newRateLimitCommand())
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

func commandLogger(cmd *cobra.Command) *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}
