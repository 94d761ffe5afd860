package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bguvava/portfolio/internal/config"
	"github.com/bguvava/portfolio/internal/repositories"
)

// loadStoreConfig is replaced in tests
var loadStoreConfig = config.LoadStore

func newRateLimitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rate-limit",
		Short: "Inspect or reset persisted rate limit state",
	}
	cmd.AddCommand(newRateLimitListCommand())
	cmd.AddCommand(newRateLimitResetCommand())
	cmd.AddCommand(newRateLimitPruneCommand())
	return cmd
}

func openStore(cmd *cobra.Command) (*repositories.RateLimitStore, *config.Config, error) {
	cfg, err := loadStoreConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := repositories.OpenRateLimitStore(cmd.Context(), cfg, commandLogger(cmd))
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

type rateLimitEntry struct {
	Key         string    `json:"key"`
	WindowStart time.Time `json:"window_start"`
	Count       int       `json:"count"`
	Limited     bool      `json:"limited"`
	Expired     bool      `json:"expired"`
}

func newRateLimitListCommand() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored rate limit records",
		RunE: func(cmd *cobra.Command, args []string) error {
			format := strings.ToLower(strings.TrimSpace(outputFormat))
			if format != "table" && format != "json" {
				return fmt.Errorf("unsupported output format: %s", outputFormat)
			}

			store, cfg, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close() // nolint:errcheck // best-effort cleanup

			records, err := store.Repository.List(cmd.Context())
			if err != nil {
				return err
			}

			now := time.Now()
			entries := make([]rateLimitEntry, 0, len(records))
			for _, rec := range records {
				expired := rec.Expired(now, cfg.RateLimit.Window)
				entries = append(entries, rateLimitEntry{
					Key:         rec.Key,
					WindowStart: rec.WindowStart.UTC(),
					Count:       rec.Count,
					Limited:     !expired && rec.Count >= cfg.RateLimit.MaxSubmissions,
					Expired:     expired,
				})
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				payload, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(payload))
				return err
			}

			if len(entries) == 0 {
				_, err := fmt.Fprintln(out, "(no stored rate limit state)")
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tWINDOW START\tCOUNT\tSTATUS")
			for _, e := range entries {
				status := "ok"
				switch {
				case e.Expired:
					status = "expired"
				case e.Limited:
					status = "limited"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\n", e.Key, e.WindowStart.Format(time.RFC3339), e.Count, cfg.RateLimit.MaxSubmissions, status)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&outputFormat, "output-format", "table", "Output format: table|json")
	return cmd
}

func newRateLimitResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <ip>",
		Short: "Forget the rate limit record of one client address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			if key == "" {
				return fmt.Errorf("client address must not be empty")
			}

			store, _, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close() // nolint:errcheck // best-effort cleanup

			if err := store.Repository.Reset(cmd.Context(), key); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Reset rate limit for %s\n", key)
			return err
		},
	}
}

func newRateLimitPruneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete records whose window has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close() // nolint:errcheck // best-effort cleanup

			removed, err := store.Repository.Prune(cmd.Context(), time.Now(), cfg.RateLimit.Window)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d expired record(s)\n", removed)
			return err
		},
	}
}
