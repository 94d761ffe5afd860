package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bguvava/portfolio/internal/config"
	"github.com/bguvava/portfolio/internal/database"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply the postgres rate limit schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadStore()
			if err != nil {
				return err
			}
			return database.Migrate(cmd.Context(), cfg.Database.DSN(), logger)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the state of every migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadStore()
			if err != nil {
				return err
			}
			return database.MigrationStatus(cmd.Context(), cfg.Database.DSN())
		},
	})

	if err := root.Execute(); err != nil {
		logger.Error("migration failed", slog.Any("error", err))
		os.Exit(1)
	}
}
