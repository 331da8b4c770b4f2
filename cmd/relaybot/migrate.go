package main

import (
	"github.com/spf13/cobra"

	"github.com/edgard/relaybot/internal/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			// NewDB applies migrations on connect.
			db, err := database.NewDB(cfg.Database.URL, cfg.Database.MaxOpenConns)
			if err != nil {
				log.Error("Failed to migrate database", "url", cfg.Database.URL, "error", err)
				return err
			}
			database.CloseDB(db)

			log.Info("Database is up to date", "url", cfg.Database.URL)
			return nil
		},
	}
}
