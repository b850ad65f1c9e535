package main

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/warranty-tracker/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		db, err := repository.Open(ctx, repository.Config{
			Driver:      cfg.Database.Driver,
			DSN:         cfg.Database.DSN,
			DialTimeout: cfg.Database.DialTimeout,
		}, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := repository.Migrate(ctx, db); err != nil {
			return err
		}
		logger.Info("cli.migrated", "driver", cfg.Database.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
