package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/warranty-tracker/internal/app"
	"github.com/joseph-ayodele/warranty-tracker/internal/common"
	"github.com/joseph-ayodele/warranty-tracker/internal/redact"
)

var (
	userFlag   string
	strictFlag string
	inmemFlag  bool
)

var rootCmd = &cobra.Command{
	Use:           "warranty",
	Short:         "Extract warranty records from receipts",
	Long:          `Run the receipt extraction pipeline locally, redact text, export products and manage the schema.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", os.Getenv("WARRANTY_USER_ID"), "Owner user id (UUID)")
	rootCmd.PersistentFlags().StringVar(&strictFlag, "strict", "", "Override REDACTION_STRICT (true|false)")
	rootCmd.PersistentFlags().BoolVar(&inmemFlag, "inmem", false, "Use an in-memory SQLite database")
}

// loadConfig reads the environment and applies the global flag overrides.
func loadConfig() (*common.Config, *slog.Logger, error) {
	cfg, err := common.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if strict, ok := redact.ParseStrict(strictFlag); ok {
		cfg.Redaction.Strict = strict
	}
	if inmemFlag {
		cfg.Database.Driver = "sqlite"
		cfg.Database.DSN = ":memory:"
		cfg.Database.AutoMigrate = true
	}
	logger := common.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func userID() (uuid.UUID, error) {
	if userFlag == "" {
		return uuid.Nil, common.NewAppError("INVALID_INPUT", "--user is required", common.ErrInvalidInput)
	}
	id, err := uuid.Parse(userFlag)
	if err != nil {
		return uuid.Nil, common.NewAppError("INVALID_INPUT", "--user must be a UUID", common.ErrInvalidInput)
	}
	return id, nil
}

func openApp(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*app.App, error) {
	// The CLI always drains jobs in-process.
	cfg.Queue.Backend = app.QueueMemory
	return app.New(ctx, cfg, logger)
}
