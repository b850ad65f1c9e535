package repository

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/joseph-ayodele/warranty-tracker/db/migrations"
)

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, db *DB) error {
	dialect := "postgres"
	if db.Dialect == DriverSQLite {
		dialect = "sqlite3"
	}
	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db.DB.DB, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
