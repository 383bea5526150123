package database

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"
	"waitlist-service/core/logger"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies every embedded migration not yet recorded in schema_migrations.
func Migrate(ctx context.Context, db IDatabase) error {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`); err != nil {
		return err
	}

	for _, f := range files {
		var applied bool
		if err := db.GetContext(ctx, &applied, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, f); err != nil {
			return err
		}
		if applied {
			continue
		}

		b, err := migrationFS.ReadFile("migrations/" + f)
		if err != nil {
			return err
		}
		if err := db.ExecContext(ctx, string(b)); err != nil {
			return fmt.Errorf("apply %s: %w", f, err)
		}
		if err := db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, f); err != nil {
			return err
		}
		logger.Info("Database:Migrate:Applied", "version", f)
	}
	return nil
}
