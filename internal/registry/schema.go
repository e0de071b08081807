package registry

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// The tasks table keeps the column names older registries were created with.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		task_id       INTEGER PRIMARY KEY AUTOINCREMENT,
		task_name     TEXT    NOT NULL,
		task_type     TEXT    NOT NULL,
		schedule_type TEXT    NOT NULL,
		source        TEXT    NOT NULL DEFAULT '{}',
		destination   TEXT    NOT NULL,
		enabled       INTEGER NOT NULL DEFAULT 1
	)`,

	`CREATE INDEX IF NOT EXISTS idx_tasks_enabled ON tasks(enabled)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("registry: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("registry: read schema version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("registry: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("registry: record schema version: %w", err)
	}
	return nil
}
