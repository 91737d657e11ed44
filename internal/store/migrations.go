package store

import (
	"context"
	"database/sql"
	"strings"
)

// schema contains the DDL for all local tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	// Sessions hold the full user record as JSON so the access gate can
	// answer from local state without a round trip to the game backend.
	`CREATE TABLE IF NOT EXISTS sessions (
		id           TEXT PRIMARY KEY,
		user_json    TEXT NOT NULL,
		console      INTEGER NOT NULL DEFAULT 0,
		created_at   INTEGER NOT NULL,
		expires_at   INTEGER NOT NULL,
		refreshed_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`,

	// Rule categories are the only content the site owns; rules themselves
	// live on the game backend and reference categories by id.
	`CREATE TABLE IF NOT EXISTS rule_categories (
		id         TEXT PRIMARY KEY,
		label      TEXT NOT NULL,
		icon       TEXT NOT NULL DEFAULT 'Folder',
		sort_order INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rule_categories_sort ON rule_categories(sort_order)`,
}

// alterStatements are column additions that need special handling since
// SQLite doesn't support IF NOT EXISTS for ALTER TABLE ADD COLUMN.
var alterStatements = []struct {
	table    string
	column   string
	alterSQL string
	indexSQL string // Optional index to create after column is added
}{
	{
		table:    "sessions",
		column:   "refreshed_at",
		alterSQL: "ALTER TABLE sessions ADD COLUMN refreshed_at INTEGER NOT NULL DEFAULT 0",
	},
	{
		table:    "rule_categories",
		column:   "sort_order",
		alterSQL: "ALTER TABLE rule_categories ADD COLUMN sort_order INTEGER NOT NULL DEFAULT 0",
		indexSQL: "CREATE INDEX IF NOT EXISTS idx_rule_categories_sort ON rule_categories(sort_order)",
	},
}

// migrate executes all schema DDL statements and alter migrations.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	// Execute ALTER TABLE statements idempotently.
	for _, alter := range alterStatements {
		if err := addColumnIfNotExists(ctx, db, alter.table, alter.column, alter.alterSQL); err != nil {
			return err
		}
		if alter.indexSQL != "" {
			if _, err := db.ExecContext(ctx, alter.indexSQL); err != nil {
				return err
			}
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(ctx context.Context, db *sql.DB, table, column, alterSQL string) error {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue *string
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if strings.EqualFold(name, column) {
			return nil // Column already exists
		}
	}

	_, err = db.ExecContext(ctx, alterSQL)
	return err
}
