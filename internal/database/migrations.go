package database

import (
	"context"
	"database/sql"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS tags (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_tags_name_lower ON tags (LOWER(name))`,
	`CREATE TABLE IF NOT EXISTS links (
		id BIGSERIAL PRIMARY KEY,
		short_code VARCHAR(20) NOT NULL UNIQUE,
		original_url TEXT NOT NULL,
		owner_id TEXT,
		tag_id BIGINT REFERENCES tags(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL,
		last_used_at TIMESTAMPTZ,
		clicks BIGINT NOT NULL DEFAULT 0 CHECK (clicks >= 0),
		expires_at TIMESTAMPTZ NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_links_owner_active ON links (owner_id, is_active)`,
	`CREATE INDEX IF NOT EXISTS idx_links_active_expires ON links (is_active, expires_at)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_tags_name_lower ON tags (lower(name))`,
	`CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		short_code TEXT NOT NULL UNIQUE,
		original_url TEXT NOT NULL,
		owner_id TEXT,
		tag_id INTEGER REFERENCES tags(id) ON DELETE SET NULL,
		created_at DATETIME NOT NULL,
		last_used_at DATETIME,
		clicks INTEGER NOT NULL DEFAULT 0 CHECK (clicks >= 0),
		expires_at DATETIME NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1
	)`,
	`CREATE INDEX IF NOT EXISTS idx_links_owner_active ON links (owner_id, is_active)`,
	`CREATE INDEX IF NOT EXISTS idx_links_active_expires ON links (is_active, expires_at)`,
}

// Migrate creates the links and tags schema. It is safe to run repeatedly.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	schema := postgresSchema
	if dialect == SQLite {
		schema = sqliteSchema
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}
