package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Kosench/shortlinks/internal/config"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryDSN() string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
}

func TestRebind(t *testing.T) {
	query := "SELECT id FROM links WHERE short_code = ? AND is_active = ?"

	assert.Equal(t, "SELECT id FROM links WHERE short_code = $1 AND is_active = $2", Postgres.Rebind(query))
	assert.Equal(t, query, SQLite.Rebind(query))
}

func TestConnect_SQLiteMigratesIdempotently(t *testing.T) {
	ctx := context.Background()
	db, dialect, err := Connect(ctx, config.DatabaseConfig{Driver: "sqlite", DSN: memoryDSN()})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, SQLite, dialect)
	require.NoError(t, Migrate(ctx, db, dialect))
	require.NoError(t, HealthCheck(ctx, db))

	version, err := GetVersion(ctx, db, dialect)
	require.NoError(t, err)
	assert.Contains(t, version, "SQLite")
}

func TestIsUniqueViolation(t *testing.T) {
	ctx := context.Background()
	db, _, err := Connect(ctx, config.DatabaseConfig{Driver: "sqlite", DSN: memoryDSN()})
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecContext(ctx, "INSERT INTO tags (name) VALUES (?)", "Docs")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, "INSERT INTO tags (name) VALUES (?)", "docs")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("connection reset")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestWithSQLiteParams(t *testing.T) {
	assert.Equal(t,
		"file:a.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite",
		withSQLiteParams("file:a.db"))
	assert.Equal(t,
		"file:x?mode=memory&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite",
		withSQLiteParams("file:x?mode=memory"))
	assert.Equal(t, "file:x?_pragma=foreign_keys(1)&_time_format=sqlite", withSQLiteParams("file:x?_pragma=foreign_keys(1)&_time_format=sqlite"))
}
