package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Kosench/shortlinks/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

const (
	pingTimeout            = 5 * time.Second
	connectionsMaxLifetime = 5 * time.Minute
	connectionsMaxIdleTime = 5 * time.Minute
)

// Connect opens the configured database, checks it is reachable and applies
// the schema.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, Dialect, error) {
	driverName, dsn, dialect := resolveDriver(cfg)

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}

	configurePool(db, dialect, cfg)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, "", err
	}

	return db, dialect, nil
}

func resolveDriver(cfg config.DatabaseConfig) (driverName, dsn string, dialect Dialect) {
	switch cfg.Driver {
	case "sqlite":
		dsn = cfg.DSN
		if dsn == "" {
			dsn = "file:shortlinks.db"
		}
		return "sqlite", withSQLiteParams(dsn), SQLite
	case "libsql":
		return "libsql", cfg.DSN, SQLite
	default:
		dsn = cfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
				cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
		}
		return "pgx", dsn, Postgres
	}
}

// withSQLiteParams adds per-connection pragmas and a sortable time format
// unless the DSN already sets them.
func withSQLiteParams(dsn string) string {
	params := []string{}
	if !strings.Contains(dsn, "_pragma=") {
		params = append(params, "_pragma=busy_timeout(5000)", "_pragma=foreign_keys(1)")
	}
	if !strings.Contains(dsn, "_time_format=") {
		params = append(params, "_time_format=sqlite")
	}
	if len(params) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func configurePool(db *sql.DB, dialect Dialect, cfg config.DatabaseConfig) {
	if dialect == SQLite {
		// SQLite allows a single writer; one connection keeps
		// in-memory databases alive and avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		return
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(connectionsMaxLifetime)
	db.SetConnMaxIdleTime(connectionsMaxIdleTime)
}

func HealthCheck(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.PingContext(ctx)
}

func GetVersion(ctx context.Context, db *sql.DB, dialect Dialect) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	query := "SELECT version()"
	if dialect == SQLite {
		query = "SELECT 'SQLite ' || sqlite_version()"
	}

	var version string
	err := db.QueryRowContext(ctx, query).Scan(&version)
	return strings.TrimSpace(version), err
}
