package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour of a connection
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Config describes the history database
type Config struct {
	Driver Dialect
	// URL is a Postgres connection string or an SQLite file path (":memory:" allowed)
	URL string
}

// DB is a connection pool with its dialect
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to the database and verifies the connection
func Open(ctx context.Context, cfg Config) (*DB, error) {
	switch cfg.Driver {
	case Postgres:
		if cfg.URL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	case SQLite:
		if cfg.URL == "" {
			cfg.URL = "floorwatch.db"
		}
		if cfg.URL != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.URL), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	sqlDB, err := sql.Open(string(cfg.Driver), cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db := &DB{DB: sqlDB, Dialect: cfg.Driver}

	if cfg.Driver == SQLite {
		if cfg.URL == ":memory:" {
			// every pooled connection would get its own empty database
			sqlDB.SetMaxOpenConns(1)
		}
		if err := applyPragmas(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Str("driver", string(cfg.Driver)).Msg("connected to database")
	return db, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return nil
}

// CreateTables creates the history tables if they don't exist
func (db *DB) CreateTables(ctx context.Context) error {
	var queries []string
	switch db.Dialect {
	case Postgres:
		queries = []string{
			`CREATE TABLE IF NOT EXISTS floor_prices (
				item_key TEXT PRIMARY KEY,
				last_amount NUMERIC(30,10) NOT NULL,
				last_currency VARCHAR(10) NOT NULL,
				recorded_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS floor_observations (
				id BIGSERIAL PRIMARY KEY,
				item_key TEXT NOT NULL,
				amount NUMERIC(30,10) NOT NULL,
				currency VARCHAR(10) NOT NULL,
				recorded_at TIMESTAMPTZ NOT NULL
			)`,
		}
	default:
		queries = []string{
			`CREATE TABLE IF NOT EXISTS floor_prices (
				item_key TEXT PRIMARY KEY,
				last_amount TEXT NOT NULL,
				last_currency TEXT NOT NULL,
				recorded_at TIMESTAMP NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS floor_observations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				item_key TEXT NOT NULL,
				amount TEXT NOT NULL,
				currency TEXT NOT NULL,
				recorded_at TIMESTAMP NOT NULL
			)`,
		}
	}
	queries = append(queries,
		`CREATE INDEX IF NOT EXISTS idx_floor_observations_item ON floor_observations (item_key, recorded_at DESC)`)

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Rebind rewrites ? placeholders into the dialect's form
func (db *DB) Rebind(query string) string {
	return Rebind(db.Dialect, query)
}

// Rebind rewrites ? placeholders into $N for Postgres
func Rebind(d Dialect, query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close closes the database connection
func (db *DB) Close() error {
	if db != nil && db.DB != nil {
		return db.DB.Close()
	}
	return nil
}
