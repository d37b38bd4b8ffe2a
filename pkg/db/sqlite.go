package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteConfig holds configuration for a local SQLite episode database.
type SQLiteConfig struct {
	// Path of the database file. ":memory:" opens a private in-memory database.
	Path string

	Pool PoolOptions
}

// SQLiteClient wraps a modernc.org/sqlite handle.
type SQLiteClient struct {
	db  *sql.DB
	cfg SQLiteConfig
}

// NewSQLiteClient constructs an unconnected SQLite client.
func NewSQLiteClient(cfg SQLiteConfig) *SQLiteClient {
	return &SQLiteClient{cfg: cfg}
}

// Connect opens the database file, creating its directory when needed.
func (c *SQLiteClient) Connect(ctx context.Context) error {
	if c.cfg.Path == "" {
		return fmt.Errorf("sqlite path is required")
	}

	dsn := c.cfg.Path
	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return fmt.Errorf("create sqlite dir: %w", err)
		}
		dsn = "file:" + dsn + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}

	pool := c.cfg.Pool
	if c.cfg.Path == ":memory:" || pool.MaxOpenConns == 0 {
		// Each connection to ":memory:" is a separate database, and SQLite
		// allows one writer anyway.
		pool.MaxOpenConns = 1
	}
	pool.apply(db)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping sqlite: %w", err)
	}

	c.db = db
	return nil
}

// Close closes the underlying sql.DB handle.
func (c *SQLiteClient) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DB exposes the underlying handle.
func (c *SQLiteClient) DB() *sql.DB {
	return c.db
}
