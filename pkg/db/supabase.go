package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	supabase "github.com/supabase-community/supabase-go"
)

// SupabaseConfig holds configuration required to connect to Supabase.
type SupabaseConfig struct {
	// ConnectionString is the direct Postgres connection string. When empty it
	// is derived from ProjectURL and Password.
	ConnectionString string

	// ProjectURL is the project URL, e.g. "https://[project-ref].supabase.co".
	ProjectURL string

	// APIKey enables the REST client (anon or service_role key).
	APIKey string

	// Password is the database password, not the API key.
	Password string

	Pool PoolOptions
}

// SupabaseClient gives access to a Supabase project either through a direct
// Postgres connection, the REST API, or both.
type SupabaseClient struct {
	db  *sql.DB
	sdk *supabase.Client
	cfg SupabaseConfig
}

// NewSupabaseClient constructs an unconnected Supabase client.
func NewSupabaseClient(cfg SupabaseConfig) *SupabaseClient {
	return &SupabaseClient{cfg: cfg}
}

// Connect sets up the REST client when URL and key are present and the direct
// connection when a connection string or password is present. A failing
// direct connection is tolerated when the REST client is available.
func (c *SupabaseClient) Connect(ctx context.Context) error {
	if c.cfg.ProjectURL != "" && c.cfg.APIKey != "" {
		sdk, err := supabase.NewClient(c.cfg.ProjectURL, c.cfg.APIKey, nil)
		if err != nil {
			return fmt.Errorf("initialize supabase SDK: %w", err)
		}
		c.sdk = sdk
	}

	if err := c.connectDirect(ctx); err != nil && c.sdk == nil {
		return err
	}

	if c.db == nil && c.sdk == nil {
		return errors.New("either connection string/password or Supabase URL+key must be provided")
	}
	return nil
}

func (c *SupabaseClient) connectDirect(ctx context.Context) error {
	connStr := c.cfg.ConnectionString
	if connStr == "" {
		if c.cfg.Password == "" {
			return nil
		}
		var err error
		connStr, err = supabaseConnectionString(c.cfg.ProjectURL, c.cfg.Password)
		if err != nil {
			return fmt.Errorf("build connection string: %w", err)
		}
	}

	// The pooler in front of Supabase does not keep prepared statements
	// across parallel sessions.
	connStr = withConnectionParam(connStr, "statement_cache_capacity", "0")
	connStr = withConnectionParam(connStr, "default_query_exec_mode", "simple_protocol")

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("open supabase postgres: %w", err)
	}
	c.cfg.Pool.apply(db)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping supabase postgres: %w", err)
	}

	c.db = db
	return nil
}

// Close closes the direct connection, if any.
func (c *SupabaseClient) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DB returns the direct connection, or nil in REST-only mode.
func (c *SupabaseClient) DB() *sql.DB {
	return c.db
}

// HasDirectDB reports whether a direct connection is available.
func (c *SupabaseClient) HasDirectDB() bool {
	return c.db != nil
}

// SDK returns the REST client, or nil when no API key was configured.
func (c *SupabaseClient) SDK() *supabase.Client {
	return c.sdk
}

// supabaseConnectionString derives the direct connection string from the
// project URL (https://<ref>.supabase.co) and the database password.
func supabaseConnectionString(projectURL, password string) (string, error) {
	if projectURL == "" {
		return "", errors.New("supabase URL is required when connection string is not provided")
	}
	if password == "" {
		return "", errors.New("supabase password is required when connection string is not provided")
	}

	parsed, err := url.Parse(projectURL)
	if err != nil {
		return "", fmt.Errorf("parse supabase URL: %w", err)
	}

	parts := strings.Split(parsed.Host, ".")
	if len(parts) < 2 || parts[0] == "" {
		return "", errors.New("invalid supabase URL format: expected [project-ref].supabase.co")
	}

	return fmt.Sprintf("postgresql://postgres:%s@db.%s.supabase.co:5432/postgres?sslmode=require",
		url.QueryEscape(password), parts[0]), nil
}

// withConnectionParam appends key=value to a connection string unless the key
// is already set.
func withConnectionParam(connStr, key, value string) string {
	if strings.Contains(connStr, key+"=") {
		return connStr
	}
	separator := "?"
	if strings.Contains(connStr, "?") {
		separator = "&"
	}
	return connStr + separator + key + "=" + value
}
