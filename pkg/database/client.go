// Package database provides database connections, dialect handling, and
// transaction helpers shared by the sanitization engines.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver for database/sql
	_ "modernc.org/sqlite"             // Register pure-Go sqlite driver
)

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// URL renders the config as a postgres connection URL.
func (c Config) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// DBTX is the query surface shared by *sql.DB and *sql.Tx, letting the
// engines run inside or outside an enclosing transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Client wraps an open connection with its dialect and the URL it was
// opened from (kept for elided logging and safe-copy identity checks).
type Client struct {
	db      *sql.DB
	dialect Dialect
	url     string
}

// DB returns the underlying database connection.
func (c *Client) DB() *sql.DB { return c.db }

// Dialect returns the SQL dialect for this connection.
func (c *Client) Dialect() Dialect { return c.dialect }

// URL returns the connection URL the client was opened from.
func (c *Client) URL() string { return c.url }

// Close closes the underlying connection.
func (c *Client) Close() error { return c.db.Close() }

// NewClientFromDB wraps an already-open connection (useful for testing).
func NewClientFromDB(db *sql.DB, dialect Dialect) *Client {
	return &Client{db: db, dialect: dialect}
}

// Open connects to a database URL. postgres:// and postgresql:// URLs use
// the pgx driver; sqlite:// and file: URLs use the embedded sqlite driver.
func Open(ctx context.Context, rawURL string) (*Client, error) {
	driver, dsn, dialect, err := resolveDriver(rawURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", ElideCredentials(rawURL), err)
	}

	return &Client{db: db, dialect: dialect, url: rawURL}, nil
}

// NewClient creates a postgres client from Config with connection pooling.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{db: db, dialect: Postgres, url: cfg.URL()}, nil
}

// WithConnection opens a connection to rawURL for the duration of fn, then
// closes it. The caller's own connections are untouched; the safe-copy
// workflow uses this to retarget itself at the freshly provisioned copy.
func WithConnection(ctx context.Context, rawURL string, fn func(*Client) error) error {
	client, err := Open(ctx, rawURL)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()
	return fn(client)
}

func resolveDriver(rawURL string) (driver, dsn string, dialect Dialect, err error) {
	switch {
	case strings.HasPrefix(rawURL, "postgres://"), strings.HasPrefix(rawURL, "postgresql://"):
		return "pgx", rawURL, Postgres, nil
	case strings.HasPrefix(rawURL, "sqlite://"):
		return "sqlite", strings.TrimPrefix(rawURL, "sqlite://"), SQLite, nil
	case strings.HasPrefix(rawURL, "file:"), rawURL == ":memory:":
		return "sqlite", rawURL, SQLite, nil
	default:
		return "", "", nil, fmt.Errorf("unsupported database URL scheme in %s", ElideCredentials(rawURL))
	}
}
