package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"cryptosys/internal/adapters/config"
	"cryptosys/pkg/errors"
)

// Client owns the pgvector-enabled connection pool behind the history store
type Client struct {
	db *sqlx.DB
}

// NewClient connects, sizes the pool and pings
func NewClient(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUnavailable, "connect postgres %s:%d: %v", cfg.Host, cfg.Port, err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(max(cfg.MaxConns/2, 1))
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	return &Client{db: db}, nil
}

func (c *Client) DB() *sqlx.DB {
	return c.db
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Health(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return errors.Wrapf(errors.ErrUnavailable, "postgres ping: %v", err)
	}
	return nil
}

// Migrate enables pgvector and creates the news chunk table when missing
func (c *Client) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "apply schema statement %d", i)
		}
	}
	return nil
}

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS news_chunks (
		id              UUID PRIMARY KEY,
		symbol          TEXT NOT NULL,
		chunk_date      DATE NOT NULL,
		content         TEXT NOT NULL,
		embedding       vector NOT NULL,
		embedding_model TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS news_chunks_symbol_date_idx ON news_chunks (symbol, chunk_date)`,
}
