package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"cryptosys/internal/adapters/config"
	"cryptosys/pkg/errors"
)

// Client is a small facade over the native ClickHouse driver used by the
// score history repository.
type Client struct {
	conn driver.Conn
	addr string
}

// NewClient opens an LZ4-compressed connection and pings it
func NewClient(ctx context.Context, cfg config.ClickHouseConfig) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout:  10 * time.Second,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open clickhouse %s", addr)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(errors.ErrUnavailable, "clickhouse ping %s: %v", addr, err)
	}

	return &Client{conn: conn, addr: addr}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) Health(ctx context.Context) error {
	if err := c.conn.Ping(ctx); err != nil {
		return errors.Wrapf(errors.ErrUnavailable, "clickhouse ping %s: %v", c.addr, err)
	}
	return nil
}

func (c *Client) Exec(ctx context.Context, query string, args ...interface{}) error {
	return c.conn.Exec(ctx, query, args...)
}

// Select scans rows into dest, a pointer to a slice of ch-tagged structs
func (c *Client) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return c.conn.Select(ctx, dest, query, args...)
}

// InsertStructs sends rows as one batch. An append failure aborts the whole batch.
func (c *Client) InsertStructs(ctx context.Context, query string, rows []interface{}) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx, query)
	if err != nil {
		return errors.Wrap(err, "prepare batch")
	}

	for i, row := range rows {
		if err := batch.AppendStruct(row); err != nil {
			_ = batch.Abort()
			return errors.Wrapf(err, "append row %d", i)
		}
	}

	return errors.Wrap(batch.Send(), "send batch")
}
