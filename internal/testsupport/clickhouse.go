package testsupport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cryptosys/internal/adapters/clickhouse"
)

// NewTestClickHouse connects using environment settings and closes on cleanup
func NewTestClickHouse(t *testing.T) *clickhouse.Client {
	t.Helper()

	client, err := clickhouse.NewClient(context.Background(), ClickHouseConfigFromEnv(t))
	if err != nil {
		t.Fatalf("failed to connect to clickhouse: %v", err)
	}

	t.Cleanup(func() { _ = client.Close() })
	return client
}

// TempTableName returns a unique table name dropped when the test ends
func TempTableName(t *testing.T, client *clickhouse.Client) string {
	t.Helper()

	table := fmt.Sprintf("tmp_test_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
	})

	return table
}
