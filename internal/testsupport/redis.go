package testsupport

import (
	"context"
	"testing"
	"time"

	"cryptosys/internal/adapters/redis"
)

// NewTestRedis connects using environment settings. The selected database is
// emptied before the test and again on cleanup.
func NewTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	cfg := RedisConfigFromEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to connect to redis at %s: %v", cfg.Addr(), err)
	}
	if err := client.Client().FlushDB(ctx).Err(); err != nil {
		_ = client.Close()
		t.Fatalf("failed to flush redis db %d: %v", cfg.DB, err)
	}

	t.Cleanup(func() {
		_ = client.Client().FlushDB(context.Background()).Err()
		_ = client.Close()
	})

	return client
}
