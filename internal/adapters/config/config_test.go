package config

import (
	"testing"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptosys/pkg/errors"
)

func setRequired(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("POLYGON_API_KEY", "pg-test")
	t.Setenv("NEWS_API_KEY", "news-test")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "cryptosys", cfg.App.Name)
	assert.Equal(t, 8000, cfg.HTTP.Port)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 7, cfg.Polygon.WindowDays)
	assert.Equal(t, 20, cfg.NewsAPI.PageSize)
	assert.Equal(t, 10, cfg.Twitter.MaxPosts)
	assert.Equal(t, 3, cfg.Twitter.WindowDays)
	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	assert.Zero(t, cfg.Cache.TTL)
	assert.Zero(t, cfg.Cache.MaxEntries)
	assert.False(t, cfg.Twitter.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.Kafka.ConsumerEnabled())
	assert.False(t, cfg.Telegram.Enabled())
}

func TestLoadOptionalSections(t *testing.T) {
	setRequired(t)
	t.Setenv("TWITTER_BEARER_TOKEN", "bearer")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("WATCHLIST_SYMBOLS", "BTC,ETH")
	t.Setenv("CACHE_TTL", "10m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Twitter.Enabled())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Kafka.ConsumerEnabled())
	assert.Equal(t, []string{"BTC", "ETH"}, cfg.Watchlist.Symbols)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
}

func TestValidateRejectsMissingKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	var cfg Config
	require.NoError(t, envconfig.Process("", &cfg))

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestValidateRejectsUnknownCacheBackend(t *testing.T) {
	setRequired(t)
	t.Setenv("CACHE_BACKEND", "memcached")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_BACKEND")
}

func TestPostgresDSN(t *testing.T) {
	c := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=disable", c.DSN())
}

func TestTelegramChatRequiresToken(t *testing.T) {
	setRequired(t)
	t.Setenv("TELEGRAM_CHAT_ENABLED", "true")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
}
