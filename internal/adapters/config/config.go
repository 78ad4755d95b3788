package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"cryptosys/pkg/errors"
)

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	OpenAI        OpenAIConfig
	Polygon       PolygonConfig
	NewsAPI       NewsAPIConfig
	Twitter       TwitterConfig
	History       HistoryConfig
	Postgres      PostgresConfig
	Cache         CacheConfig
	Redis         RedisConfig
	ScoreHistory  ScoreHistoryConfig
	ClickHouse    ClickHouseConfig
	Kafka         KafkaConfig
	Telegram      TelegramConfig
	Watchlist     WatchlistConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"cryptosys"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type HTTPConfig struct {
	Port           int           `envconfig:"HTTP_PORT" default:"8000"`
	ReadTimeout    time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout   time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"180s"`
	AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

type OpenAIConfig struct {
	APIKey            string        `envconfig:"OPENAI_API_KEY"`
	Model             string        `envconfig:"OPENAI_MODEL" default:"gpt-4o"`
	BaseURL           string        `envconfig:"OPENAI_BASE_URL"`
	Timeout           time.Duration `envconfig:"OPENAI_TIMEOUT" default:"120s"`
	EmbeddingModel    string        `envconfig:"OPENAI_EMBEDDING_MODEL" default:"text-embedding-3-small"`
	RequestsPerMinute int           `envconfig:"OPENAI_REQUESTS_PER_MINUTE" default:"0"`
}

type PolygonConfig struct {
	APIKey            string        `envconfig:"POLYGON_API_KEY"`
	BaseURL           string        `envconfig:"POLYGON_BASE_URL" default:"https://api.polygon.io"`
	WindowDays        int           `envconfig:"POLYGON_WINDOW_DAYS" default:"7"`
	RequestsPerMinute int           `envconfig:"POLYGON_REQUESTS_PER_MINUTE" default:"0"`
	Timeout           time.Duration `envconfig:"POLYGON_TIMEOUT" default:"15s"`
}

type NewsAPIConfig struct {
	APIKey   string        `envconfig:"NEWS_API_KEY"`
	BaseURL  string        `envconfig:"NEWS_API_BASE_URL" default:"https://newsapi.org"`
	PageSize int           `envconfig:"NEWS_PAGE_SIZE" default:"20"`
	Timeout  time.Duration `envconfig:"NEWS_API_TIMEOUT" default:"15s"`
}

// TwitterConfig drives the optional social provider; an empty token disables it
type TwitterConfig struct {
	BearerToken string        `envconfig:"TWITTER_BEARER_TOKEN"`
	BaseURL     string        `envconfig:"TWITTER_BASE_URL" default:"https://api.twitter.com"`
	MaxPosts    int           `envconfig:"SOCIAL_MAX_POSTS" default:"10"`
	WindowDays  int           `envconfig:"SOCIAL_WINDOW_DAYS" default:"3"`
	Timeout     time.Duration `envconfig:"TWITTER_TIMEOUT" default:"10s"`
}

func (c TwitterConfig) Enabled() bool {
	return c.BearerToken != ""
}

type HistoryConfig struct {
	Enabled bool `envconfig:"HISTORY_STORE_ENABLED" default:"false"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"cryptosys"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"cryptosys"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// CacheConfig controls the per-symbol context cache. Zero TTL and zero
// MaxEntries keep entries for the process lifetime.
type CacheConfig struct {
	Backend    string        `envconfig:"CACHE_BACKEND" default:"memory"`
	TTL        time.Duration `envconfig:"CACHE_TTL" default:"0s"`
	MaxEntries int           `envconfig:"CACHE_MAX_ENTRIES" default:"0"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ScoreHistoryConfig controls the ClickHouse score history. Writes are
// buffered and flushed every FlushInterval or once BatchSize rows are pending.
type ScoreHistoryConfig struct {
	Enabled       bool          `envconfig:"SCORE_HISTORY_ENABLED" default:"false"`
	Table         string        `envconfig:"SCORE_HISTORY_TABLE" default:"sentiment_scores"`
	BatchSize     int           `envconfig:"SCORE_HISTORY_BATCH_SIZE" default:"100"`
	FlushInterval time.Duration `envconfig:"SCORE_HISTORY_FLUSH_INTERVAL" default:"5s"`
}

type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST" default:"localhost"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"cryptosys"`
}

// KafkaConfig enables analysis events when brokers are set. An empty
// RequestTopic disables the analysis request consumer.
type KafkaConfig struct {
	Brokers       []string `envconfig:"KAFKA_BROKERS"`
	AnalysisTopic string   `envconfig:"KAFKA_ANALYSIS_TOPIC" default:"cryptosys.analysis.completed"`
	RequestTopic  string   `envconfig:"KAFKA_REQUEST_TOPIC"`
	GroupID       string   `envconfig:"KAFKA_GROUP_ID" default:"cryptosys"`
}

func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

func (c KafkaConfig) ConsumerEnabled() bool {
	return c.Enabled() && c.RequestTopic != ""
}

// TelegramConfig drives completion notifications to ChatID and, when
// ChatEnabled is set, the polling chat bot.
type TelegramConfig struct {
	BotToken    string `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID      int64  `envconfig:"TELEGRAM_CHAT_ID"`
	ChatEnabled bool   `envconfig:"TELEGRAM_CHAT_ENABLED" default:"false"`
}

func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.ChatID != 0
}

func (c TelegramConfig) BotEnabled() bool {
	return c.BotToken != "" && (c.ChatID != 0 || c.ChatEnabled)
}

type WatchlistConfig struct {
	Symbols         []string      `envconfig:"WATCHLIST_SYMBOLS"`
	Interval        time.Duration `envconfig:"WATCHLIST_INTERVAL" default:"30m"`
	JanitorInterval time.Duration `envconfig:"CACHE_JANITOR_INTERVAL" default:"5m"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks keys whose presence depends on other settings
func (c *Config) Validate() error {
	required := map[string]string{
		"OPENAI_API_KEY":  c.OpenAI.APIKey,
		"POLYGON_API_KEY": c.Polygon.APIKey,
		"NEWS_API_KEY":    c.NewsAPI.APIKey,
	}
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			return errors.NewValidationError(key, "is required", value)
		}
	}

	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return errors.NewValidationError("CACHE_BACKEND", "must be memory or redis", c.Cache.Backend)
	}

	if c.Cache.TTL < 0 {
		return errors.NewValidationError("CACHE_TTL", "must not be negative", c.Cache.TTL)
	}
	if c.Cache.MaxEntries < 0 {
		return errors.NewValidationError("CACHE_MAX_ENTRIES", "must not be negative", c.Cache.MaxEntries)
	}

	if c.ErrorTracking.Enabled && c.ErrorTracking.SentryDSN == "" {
		return errors.NewValidationError("SENTRY_DSN", "is required when error tracking is enabled", "")
	}

	if c.Telegram.ChatEnabled && c.Telegram.BotToken == "" {
		return errors.NewValidationError("TELEGRAM_BOT_TOKEN", "is required when the telegram chat is enabled", "")
	}

	if len(c.Watchlist.Symbols) > 0 && c.Watchlist.Interval <= 0 {
		return errors.NewValidationError("WATCHLIST_INTERVAL", "must be positive", c.Watchlist.Interval)
	}

	return nil
}
