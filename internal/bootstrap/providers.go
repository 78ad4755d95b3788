package bootstrap

import (
	"context"
	"time"

	"cryptosys/internal/adapters/ai"
	chclient "cryptosys/internal/adapters/clickhouse"
	"cryptosys/internal/adapters/config"
	"cryptosys/internal/adapters/embeddings"
	errnoop "cryptosys/internal/adapters/errors/noop"
	"cryptosys/internal/adapters/errors/sentry"
	"cryptosys/internal/adapters/kafka"
	"cryptosys/internal/adapters/newsapi"
	"cryptosys/internal/adapters/polygon"
	pgclient "cryptosys/internal/adapters/postgres"
	redisclient "cryptosys/internal/adapters/redis"
	"cryptosys/internal/adapters/telegram"
	"cryptosys/internal/adapters/twitter"
	"cryptosys/internal/api"
	"cryptosys/internal/api/health"
	tgapi "cryptosys/internal/api/telegram"
	"cryptosys/internal/consumers"
	"cryptosys/internal/domain/history"
	"cryptosys/internal/domain/social"
	"cryptosys/internal/events"
	"cryptosys/internal/metrics"
	chrepo "cryptosys/internal/repository/clickhouse"
	pgrepo "cryptosys/internal/repository/postgres"
	"cryptosys/internal/services/contextcache"
	historysvc "cryptosys/internal/services/history"
	marketsvc "cryptosys/internal/services/market"
	"cryptosys/internal/services/orchestrator"
	"cryptosys/internal/services/sentiment"
	"cryptosys/internal/workers"
	"cryptosys/pkg/errors"
	"cryptosys/pkg/logger"
	"cryptosys/pkg/templates"
)

const connectTimeout = 15 * time.Second

// ========================================
// Phase 1: Configuration & Logging
// ========================================

// MustInitConfig loads configuration, the logger, the error tracker and metrics
func (c *Container) MustInitConfig() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	c.Config = cfg

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	c.Log = logger.Get()
	c.Log.Infof("Starting %s %s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Env)

	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)

	metrics.Init()
}

// ========================================
// Phase 2: Infrastructure Layer
// ========================================

// MustInitInfrastructure connects the data stores enabled in config
func (c *Container) MustInitInfrastructure() {
	ctx, cancel := context.WithTimeout(c.Context, connectTimeout)
	defer cancel()

	var err error

	if c.Config.History.Enabled {
		c.Log.Info("Connecting to PostgreSQL...")
		c.PG, err = pgclient.NewClient(ctx, c.Config.Postgres)
		if err != nil {
			c.Log.Fatalf("failed to connect postgres: %v", err)
		}
		if err := c.PG.Migrate(ctx); err != nil {
			c.Log.Fatalf("failed to migrate postgres: %v", err)
		}
		c.Log.Info("✓ PostgreSQL connected")
	}

	if c.Config.Cache.Backend == config.CacheBackendRedis {
		c.Log.Info("Connecting to Redis...")
		c.Redis, err = redisclient.NewClient(ctx, c.Config.Redis)
		if err != nil {
			c.Log.Fatalf("failed to connect redis: %v", err)
		}
		c.Log.Info("✓ Redis connected")
	}

	if c.Config.ScoreHistory.Enabled {
		c.Log.Info("Connecting to ClickHouse...")
		c.CH, err = chclient.NewClient(ctx, c.Config.ClickHouse)
		if err != nil {
			c.Log.Fatalf("failed to connect clickhouse: %v", err)
		}
		c.Log.Info("✓ ClickHouse connected")
	}
}

// ========================================
// Phase 3: External Adapters
// ========================================

// MustInitAdapters builds the LLM, data providers, Kafka and Telegram clients
func (c *Container) MustInitAdapters() {
	var err error
	cfg := c.Config

	c.Adapters.Templates = templates.Get()

	c.Adapters.LLM, err = ai.NewOpenAICompleter(cfg.OpenAI)
	if err != nil {
		c.Log.Fatalf("failed to create openai completer: %v", err)
	}

	c.Adapters.Prices = polygon.NewClient(cfg.Polygon)
	c.Adapters.News = newsapi.NewClient(cfg.NewsAPI)
	c.Adapters.Social = provideSocial(cfg, c.Log)

	if cfg.Kafka.Enabled() {
		c.Adapters.KafkaProducer = kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
		c.Adapters.EventPublisher = events.NewPublisher(c.Adapters.KafkaProducer, cfg.Kafka.AnalysisTopic)
		c.Log.Info("✓ Kafka producer initialized", "topic", cfg.Kafka.AnalysisTopic)
	}

	if cfg.Telegram.BotEnabled() {
		c.Adapters.TelegramBot, err = telegram.NewBot(telegram.Config{Token: cfg.Telegram.BotToken})
		if err != nil {
			c.Log.Fatalf("failed to create telegram bot: %v", err)
		}
		if cfg.Telegram.Enabled() {
			c.Adapters.Notifier = telegram.NewNotifier(c.Adapters.TelegramBot, cfg.Telegram.ChatID, c.Adapters.Templates)
		}
		c.Log.Info("✓ Telegram bot initialized")
	}
}

// ========================================
// Phase 4: Services
// ========================================

// MustInitServices builds stores, analysts and the orchestrator
func (c *Container) MustInitServices() {
	cfg := c.Config

	store, err := provideHistoryStore(c)
	if err != nil {
		c.Log.Fatalf("failed to create history store: %v", err)
	}
	c.Services.History = store

	c.Services.Cache, c.Services.MemoryCache = provideCache(cfg, c.Redis)
	c.Log.Info("✓ Context cache initialized", "backend", cfg.Cache.Backend, "ttl", cfg.Cache.TTL)

	if c.CH != nil {
		if err := provideScoreHistory(c); err != nil {
			c.Log.Fatalf("failed to init score history: %v", err)
		}
	}

	c.Services.Analyst = marketsvc.NewAnalyst(
		c.Adapters.Prices,
		c.Adapters.LLM,
		c.Adapters.Templates,
		cfg.Polygon.WindowDays,
		cfg.OpenAI.Model,
	)

	c.Services.Synthesizer = sentiment.NewSynthesizer(
		c.Adapters.News,
		c.Adapters.Social,
		c.Services.History,
		c.Adapters.LLM,
		c.Adapters.Templates,
		sentimentConfig(cfg),
	)

	var sinks []orchestrator.Sink
	if c.Adapters.EventPublisher != nil {
		sinks = append(sinks, c.Adapters.EventPublisher)
	}
	if c.Adapters.Notifier != nil {
		sinks = append(sinks, c.Adapters.Notifier)
	}

	c.Services.Orchestrator = orchestrator.New(orchestrator.Deps{
		Market:    c.Services.Analyst,
		Sentiment: c.Services.Synthesizer,
		LLM:       c.Adapters.LLM,
		Templates: c.Adapters.Templates,
		Cache:     c.Services.Cache,
		Scores:    c.Services.Scores,
		Sinks:     sinks,
		Model:     cfg.OpenAI.Model,
	})

	if err := metrics.RegisterCollector(provideStateCollector(c)); err != nil {
		c.Log.Warn("Failed to register state collector", "error", err)
	}

	c.Log.Info("✓ Services initialized", "sinks", len(sinks))
}

// ========================================
// Phase 5: Application Layer
// ========================================

// MustInitApplication builds the HTTP server and the telegram chat handler
func (c *Container) MustInitApplication() {
	cfg := c.Config

	c.Application.HealthHandler = health.New(cfg.App.Name, cfg.App.Version, healthChecks(c))

	router := api.NewRouter(api.RouterConfig{
		Service:        c.Services.Orchestrator,
		Scores:         c.Services.Scores,
		Health:         c.Application.HealthHandler,
		Requests:       provideRequestQueue(c),
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})

	c.Application.HTTPServer = api.NewServer(api.ServerConfig{
		Port:         cfg.HTTP.Port,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}, router)

	if cfg.Telegram.ChatEnabled && c.Adapters.TelegramBot != nil {
		c.Application.TelegramChat = tgapi.NewChatHandler(c.Services.Orchestrator, c.Adapters.TelegramBot)
		c.Adapters.TelegramBot.SetHandler(c.Application.TelegramChat.HandleUpdate)
		c.Log.Info("✓ Telegram chat enabled")
	}
}

// ========================================
// Phase 6: Background Processing
// ========================================

// MustInitBackground registers workers and the analysis request consumer
func (c *Container) MustInitBackground() {
	cfg := c.Config
	scheduler := workers.NewScheduler()

	scheduler.RegisterWorker(workers.NewWatchlistWarmer(
		c.Services.Orchestrator,
		cfg.Watchlist.Symbols,
		cfg.Watchlist.Interval,
	))

	if c.Services.MemoryCache != nil {
		scheduler.RegisterWorker(workers.NewCacheJanitor(
			c.Services.MemoryCache,
			cfg.Watchlist.JanitorInterval,
			cfg.Cache.TTL > 0,
		))
	}

	c.Background.WorkerScheduler = scheduler
	if c.Application.HealthHandler != nil {
		c.Application.HealthHandler.AddAdvisory("workers", scheduler)
	}

	if cfg.Kafka.ConsumerEnabled() {
		reader := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.GroupID,
			Topic:   cfg.Kafka.RequestTopic,
		})
		c.Background.RequestConsumer = consumers.NewAnalysisRequestConsumer(reader, c.Services.Orchestrator)
		c.Log.Info("✓ Analysis request consumer initialized", "topic", cfg.Kafka.RequestTopic)
	}
}

// ========================================
// Providers
// ========================================

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment, cfg.App.Version)
	if err != nil {
		log.Warn("Failed to initialize Sentry", "error", err)
		return errnoop.New()
	}

	log.Info("✓ Error tracking initialized (Sentry)")
	return tracker
}

// provideSocial returns the twitter client, or a disabled provider without a token
func provideSocial(cfg *config.Config, log *logger.Logger) social.Provider {
	if !cfg.Twitter.Enabled() {
		log.Info("Social provider disabled")
		return social.Disabled{}
	}
	return twitter.NewClient(cfg.Twitter)
}

// provideHistoryStore returns the pgvector-backed store, or nil when disabled
func provideHistoryStore(c *Container) (history.TextStore, error) {
	if c.PG == nil {
		return nil, nil
	}

	embedder, err := embeddings.NewOpenAIProvider(c.Config.OpenAI)
	if err != nil {
		return nil, err
	}

	c.Log.Info("✓ History store initialized", "embedding_model", embedder.Name(), "dimensions", embedder.Dimensions())
	return historysvc.NewStore(pgrepo.NewNewsChunkRepository(c.PG.DB()), embedder), nil
}

// provideCache picks the context cache backend. The memory cache is also
// returned so the janitor can prune it.
func provideCache(cfg *config.Config, rdb *redisclient.Client) (contextcache.Cache, *contextcache.Memory) {
	if cfg.Cache.Backend == config.CacheBackendRedis && rdb != nil {
		return contextcache.NewRedis(rdb, cfg.Cache.TTL), nil
	}
	mem := contextcache.NewMemory(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	return mem, mem
}

func provideScoreHistory(c *Container) error {
	ctx, cancel := context.WithTimeout(c.Context, connectTimeout)
	defer cancel()

	sc := c.Config.ScoreHistory
	repo := chrepo.NewScoreRepository(c.CH, sc.Table)
	if err := repo.EnsureTable(ctx); err != nil {
		return err
	}

	c.Services.ScoreBuffer = chrepo.NewBufferedScores(repo, sc.BatchSize, sc.FlushInterval)
	c.Services.Scores = c.Services.ScoreBuffer
	c.Log.Info("✓ Score history initialized", "table", sc.Table)
	return nil
}

func sentimentConfig(cfg *config.Config) sentiment.Config {
	sc := sentiment.DefaultConfig()
	sc.NewsLimit = cfg.NewsAPI.PageSize
	sc.SocialLimit = cfg.Twitter.MaxPosts
	sc.SocialWindow = time.Duration(cfg.Twitter.WindowDays) * 24 * time.Hour
	sc.Model = cfg.OpenAI.Model
	return sc
}

// provideRequestQueue publishes analysis requests when the request topic is set
func provideRequestQueue(c *Container) api.RequestQueue {
	if c.Adapters.KafkaProducer == nil || !c.Config.Kafka.ConsumerEnabled() {
		return nil
	}
	producer, topic := c.Adapters.KafkaProducer, c.Config.Kafka.RequestTopic
	return func(ctx context.Context, symbol string) error {
		return events.RequestAnalysis(ctx, producer, topic, symbol)
	}
}

func provideStateCollector(c *Container) *metrics.StateCollector {
	if c.PG != nil {
		return metrics.NewStateCollector(c.Services.Cache.Len, c.PG.DB())
	}
	return metrics.NewStateCollector(c.Services.Cache.Len, nil)
}

// healthChecks lists the enabled data stores
func healthChecks(c *Container) map[string]health.Checker {
	checks := make(map[string]health.Checker)
	if c.PG != nil {
		checks["postgres"] = c.PG
	}
	if c.Redis != nil {
		checks["redis"] = c.Redis
	}
	if c.CH != nil {
		checks["clickhouse"] = c.CH
	}
	return checks
}
