package bootstrap

import (
	"context"
	"sync"

	"cryptosys/internal/adapters/ai"
	chclient "cryptosys/internal/adapters/clickhouse"
	"cryptosys/internal/adapters/config"
	"cryptosys/internal/adapters/kafka"
	pgclient "cryptosys/internal/adapters/postgres"
	redisclient "cryptosys/internal/adapters/redis"
	"cryptosys/internal/adapters/telegram"
	"cryptosys/internal/api"
	"cryptosys/internal/api/health"
	tgapi "cryptosys/internal/api/telegram"
	"cryptosys/internal/consumers"
	"cryptosys/internal/domain/analysis"
	"cryptosys/internal/domain/history"
	"cryptosys/internal/domain/market"
	"cryptosys/internal/domain/news"
	"cryptosys/internal/domain/social"
	"cryptosys/internal/events"
	chrepo "cryptosys/internal/repository/clickhouse"
	"cryptosys/internal/services/contextcache"
	marketsvc "cryptosys/internal/services/market"
	"cryptosys/internal/services/orchestrator"
	"cryptosys/internal/services/sentiment"
	"cryptosys/internal/workers"
	"cryptosys/pkg/errors"
	"cryptosys/pkg/logger"
	"cryptosys/pkg/templates"
)

// Container holds all application dependencies and their lifecycle.
// Optional components stay nil when their config section is disabled.
type Container struct {
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Data stores
	PG    *pgclient.Client
	CH    *chclient.Client
	Redis *redisclient.Client

	Adapters    *Adapters
	Services    *Services
	Application *Application
	Background  *Background

	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Adapters groups external systems
type Adapters struct {
	LLM       ai.Completer
	Prices    market.PriceProvider
	News      news.Provider
	Social    social.Provider
	Templates *templates.Registry

	KafkaProducer  *kafka.Producer
	EventPublisher *events.Publisher

	TelegramBot *telegram.Bot
	Notifier    *telegram.Notifier
}

// Services groups business logic
type Services struct {
	History      history.TextStore
	Cache        contextcache.Cache
	MemoryCache  *contextcache.Memory
	Scores       analysis.ScoreHistory
	ScoreBuffer  *chrepo.BufferedScores
	Analyst      *marketsvc.Analyst
	Synthesizer  *sentiment.Synthesizer
	Orchestrator *orchestrator.Orchestrator
}

// Application groups the served surfaces
type Application struct {
	HTTPServer    *api.Server
	HealthHandler *health.Handler
	TelegramChat  *tgapi.ChatHandler
}

// Background groups periodic and event-driven processing
type Background struct {
	WorkerScheduler *workers.Scheduler
	RequestConsumer *consumers.AnalysisRequestConsumer
}

func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Adapters:    &Adapters{},
		Services:    &Services{},
		Application: &Application{},
		Background:  &Background{},
		Lifecycle:   NewLifecycle(),
		WG:          &sync.WaitGroup{},
		Context:     ctx,
		Cancel:      cancel,
	}
}

// MustInit initializes all components in dependency order.
// Exits on any initialization error.
func (c *Container) MustInit() {
	c.MustInitConfig()
	c.MustInitInfrastructure()
	c.MustInitAdapters()
	c.MustInitServices()
	c.MustInitApplication()
	c.MustInitBackground()
}

// Start launches the HTTP server, the telegram bot, consumers and workers
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	if c.Services.ScoreBuffer != nil {
		c.Services.ScoreBuffer.Start(c.Context)
	}

	c.goRun("http_server", func(context.Context) error {
		return c.Application.HTTPServer.Start()
	}, true)

	if c.Adapters.TelegramBot != nil && c.Application.TelegramChat != nil {
		c.goRun("telegram_bot", c.Adapters.TelegramBot.Start, false)
	}

	if c.Background.RequestConsumer != nil {
		c.goRun("analysis_request_consumer", c.Background.RequestConsumer.Start, false)
	}

	if err := c.Background.WorkerScheduler.Start(c.Context); err != nil {
		return errors.Wrap(err, "failed to start workers")
	}

	c.Log.Info("✓ All systems operational")
	return nil
}

// goRun runs fn in a tracked goroutine. A fatal component cancels the
// application context when it fails.
func (c *Container) goRun(name string, fn func(context.Context) error, fatal bool) {
	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := fn(c.Context); err != nil && c.Context.Err() == nil {
			c.Log.Error("Component failed", "component", name, "error", err)
			if fatal {
				c.Cancel()
			}
		}
	}()
}

// Shutdown performs graceful shutdown in order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")
	c.Cancel()
	c.Lifecycle.Shutdown(c)
}
