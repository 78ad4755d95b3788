package telegram

import (
	"context"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"cryptosys/pkg/errors"
	"cryptosys/pkg/logger"
)

// ParseModeMarkdownV2 is the parse mode used for formatted notifications
const ParseModeMarkdownV2 = tgbotapi.ModeMarkdownV2

// MaxMessageLength is Telegram's limit for one text message
const MaxMessageLength = 4096

// API is the part of tgbotapi.BotAPI the bot uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// UpdateHandler processes one incoming update
type UpdateHandler func(ctx context.Context, update tgbotapi.Update)

// Bot sends rate-limited messages and, when started, polls for updates
type Bot struct {
	api     API
	limiter *rate.Limiter
	log     *logger.Logger

	mu      sync.Mutex
	running bool
	handler UpdateHandler
}

// Config contains Telegram bot configuration
type Config struct {
	Token       string
	APIEndpoint string
	HTTPTimeout time.Duration
	// RatePerSecond and Burst throttle outgoing messages
	RatePerSecond int
	Burst         int
}

// NewBot authenticates with Telegram and returns a bot
func NewBot(cfg Config) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "telegram bot token is required")
	}
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.APIEndpoint, &http.Client{Timeout: cfg.HTTPTimeout})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}

	bot := NewBotWithAPI(api, cfg.RatePerSecond, cfg.Burst)
	bot.log.Info("Telegram bot authorized", "username", api.Self.UserName)
	return bot, nil
}

// NewBotWithAPI wraps an existing API client. Zero rate settings default to
// 20 messages per second with a burst of 30.
func NewBotWithAPI(api API, ratePerSecond, burst int) *Bot {
	if ratePerSecond <= 0 {
		ratePerSecond = 20
	}
	if burst <= 0 {
		burst = 30
	}
	return &Bot{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		log:     logger.Get().With("component", "telegram_bot"),
	}
}

// SendMessage sends text to chatID. An empty parseMode sends plain text.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text, parseMode string) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter wait failed")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = parseMode

	start := time.Now()
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("Failed to send message",
			"chat_id", chatID,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return errors.Wrap(err, "failed to send message")
	}

	b.log.Debug("Message sent",
		"chat_id", chatID,
		"text_length", len(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// SetHandler registers the handler for incoming updates
func (b *Bot) SetHandler(handler UpdateHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
}

// Start polls for updates until ctx is cancelled. Each update is handled
// in its own goroutine.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return errors.New("bot is already running")
	}
	b.running = true
	handler := b.handler
	b.mu.Unlock()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.log.Info("Telegram bot polling for updates")

	for {
		select {
		case <-ctx.Done():
			b.Stop()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if handler == nil {
				b.log.Debug("Dropping update, no handler registered", "update_id", update.UpdateID)
				continue
			}
			go handler(ctx, update)
		}
	}
}

// Stop ends polling
func (b *Bot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return
	}
	b.api.StopReceivingUpdates()
	b.running = false
	b.log.Info("Telegram bot stopped")
}
