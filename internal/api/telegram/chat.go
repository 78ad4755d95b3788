package telegram

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	tgadapter "cryptosys/internal/adapters/telegram"
	"cryptosys/internal/domain/analysis"
	"cryptosys/internal/services/orchestrator"
	"cryptosys/pkg/errors"
	"cryptosys/pkg/logger"
	"cryptosys/pkg/templates"
)

const welcomeText = "Hi, I'm Cryptosys. Name a coin such as BTC, ETH or SOL and I'll analyze its market data and sentiment. Then ask me anything about it."

// Chatter answers chat messages; satisfied by the orchestrator
type Chatter interface {
	Chat(ctx context.Context, session *orchestrator.Session, message string) (*analysis.ChatReply, error)
}

type chatSession struct {
	mu      sync.Mutex
	session orchestrator.Session
}

// ChatHandler serves the assistant over Telegram, one session per chat.
// Messages within a chat are answered in order.
type ChatHandler struct {
	chat   Chatter
	sender tgadapter.MessageSender
	log    *logger.Logger

	mu       sync.Mutex
	sessions map[int64]*chatSession
}

func NewChatHandler(chat Chatter, sender tgadapter.MessageSender) *ChatHandler {
	return &ChatHandler{
		chat:     chat,
		sender:   sender,
		log:      logger.Get().With("component", "telegram_chat"),
		sessions: make(map[int64]*chatSession),
	}
}

func (h *ChatHandler) sessionFor(chatID int64) *chatSession {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[chatID]
	if !ok {
		s = &chatSession{}
		h.sessions[chatID] = s
	}
	return s
}

// HandleUpdate answers text messages; other updates are ignored
func (h *ChatHandler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			h.reply(ctx, chatID, welcomeText)
		case "reset":
			s := h.sessionFor(chatID)
			s.mu.Lock()
			s.session = orchestrator.Session{}
			s.mu.Unlock()
			h.reply(ctx, chatID, "Conversation cleared.")
		default:
			h.reply(ctx, chatID, "Unknown command. Try /start.")
		}
		return
	}

	s := h.sessionFor(chatID)
	s.mu.Lock()
	defer s.mu.Unlock()

	reply, err := h.chat.Chat(ctx, &s.session, msg.Text)
	if err != nil {
		h.log.Error("Chat failed",
			"chat_id", chatID,
			"error", err,
		)
		h.reply(ctx, chatID, "I encountered an error: "+errors.PublicMessage(err))
		return
	}

	h.reply(ctx, chatID, reply.Response)
}

func (h *ChatHandler) reply(ctx context.Context, chatID int64, text string) {
	text = templates.Truncate(text, tgadapter.MaxMessageLength-3)
	if err := h.sender.SendMessage(ctx, chatID, text, ""); err != nil {
		h.log.Warn("Failed to deliver chat reply",
			"chat_id", chatID,
			"error", err,
		)
	}
}
