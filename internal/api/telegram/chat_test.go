package telegram

import (
	"context"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptosys/internal/domain/analysis"
	"cryptosys/internal/services/orchestrator"
	"cryptosys/pkg/errors"
)

type scriptedChat struct {
	seen []string
}

func (c *scriptedChat) Chat(_ context.Context, s *orchestrator.Session, message string) (*analysis.ChatReply, error) {
	c.seen = append(c.seen, s.Symbol+"|"+message)
	if message == "boom" {
		return nil, errors.ErrUnavailable
	}
	s.Symbol = "BTC"
	return &analysis.ChatReply{Symbol: "BTC", Response: "reply to " + message}, nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent map[int64][]string
}

func (r *recordingSender) SendMessage(_ context.Context, chatID int64, text, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent == nil {
		r.sent = make(map[int64][]string)
	}
	r.sent[chatID] = append(r.sent[chatID], text)
	return nil
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: text}
	if len(text) > 0 && text[0] == '/' {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
	}
	return tgbotapi.Update{Message: msg}
}

func TestChatHandlerKeepsSessionPerChat(t *testing.T) {
	chat := &scriptedChat{}
	sender := &recordingSender{}
	h := NewChatHandler(chat, sender)
	ctx := context.Background()

	h.HandleUpdate(ctx, textUpdate(1, "bitcoin?"))
	h.HandleUpdate(ctx, textUpdate(1, "and now?"))
	h.HandleUpdate(ctx, textUpdate(2, "hello"))

	assert.Equal(t, []string{"|bitcoin?", "BTC|and now?", "|hello"}, chat.seen)
	assert.Equal(t, []string{"reply to bitcoin?", "reply to and now?"}, sender.sent[1])
}

func TestChatHandlerCommands(t *testing.T) {
	chat := &scriptedChat{}
	sender := &recordingSender{}
	h := NewChatHandler(chat, sender)
	ctx := context.Background()

	h.HandleUpdate(ctx, textUpdate(5, "/start"))
	h.HandleUpdate(ctx, textUpdate(5, "bitcoin?"))
	h.HandleUpdate(ctx, textUpdate(5, "/reset"))
	h.HandleUpdate(ctx, textUpdate(5, "again"))

	require.Len(t, sender.sent[5], 4)
	assert.Equal(t, welcomeText, sender.sent[5][0])
	assert.Equal(t, "|again", chat.seen[1], "reset clears the session symbol")
}

func TestChatHandlerReportsErrors(t *testing.T) {
	sender := &recordingSender{}
	h := NewChatHandler(&scriptedChat{}, sender)

	h.HandleUpdate(context.Background(), textUpdate(9, "boom"))

	require.Len(t, sender.sent[9], 1)
	assert.Equal(t, "I encountered an error: an upstream service is unavailable", sender.sent[9][0])
}

func TestChatHandlerIgnoresNonText(t *testing.T) {
	sender := &recordingSender{}
	h := NewChatHandler(&scriptedChat{}, sender)

	h.HandleUpdate(context.Background(), tgbotapi.Update{})
	assert.Empty(t, sender.sent)
}
