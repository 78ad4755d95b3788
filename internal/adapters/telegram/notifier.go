package telegram

import (
	"context"

	"cryptosys/internal/domain/analysis"
	marketsvc "cryptosys/internal/services/market"
	"cryptosys/pkg/errors"
	"cryptosys/pkg/templates"
)

// MessageSender is satisfied by Bot
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text, parseMode string) error
}

// Notifier posts a short summary of each completed analysis to one chat
type Notifier struct {
	sender    MessageSender
	chatID    int64
	templates *templates.Registry
}

func NewNotifier(sender MessageSender, chatID int64, tmpl *templates.Registry) *Notifier {
	return &Notifier{
		sender:    sender,
		chatID:    chatID,
		templates: tmpl,
	}
}

type completedData struct {
	Symbol  string
	Score   int
	Arrow   string
	Price   string
	Summary string
}

// AnalysisCompleted renders the completion notification and sends it as MarkdownV2
func (n *Notifier) AnalysisCompleted(ctx context.Context, bundle *analysis.Bundle) error {
	data := completedData{
		Symbol:  bundle.Symbol,
		Score:   bundle.SentimentScore,
		Arrow:   analysis.TrendOf(bundle.SentimentScore),
		Summary: bundle.CombinedAnalysis,
	}
	if bundle.LastClose != nil {
		data.Price = marketsvc.FormatPrice(*bundle.LastClose)
	}

	text, err := n.templates.Render(templates.NotificationAnalysisCompleted, data)
	if err != nil {
		return errors.Wrap(err, "render analysis notification")
	}

	return n.sender.SendMessage(ctx, n.chatID, text, ParseModeMarkdownV2)
}
