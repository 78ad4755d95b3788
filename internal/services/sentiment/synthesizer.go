package sentiment

import (
	"context"
	"fmt"
	"time"

	"cryptosys/internal/adapters/ai"
	"cryptosys/internal/domain/analysis"
	"cryptosys/internal/domain/history"
	"cryptosys/internal/domain/news"
	"cryptosys/internal/domain/social"
	"cryptosys/internal/domain/source"
	"cryptosys/internal/metrics"
	historysvc "cryptosys/internal/services/history"
	"cryptosys/pkg/errors"
	"cryptosys/pkg/logger"
	"cryptosys/pkg/templates"
)

const OperationSentiment = "sentiment"

// Config sizes the inputs gathered for one synthesis
type Config struct {
	NewsLimit     int
	HeadlineLimit int
	SocialLimit   int
	SocialWindow  time.Duration
	Model         string
}

func DefaultConfig() Config {
	return Config{
		NewsLimit:     20,
		HeadlineLimit: 5,
		SocialLimit:   10,
		SocialWindow:  3 * 24 * time.Hour,
	}
}

// Synthesizer produces a scored sentiment narrative from news, social posts
// and earlier coverage held in the history store.
type Synthesizer struct {
	news      news.Provider
	social    social.Provider
	store     history.TextStore
	llm       ai.Completer
	templates *templates.Registry
	cfg       Config
	now       func() time.Time
	log       *logger.Logger
}

// NewSynthesizer wires the synthesizer. A nil social provider or store
// disables that input.
func NewSynthesizer(
	newsProvider news.Provider,
	socialProvider social.Provider,
	store history.TextStore,
	llm ai.Completer,
	tmpl *templates.Registry,
	cfg Config,
) *Synthesizer {
	if socialProvider == nil {
		socialProvider = social.Disabled{}
	}
	if store == nil {
		store = history.Noop{}
	}

	return &Synthesizer{
		news:      newsProvider,
		social:    socialProvider,
		store:     store,
		llm:       llm,
		templates: tmpl,
		cfg:       cfg,
		now:       time.Now,
		log:       logger.Get().With("component", "sentiment_synthesizer"),
	}
}

type promptData struct {
	Symbol    string
	Headlines []string
	Posts     []string
	History   []string
}

// Analyze builds the sentiment result for symbol. News and LLM failures are
// returned; history and social failures only reduce the prompt input.
func (s *Synthesizer) Analyze(ctx context.Context, symbol string) (*analysis.SentimentResult, error) {
	articles, err := s.news.Search(ctx, symbol, s.cfg.NewsLimit)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch news for %s", symbol)
	}

	now := s.now()
	s.remember(ctx, symbol, now, articles)
	posts := s.recentPosts(ctx, symbol, now)
	past := s.recall(ctx, symbol)

	prompt, err := s.templates.Render(templates.PromptSentiment, promptData{
		Symbol:    symbol,
		Headlines: Headlines(articles, s.cfg.HeadlineLimit),
		Posts:     postTexts(posts),
		History:   past,
	})
	if err != nil {
		return nil, errors.Wrap(err, "render sentiment prompt")
	}

	completion, err := s.llm.Complete(ctx, ai.CompletionRequest{
		Operation: OperationSentiment,
		Prompt:    prompt,
		Model:     s.cfg.Model,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "sentiment analysis for %s", symbol)
	}

	text, score, found := ParseScore(completion.Text)
	if !found {
		s.log.Warn("Sentiment score marker missing, using neutral score",
			"symbol", symbol,
		)
	}

	result := &analysis.SentimentResult{
		Analysis: text,
		Score:    score,
		Sources:  Sources(articles, posts),
		Articles: articles,
	}

	s.log.Info("Sentiment analysis complete",
		"symbol", symbol,
		"score", score,
		"articles", len(articles),
		"posts", len(posts),
		"history_chunks", len(past),
	)

	return result, nil
}

func (s *Synthesizer) remember(ctx context.Context, symbol string, now time.Time, articles []news.Article) {
	if len(articles) == 0 {
		return
	}
	if err := s.store.Remember(ctx, symbol, now, historysvc.FormatArticles(articles)); err != nil {
		metrics.RecordSinkFailure("history_store")
		s.log.Warn("Failed to store news in history, continuing",
			"symbol", symbol,
			"error", err,
		)
	}
}

func (s *Synthesizer) recentPosts(ctx context.Context, symbol string, now time.Time) []social.Post {
	posts, err := s.social.Recent(ctx, symbol, s.cfg.SocialLimit, now.Add(-s.cfg.SocialWindow))
	if err != nil {
		s.log.Warn("Failed to fetch social posts, continuing without them",
			"symbol", symbol,
			"error", err,
		)
		return nil
	}
	return posts
}

func (s *Synthesizer) recall(ctx context.Context, symbol string) []string {
	texts, err := s.store.Similar(ctx, historysvc.RecallQuery(symbol), historysvc.RecallK)
	if err != nil {
		metrics.RecordSinkFailure("history_recall")
		s.log.Warn("Failed to recall history, continuing",
			"symbol", symbol,
			"error", err,
		)
		return nil
	}
	return texts
}

// Headlines formats the first limit articles as "• {title} ({source})"
func Headlines(articles []news.Article, limit int) []string {
	if limit > len(articles) {
		limit = len(articles)
	}

	out := make([]string, 0, limit)
	for _, a := range articles[:limit] {
		title := a.Title
		if title == "" {
			title = "No title"
		}
		name := a.SourceName
		if name == "" {
			name = "Unknown source"
		}
		out = append(out, fmt.Sprintf("• %s (%s)", title, name))
	}
	return out
}

// Sources builds one record per article and one per social post
func Sources(articles []news.Article, posts []social.Post) []source.Record {
	records := make([]source.Record, 0, len(articles)+len(posts))
	for _, a := range articles {
		records = append(records, source.Record{
			Name:        a.SourceName,
			Type:        source.TypeOf(a.URL),
			Content:     a.Title,
			URL:         a.URL,
			Reliability: source.ReliabilityOf(a.SourceName),
		})
	}
	for _, p := range posts {
		records = append(records, source.Record{
			Name:        source.SocialLabel,
			Type:        source.TypeSocialMedia,
			Content:     templates.Truncate(p.Text, 100),
			URL:         p.URL,
			Reliability: source.ReliabilityMedium,
		})
	}
	return records
}

func postTexts(posts []social.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Text)
	}
	return out
}
