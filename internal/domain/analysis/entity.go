package analysis

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"cryptosys/internal/domain/news"
	"cryptosys/internal/domain/source"
)

const (
	// NeutralScore is used when the model omits or garbles the score marker
	NeutralScore = 50
	MinScore     = 0
	MaxScore     = 100
)

// ClampScore bounds a score to [0,100]
func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// SentimentResult is the output of sentiment synthesis for one symbol
type SentimentResult struct {
	Analysis string          `json:"analysis"`
	Score    int             `json:"sentiment_score"`
	Sources  []source.Record `json:"sources"`
	Articles []news.Article  `json:"-"`
}

// Bundle is the per-symbol context written by a complete analysis and read
// by every follow-up operation.
type Bundle struct {
	Symbol            string           `json:"symbol"`
	MarketAnalysis    string           `json:"market_analysis"`
	SentimentAnalysis string           `json:"sentiment_analysis"`
	CombinedAnalysis  string           `json:"combined_analysis"`
	SentimentScore    int              `json:"sentiment_score"`
	Sources           []source.Record  `json:"sources"`
	SourcesCount      int              `json:"sources_count"`
	SentimentMetrics  *Metrics         `json:"sentiment_metrics,omitempty"`
	LastClose         *decimal.Decimal `json:"last_close,omitempty"`
	News              []news.Article   `json:"news,omitempty"`
	AnalyzedAt        time.Time        `json:"analyzed_at"`
}

// Clone returns a copy of b that shares no slices or pointers with it
func (b *Bundle) Clone() *Bundle {
	out := *b
	out.Sources = slices.Clone(b.Sources)
	out.News = slices.Clone(b.News)
	if b.SentimentMetrics != nil {
		m := *b.SentimentMetrics
		m.Data = slices.Clone(m.Data)
		m.Mentions = slices.Clone(m.Mentions)
		out.SentimentMetrics = &m
	}
	if b.LastClose != nil {
		c := *b.LastClose
		out.LastClose = &c
	}
	return &out
}

// Metadata is the score/source block attached to every response
type Metadata struct {
	SentimentScore int             `json:"sentiment_score"`
	Sources        []source.Record `json:"sources"`
	SourcesCount   int             `json:"sources_count"`
}

// NewMetadata builds response metadata; a nil source list is rendered as []
func NewMetadata(score int, sources []source.Record) Metadata {
	if sources == nil {
		sources = []source.Record{}
	}
	return Metadata{
		SentimentScore: ClampScore(score),
		Sources:        sources,
		SourcesCount:   len(sources),
	}
}

// Metadata returns the bundle's score and sources
func (b *Bundle) Metadata() Metadata {
	return NewMetadata(b.SentimentScore, b.Sources)
}

type FollowupResult struct {
	Symbol   string `json:"symbol"`
	Question string `json:"question"`
	Response string `json:"response"`
	Metadata
}

type PredictionResult struct {
	Symbol     string `json:"symbol"`
	Timeframe  string `json:"timeframe"`
	Days       int    `json:"days"`
	Prediction string `json:"prediction"`
	Metadata
}

type StrategyResult struct {
	Symbol   string `json:"symbol"`
	Goal     string `json:"goal"`
	Days     int    `json:"days"`
	Action   string `json:"action"`
	Strategy string `json:"strategy"`
	Metadata
}

type PolicyImpactResult struct {
	Symbol            string `json:"symbol"`
	PolicyDescription string `json:"policy_description"`
	ImpactAnalysis    string `json:"impact_analysis"`
	Metadata
}

// ChatReply answers a free-form chat message
type ChatReply struct {
	Symbol   string `json:"symbol,omitempty"`
	Response string `json:"response"`
	Metadata
}
