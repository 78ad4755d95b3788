package orchestrator

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"cryptosys/internal/adapters/ai"
	"cryptosys/internal/domain/analysis"
	"cryptosys/internal/domain/market"
	"cryptosys/internal/domain/source"
	"cryptosys/internal/metrics"
	"cryptosys/internal/services/contextcache"
	"cryptosys/internal/services/extraction"
	marketsvc "cryptosys/internal/services/market"
	"cryptosys/pkg/errors"
	"cryptosys/pkg/logger"
	"cryptosys/pkg/templates"
)

// Operation names used for metrics and completion labels
const (
	OperationComplete     = "complete_analysis"
	OperationCombine      = "combine"
	OperationFollowup     = "followup"
	OperationPredict      = "predict"
	OperationStrategy     = "strategy"
	OperationPolicyImpact = "policy_impact"
	OperationChat         = "chat"
)

// MarketAnalyst narrates a symbol's recent price window
type MarketAnalyst interface {
	Fetch(ctx context.Context, symbol string) (*market.Series, error)
	Describe(series *market.Series) (string, error)
	Analyze(ctx context.Context, symbol string) (*marketsvc.Report, error)
}

// SentimentAnalyzer produces a scored sentiment narrative
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, symbol string) (*analysis.SentimentResult, error)
}

// Sink receives every completed analysis. Sink errors are logged and dropped.
type Sink interface {
	AnalysisCompleted(ctx context.Context, bundle *analysis.Bundle) error
}

// Deps are the collaborators of an Orchestrator. Scores and Sinks are optional.
type Deps struct {
	Market    MarketAnalyst
	Sentiment SentimentAnalyzer
	LLM       ai.Completer
	Templates *templates.Registry
	Cache     contextcache.Cache
	Scores    analysis.ScoreHistory
	Sinks     []Sink
	Model     string
}

// Orchestrator combines market and sentiment analysis into one response and
// answers follow-up operations from the per-symbol context it caches.
type Orchestrator struct {
	market    MarketAnalyst
	sentiment SentimentAnalyzer
	llm       ai.Completer
	templates *templates.Registry
	cache     contextcache.Cache
	scores    analysis.ScoreHistory
	sinks     []Sink
	model     string
	now       func() time.Time
	log       *logger.Logger
}

func New(deps Deps) *Orchestrator {
	return &Orchestrator{
		market:    deps.Market,
		sentiment: deps.Sentiment,
		llm:       deps.LLM,
		templates: deps.Templates,
		cache:     deps.Cache,
		scores:    deps.Scores,
		sinks:     deps.Sinks,
		model:     deps.Model,
		now:       time.Now,
		log:       logger.Get().With("component", "orchestrator"),
	}
}

// Cache exposes the context cache for read-only lookups at the API boundary
func (o *Orchestrator) Cache() contextcache.Cache {
	return o.cache
}

// Analyze returns the cached bundle for symbol, running a complete analysis on a miss
func (o *Orchestrator) Analyze(ctx context.Context, symbol string) (*analysis.Bundle, error) {
	symbol, err := market.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	if bundle, ok := o.cache.Get(ctx, symbol); ok {
		o.log.Debug("Serving cached analysis", "symbol", symbol)
		return bundle, nil
	}
	return o.GetCompleteAnalysis(ctx, symbol)
}

// GetCompleteAnalysis runs the market analyst and the sentiment synthesizer
// concurrently, reconciles both in a combined narrative and overwrites the
// symbol's cached context.
func (o *Orchestrator) GetCompleteAnalysis(ctx context.Context, symbol string) (bundle *analysis.Bundle, err error) {
	defer func() { metrics.RecordAnalysis(OperationComplete, err) }()

	symbol, err = market.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	start := o.now()

	var (
		report *marketsvc.Report
		sent   *analysis.SentimentResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := o.market.Analyze(gctx, symbol)
		report = r
		return err
	})
	g.Go(func() error {
		s, err := o.sentiment.Analyze(gctx, symbol)
		sent = s
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	prompt, err := o.templates.Render(templates.PromptCombine, combineData{
		Symbol:            symbol,
		MarketAnalysis:    report.Analysis,
		SentimentAnalysis: sent.Analysis,
	})
	if err != nil {
		return nil, errors.Wrap(err, "render combine prompt")
	}

	combined, err := o.complete(ctx, OperationCombine, prompt)
	if err != nil {
		return nil, errors.Wrapf(err, "combine analyses for %s", symbol)
	}

	records := append([]source.Record{}, sent.Sources...)
	records = append(records, extraction.Sources(report.Analysis, sent.Analysis)...)
	records = append(records, extraction.Provenance()...)
	sources := source.Dedupe(records)
	sentimentMetrics := extraction.Metrics(sent.Analysis)

	var lastClose *decimal.Decimal
	if bar, ok := report.Series.Latest(); ok {
		lastClose = &bar.Close
	}

	bundle = &analysis.Bundle{
		Symbol:            symbol,
		MarketAnalysis:    report.Analysis,
		SentimentAnalysis: sent.Analysis,
		CombinedAnalysis:  combined,
		SentimentScore:    analysis.ClampScore(sent.Score),
		Sources:           sources,
		SourcesCount:      len(sources),
		SentimentMetrics:  &sentimentMetrics,
		LastClose:         lastClose,
		News:              sent.Articles,
		AnalyzedAt:        o.now().UTC(),
	}

	if err := o.cache.Put(ctx, bundle); err != nil {
		metrics.RecordSinkFailure("context_cache")
		o.log.Warn("Failed to cache analysis",
			"symbol", symbol,
			"error", err,
		)
	}
	metrics.SetSentimentScore(symbol, bundle.SentimentScore)
	o.publish(ctx, bundle)

	o.log.Info("Complete analysis finished",
		"symbol", symbol,
		"sentiment_score", bundle.SentimentScore,
		"sources", bundle.SourcesCount,
		"duration", o.now().Sub(start),
	)

	return bundle, nil
}

type combineData struct {
	Symbol            string
	MarketAnalysis    string
	SentimentAnalysis string
}

func (o *Orchestrator) complete(ctx context.Context, operation, prompt string) (string, error) {
	completion, err := o.llm.Complete(ctx, ai.CompletionRequest{
		Operation: operation,
		Prompt:    prompt,
		Model:     o.model,
	})
	if err != nil {
		return "", err
	}
	return completion.Text, nil
}

// publish records the score and notifies sinks; failures never reach the caller
func (o *Orchestrator) publish(ctx context.Context, bundle *analysis.Bundle) {
	if o.scores != nil {
		err := o.scores.Record(ctx, analysis.ScorePoint{
			Symbol:       bundle.Symbol,
			Score:        bundle.SentimentScore,
			SourcesCount: bundle.SourcesCount,
			RecordedAt:   bundle.AnalyzedAt,
		})
		if err != nil {
			metrics.RecordSinkFailure("score_history")
			o.log.Warn("Failed to record sentiment score",
				"symbol", bundle.Symbol,
				"error", err,
			)
		}
	}

	for _, sink := range o.sinks {
		if err := sink.AnalysisCompleted(ctx, bundle); err != nil {
			metrics.RecordSinkFailure("analysis_sink")
			o.log.Warn("Analysis sink failed",
				"symbol", bundle.Symbol,
				"error", err,
			)
		}
	}
}
