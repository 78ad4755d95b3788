package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"cryptosys/internal/adapters/ai"
	"cryptosys/internal/domain/analysis"
	"cryptosys/internal/domain/market"
	"cryptosys/internal/domain/news"
	"cryptosys/internal/domain/source"
	"cryptosys/internal/services/contextcache"
	marketsvc "cryptosys/internal/services/market"
	"cryptosys/pkg/errors"
	"cryptosys/pkg/templates"
)

type fakeAnalyst struct {
	analyzeCalls atomic.Int32
	fetchCalls   atomic.Int32
	err          error
}

func (f *fakeAnalyst) Fetch(_ context.Context, symbol string) (*market.Series, error) {
	f.fetchCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &market.Series{Symbol: symbol, Ticker: "X:" + symbol + "USD", From: "2024-03-01", To: "2024-03-08"}, nil
}

func (f *fakeAnalyst) Describe(series *market.Series) (string, error) {
	return "bars for " + series.Ticker, nil
}

func (f *fakeAnalyst) Analyze(ctx context.Context, symbol string) (*marketsvc.Report, error) {
	f.analyzeCalls.Add(1)
	series, err := f.Fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return &marketsvc.Report{
		Series:   series,
		Analysis: symbol + " closed higher on rising volume, according to Polygon aggregates.",
	}, nil
}

type fakeSentiment struct {
	calls atomic.Int32
	score int
	err   error
}

func (f *fakeSentiment) Analyze(_ context.Context, symbol string) (*analysis.SentimentResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &analysis.SentimentResult{
		Analysis: "Overall sentiment is bullish for " + symbol + ".",
		Score:    f.score,
		Sources: []source.Record{
			{Name: "CoinDesk", Type: source.TypeNews, Content: symbol + " ETF inflows", URL: "https://coindesk.com/a", Reliability: source.ReliabilityHigh},
			{Name: "CoinDesk", Type: source.TypeNews, Content: symbol + " ETF inflows", URL: "https://coindesk.com/a", Reliability: source.ReliabilityHigh},
		},
		Articles: []news.Article{{Title: symbol + " ETF inflows", SourceName: "CoinDesk"}},
	}, nil
}

type fakeLLM struct {
	mu      sync.Mutex
	prompts map[string][]string
	err     error
}

func newFakeLLM() *fakeLLM {
	return &fakeLLM{prompts: make(map[string][]string)}
}

func (f *fakeLLM) Complete(_ context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.prompts[req.Operation] = append(f.prompts[req.Operation], req.Prompt)
	if f.err != nil {
		return nil, f.err
	}
	return &ai.Completion{Text: req.Operation + " answer"}, nil
}

func (f *fakeLLM) calls(operation string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[operation]
}

type fakeScores struct {
	mu     sync.Mutex
	points []analysis.ScorePoint
	err    error
}

func (f *fakeScores) Record(_ context.Context, p analysis.ScorePoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, p)
	return f.err
}

func (f *fakeScores) Recent(context.Context, string, int) ([]analysis.ScorePoint, error) {
	return nil, nil
}

type fakeSink struct {
	got []string
	err error
}

func (f *fakeSink) AnalysisCompleted(_ context.Context, b *analysis.Bundle) error {
	f.got = append(f.got, b.Symbol)
	return f.err
}

type fixture struct {
	orch      *Orchestrator
	analyst   *fakeAnalyst
	sentiment *fakeSentiment
	llm       *fakeLLM
	cache     *contextcache.Memory
	scores    *fakeScores
	sink      *fakeSink
}

func newFixture() *fixture {
	f := &fixture{
		analyst:   &fakeAnalyst{},
		sentiment: &fakeSentiment{score: 72},
		llm:       newFakeLLM(),
		cache:     contextcache.NewMemory(0, 0),
		scores:    &fakeScores{},
		sink:      &fakeSink{},
	}
	f.orch = New(Deps{
		Market:    f.analyst,
		Sentiment: f.sentiment,
		LLM:       f.llm,
		Templates: templates.Get(),
		Cache:     f.cache,
		Scores:    f.scores,
		Sinks:     []Sink{f.sink},
	})
	f.orch.now = func() time.Time { return time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC) }
	return f
}

var errProviderDown = errors.Wrap(errors.ErrUnavailable, "polygon")
