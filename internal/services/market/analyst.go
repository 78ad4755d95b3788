package market

import (
	"context"
	"time"

	"cryptosys/internal/adapters/ai"
	"cryptosys/internal/domain/market"
	"cryptosys/pkg/errors"
	"cryptosys/pkg/logger"
	"cryptosys/pkg/templates"
)

const OperationMarketAnalysis = "market_analysis"

// Report is a market analysis and the series it was written from
type Report struct {
	Series   *market.Series
	Analysis string
}

// Analyst fetches a trailing price window and asks the model to narrate it
type Analyst struct {
	prices     market.PriceProvider
	llm        ai.Completer
	templates  *templates.Registry
	windowDays int
	model      string
	now        func() time.Time
	log        *logger.Logger
}

func NewAnalyst(prices market.PriceProvider, llm ai.Completer, tmpl *templates.Registry, windowDays int, model string) *Analyst {
	if windowDays <= 0 {
		windowDays = 7
	}
	return &Analyst{
		prices:     prices,
		llm:        llm,
		templates:  tmpl,
		windowDays: windowDays,
		model:      model,
		now:        time.Now,
		log:        logger.Get().With("component", "market_analyst"),
	}
}

// Fetch returns daily bars for [now-window, now]
func (a *Analyst) Fetch(ctx context.Context, symbol string) (*market.Series, error) {
	to := a.now().UTC()
	from := to.AddDate(0, 0, -a.windowDays)

	series, err := a.prices.Aggregates(ctx, symbol, from, to)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch market data for %s", symbol)
	}
	if series.Empty() {
		a.log.Warn("Market data window is empty",
			"symbol", symbol,
			"from", series.From,
			"to", series.To,
		)
	}
	return series, nil
}

type barView struct {
	Date   string
	Open   string
	High   string
	Low    string
	Close  string
	Volume string
	Trades int64
}

type seriesView struct {
	Ticker     string
	From       string
	To         string
	Bars       []barView
	Indicators []string
}

// Describe renders series as the market data block shared by every prompt
func (a *Analyst) Describe(series *market.Series) (string, error) {
	view := seriesView{
		Ticker:     series.Ticker,
		From:       series.From,
		To:         series.To,
		Bars:       make([]barView, 0, len(series.Bars)),
		Indicators: Indicators(series),
	}
	for _, b := range series.Bars {
		view.Bars = append(view.Bars, barView{
			Date:   b.Timestamp.Format(market.DateLayout),
			Open:   FormatPrice(b.Open),
			High:   FormatPrice(b.High),
			Low:    FormatPrice(b.Low),
			Close:  FormatPrice(b.Close),
			Volume: FormatVolume(b.Volume),
			Trades: b.Trades,
		})
	}

	return a.templates.Render(templates.PromptMarketData, view)
}

// Analyze fetches the window and returns the model's narrative
func (a *Analyst) Analyze(ctx context.Context, symbol string) (*Report, error) {
	series, err := a.Fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}

	data, err := a.Describe(series)
	if err != nil {
		return nil, errors.Wrap(err, "render market data")
	}

	prompt, err := a.templates.Render(templates.PromptMarketAnalysis, map[string]string{
		"Symbol":     symbol,
		"From":       series.From,
		"To":         series.To,
		"MarketData": data,
	})
	if err != nil {
		return nil, errors.Wrap(err, "render market analysis prompt")
	}

	completion, err := a.llm.Complete(ctx, ai.CompletionRequest{
		Operation: OperationMarketAnalysis,
		Prompt:    prompt,
		Model:     a.model,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "market analysis for %s", symbol)
	}

	a.log.Info("Market analysis complete",
		"symbol", symbol,
		"bars", len(series.Bars),
	)

	return &Report{Series: series, Analysis: completion.Text}, nil
}
