package orchestrator

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"cryptosys/internal/domain/analysis"
	"cryptosys/internal/domain/market"
	"cryptosys/internal/domain/source"
	"cryptosys/internal/metrics"
	"cryptosys/internal/services/extraction"
	"cryptosys/pkg/errors"
	"cryptosys/pkg/templates"
)

// DefaultHorizonDays applies when a timeframe or goal names no duration
const DefaultHorizonDays = 30

// MaxHorizonDays caps a goal's parsed horizon at ten years
const MaxHorizonDays = 3650

// DefaultTimeframe is used when a prediction request names none
const DefaultTimeframe = "month"

var timeframes = map[string]int{
	"week":    7,
	"month":   30,
	"3months": 90,
}

// TimeframeDays maps week, month and 3months to days; anything else is 30
func TimeframeDays(timeframe string) int {
	if days, ok := timeframes[strings.ToLower(strings.TrimSpace(timeframe))]; ok {
		return days
	}
	return DefaultHorizonDays
}

// Intended actions parsed from a strategy goal
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
	ActionHold = "hold"
)

var (
	durationPattern = regexp.MustCompile(`(\d+)\s*(day|week|month|year)s?`)
	unitDays        = map[string]int{"day": 1, "week": 7, "month": 30, "year": 365}
)

// ParseGoal extracts the horizon in days and the intended action from a
// free-text goal such as "should I sell in 2 weeks".
func ParseGoal(goal string) (days int, action string) {
	g := strings.ToLower(goal)

	days = DefaultHorizonDays
	if m := durationPattern.FindStringSubmatch(g); m != nil {
		n, err := strconv.Atoi(m[1])
		switch {
		case errors.Is(err, strconv.ErrRange), err == nil && n > MaxHorizonDays:
			days = MaxHorizonDays
		case err == nil && n > 0:
			days = min(n*unitDays[m[2]], MaxHorizonDays)
		}
	}

	switch {
	case strings.Contains(g, ActionSell):
		action = ActionSell
	case strings.Contains(g, ActionBuy):
		action = ActionBuy
	default:
		action = ActionHold
	}
	return days, action
}

// freshInputs is market data and sentiment fetched for one operation,
// independent of the cached context.
type freshInputs struct {
	MarketData string
	Sentiment  *analysis.SentimentResult
}

func (f *freshInputs) metadata() analysis.Metadata {
	records := append([]source.Record{}, f.Sentiment.Sources...)
	records = append(records, extraction.Provenance()...)
	return analysis.NewMetadata(f.Sentiment.Score, source.Dedupe(records))
}

func (o *Orchestrator) fresh(ctx context.Context, symbol string) (*freshInputs, error) {
	in := &freshInputs{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		series, err := o.market.Fetch(gctx, symbol)
		if err != nil {
			return err
		}
		data, err := o.market.Describe(series)
		if err != nil {
			return errors.Wrap(err, "render market data")
		}
		in.MarketData = data
		return nil
	})
	g.Go(func() error {
		s, err := o.sentiment.Analyze(gctx, symbol)
		in.Sentiment = s
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}

// priorAnalysis returns the cached combined narrative, running a complete
// analysis first when the symbol has none.
func (o *Orchestrator) priorAnalysis(ctx context.Context, symbol string) (string, error) {
	bundle, err := o.Analyze(ctx, symbol)
	if err != nil {
		return "", err
	}
	return bundle.CombinedAnalysis, nil
}

type forecastData struct {
	Symbol            string
	Today             string
	Until             string
	Days              int
	Timeframe         string
	Goal              string
	Action            string
	Policy            string
	MarketData        string
	SentimentScore    int
	SentimentAnalysis string
	PriorAnalysis     string
}

func (o *Orchestrator) forecastData(symbol string, days int, in *freshInputs, prior string) forecastData {
	today := o.now()
	return forecastData{
		Symbol:            symbol,
		Today:             today.Format(DateLayout),
		Until:             today.AddDate(0, 0, days).Format(DateLayout),
		Days:              days,
		MarketData:        in.MarketData,
		SentimentScore:    in.Sentiment.Score,
		SentimentAnalysis: in.Sentiment.Analysis,
		PriorAnalysis:     prior,
	}
}

// PredictPriceMovement forecasts symbol over timeframe from freshly fetched
// market data and sentiment.
func (o *Orchestrator) PredictPriceMovement(ctx context.Context, symbol, timeframe string) (result *analysis.PredictionResult, err error) {
	defer func() { metrics.RecordAnalysis(OperationPredict, err) }()

	symbol, err = market.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(timeframe) == "" {
		timeframe = DefaultTimeframe
	}
	days := TimeframeDays(timeframe)

	prior, err := o.priorAnalysis(ctx, symbol)
	if err != nil {
		return nil, err
	}
	in, err := o.fresh(ctx, symbol)
	if err != nil {
		return nil, err
	}

	data := o.forecastData(symbol, days, in, prior)
	data.Timeframe = timeframe

	prompt, err := o.templates.Render(templates.PromptPredict, data)
	if err != nil {
		return nil, errors.Wrap(err, "render predict prompt")
	}
	prediction, err := o.complete(ctx, OperationPredict, prompt)
	if err != nil {
		return nil, errors.Wrapf(err, "predict %s", symbol)
	}

	o.log.Info("Price prediction generated",
		"symbol", symbol,
		"timeframe", timeframe,
		"days", days,
	)

	return &analysis.PredictionResult{
		Symbol:     symbol,
		Timeframe:  timeframe,
		Days:       days,
		Prediction: prediction,
		Metadata:   in.metadata(),
	}, nil
}

// OptimalTradingStrategy evaluates goal for symbol. The parsed action only
// frames the prompt; the model is asked to judge it independently.
func (o *Orchestrator) OptimalTradingStrategy(ctx context.Context, symbol, goal string) (result *analysis.StrategyResult, err error) {
	defer func() { metrics.RecordAnalysis(OperationStrategy, err) }()

	symbol, err = market.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(goal) == "" {
		return nil, errors.NewValidationError("goal", "must not be empty", goal)
	}
	days, action := ParseGoal(goal)

	prior, err := o.priorAnalysis(ctx, symbol)
	if err != nil {
		return nil, err
	}
	in, err := o.fresh(ctx, symbol)
	if err != nil {
		return nil, err
	}

	data := o.forecastData(symbol, days, in, prior)
	data.Goal = goal
	data.Action = action

	prompt, err := o.templates.Render(templates.PromptStrategy, data)
	if err != nil {
		return nil, errors.Wrap(err, "render strategy prompt")
	}
	strategy, err := o.complete(ctx, OperationStrategy, prompt)
	if err != nil {
		return nil, errors.Wrapf(err, "strategy for %s", symbol)
	}

	o.log.Info("Trading strategy generated",
		"symbol", symbol,
		"days", days,
		"action", action,
	)

	return &analysis.StrategyResult{
		Symbol:   symbol,
		Goal:     goal,
		Days:     days,
		Action:   action,
		Strategy: strategy,
		Metadata: in.metadata(),
	}, nil
}

// AnalyzePolicyImpact estimates how policy affects symbol. It does not need
// a cached context.
func (o *Orchestrator) AnalyzePolicyImpact(ctx context.Context, symbol, policy string) (result *analysis.PolicyImpactResult, err error) {
	defer func() { metrics.RecordAnalysis(OperationPolicyImpact, err) }()

	symbol, err = market.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(policy) == "" {
		return nil, errors.NewValidationError("policy_description", "must not be empty", policy)
	}

	in, err := o.fresh(ctx, symbol)
	if err != nil {
		return nil, err
	}

	var prior string
	if bundle, ok := o.cache.Get(ctx, symbol); ok {
		prior = bundle.CombinedAnalysis
	}

	data := o.forecastData(symbol, 0, in, prior)
	data.Policy = policy

	prompt, err := o.templates.Render(templates.PromptPolicyImpact, data)
	if err != nil {
		return nil, errors.Wrap(err, "render policy impact prompt")
	}
	impact, err := o.complete(ctx, OperationPolicyImpact, prompt)
	if err != nil {
		return nil, errors.Wrapf(err, "policy impact for %s", symbol)
	}

	o.log.Info("Policy impact analyzed", "symbol", symbol)

	return &analysis.PolicyImpactResult{
		Symbol:            symbol,
		PolicyDescription: policy,
		ImpactAnalysis:    impact,
		Metadata:          in.metadata(),
	}, nil
}
