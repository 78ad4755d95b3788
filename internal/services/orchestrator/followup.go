package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"cryptosys/internal/domain/analysis"
	"cryptosys/internal/domain/market"
	"cryptosys/internal/metrics"
	"cryptosys/pkg/errors"
	"cryptosys/pkg/templates"
)

// Disclaimer is appended to every follow-up answer
const Disclaimer = "\n\n*Disclaimer: This analysis is for informational purposes only and should not be considered financial advice. Cryptocurrency markets are highly volatile.*"

// DateLayout is how dates are written into prompts
const DateLayout = "January 2, 2006"

var timingPattern = regexp.MustCompile(`(?i)when|time|best|optimal|maximize|should\s+(i\s+)?(buy|sell)`)

// IsTimingQuestion reports whether question asks about entry or exit timing
func IsTimingQuestion(question string) bool {
	return timingPattern.MatchString(question)
}

// NoContextResponse is returned for follow-ups on a symbol that was never analyzed
func NoContextResponse(symbol string) string {
	return fmt.Sprintf("I don't have any analysis data for %s. Please request a complete analysis of %s first.", symbol, symbol)
}

type followupData struct {
	Symbol            string
	MarketAnalysis    string
	SentimentAnalysis string
	SentimentScore    int
	Question          string
	Today             string
}

// HandleFollowup answers question from the symbol's cached context. Without
// a context it returns guidance and no sources. The cached score and sources
// are returned unchanged.
func (o *Orchestrator) HandleFollowup(ctx context.Context, symbol, question string) (result *analysis.FollowupResult, err error) {
	defer func() { metrics.RecordAnalysis(OperationFollowup, err) }()

	symbol, err = market.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(question) == "" {
		return nil, errors.NewValidationError("question", "must not be empty", question)
	}

	bundle, ok := o.cache.Get(ctx, symbol)
	if !ok {
		return &analysis.FollowupResult{
			Symbol:   symbol,
			Question: question,
			Response: NoContextResponse(symbol),
			Metadata: analysis.NewMetadata(analysis.NeutralScore, nil),
		}, nil
	}

	return o.followup(ctx, bundle, question)
}

func (o *Orchestrator) followup(ctx context.Context, bundle *analysis.Bundle, question string) (*analysis.FollowupResult, error) {
	id := templates.PromptFollowup
	timing := IsTimingQuestion(question)
	if timing {
		id = templates.PromptFollowupTiming
	}

	prompt, err := o.templates.Render(id, followupData{
		Symbol:            bundle.Symbol,
		MarketAnalysis:    bundle.MarketAnalysis,
		SentimentAnalysis: bundle.SentimentAnalysis,
		SentimentScore:    bundle.SentimentScore,
		Question:          question,
		Today:             o.now().Format(DateLayout),
	})
	if err != nil {
		return nil, errors.Wrap(err, "render followup prompt")
	}

	answer, err := o.complete(ctx, OperationFollowup, prompt)
	if err != nil {
		return nil, errors.Wrapf(err, "followup for %s", bundle.Symbol)
	}

	o.log.Info("Followup answered",
		"symbol", bundle.Symbol,
		"timing", timing,
	)

	return &analysis.FollowupResult{
		Symbol:   bundle.Symbol,
		Question: question,
		Response: answer + Disclaimer,
		Metadata: bundle.Metadata(),
	}, nil
}
