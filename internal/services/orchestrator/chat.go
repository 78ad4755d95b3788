package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"cryptosys/internal/domain/analysis"
	"cryptosys/internal/domain/market"
	"cryptosys/internal/metrics"
	"cryptosys/internal/services/extraction"
	"cryptosys/pkg/errors"
)

// UnknownSymbolResponse answers chat messages that name no coin while no
// coin is under discussion.
const UnknownSymbolResponse = "I'm not sure which cryptocurrency you're asking about. Could you mention a specific crypto symbol like BTC, ETH, or SOL?"

// Session is the per-conversation state: the symbol being discussed.
// A Session is not safe for concurrent use.
type Session struct {
	Symbol string
}

var (
	strategyIntent = regexp.MustCompile(`(?i)when should|strategy|timing|best time|maximize|predict|forecast`)
	policyIntent   = regexp.MustCompile(`(?i)policy|regulation|impact|affect`)
)

// Chat routes a free-form message. A message naming a coin makes it the
// session symbol and warms its cached analysis. The message is then sent to
// the trading strategy, the policy impact, the combined analysis or a
// follow-up on the session symbol, in that order of precedence.
func (o *Orchestrator) Chat(ctx context.Context, session *Session, message string) (reply *analysis.ChatReply, err error) {
	defer func() { metrics.RecordAnalysis(OperationChat, err) }()

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errors.NewValidationError("message", "must not be empty", message)
	}

	symbol, named := extraction.DetectSymbol(message)
	switch {
	case named:
		session.Symbol = symbol
	case session.Symbol == "":
		return &analysis.ChatReply{
			Response: UnknownSymbolResponse,
			Metadata: analysis.NewMetadata(analysis.NeutralScore, nil),
		}, nil
	default:
		symbol = session.Symbol
	}

	var (
		bundle  *analysis.Bundle
		warmErr error
	)
	if named {
		if bundle, warmErr = o.Analyze(ctx, symbol); warmErr != nil {
			o.log.Warn("Chat analysis warm-up failed",
				"symbol", symbol,
				"error", warmErr,
			)
		}
	}

	switch {
	case strategyIntent.MatchString(message):
		res, err := o.OptimalTradingStrategy(ctx, symbol, message)
		if err != nil {
			return nil, err
		}
		return &analysis.ChatReply{Symbol: res.Symbol, Response: res.Strategy, Metadata: res.Metadata}, nil

	case policyIntent.MatchString(message):
		res, err := o.AnalyzePolicyImpact(ctx, symbol, message)
		if err != nil {
			return nil, err
		}
		return &analysis.ChatReply{Symbol: res.Symbol, Response: res.ImpactAnalysis, Metadata: res.Metadata}, nil

	case named && isAnalysisRequest(message, symbol):
		if warmErr != nil {
			return nil, warmErr
		}
		return &analysis.ChatReply{
			Symbol:   bundle.Symbol,
			Response: bundle.CombinedAnalysis,
			Metadata: bundle.Metadata(),
		}, nil
	}

	cached, ok := o.cache.Get(ctx, symbol)
	if !ok {
		return &analysis.ChatReply{
			Symbol:   symbol,
			Response: fmt.Sprintf("I don't have any analysis data for %s. Would you like me to analyze it?", symbol),
			Metadata: analysis.NewMetadata(analysis.NeutralScore, nil),
		}, nil
	}

	answer, err := o.followup(ctx, cached, message)
	if err != nil {
		return nil, err
	}
	return &analysis.ChatReply{
		Symbol:   answer.Symbol,
		Response: answer.Response,
		Metadata: answer.Metadata,
	}, nil
}

// isAnalysisRequest reports whether message opens with the coin itself or
// with "analyze", as in "BTC" or "Analyze bitcoin please".
func isAnalysisRequest(message, symbol string) bool {
	fields := strings.Fields(strings.ToLower(message))
	if len(fields) == 0 {
		return false
	}
	first := strings.Trim(fields[0], "$?!.,:;")
	name, _ := market.CoinName(symbol)
	return first == strings.ToLower(symbol) || first == name || first == "analyze" || first == "analyse"
}
