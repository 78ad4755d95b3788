package workers

import (
	"context"
	"time"

	"cryptosys/internal/domain/analysis"
	"cryptosys/pkg/errors"
)

// Analyzer runs a fresh complete analysis for a symbol
type Analyzer interface {
	GetCompleteAnalysis(ctx context.Context, symbol string) (*analysis.Bundle, error)
}

// WatchlistWarmer refreshes the context cache for a fixed set of symbols.
// Each symbol is analyzed in turn; one failure does not stop the rest.
type WatchlistWarmer struct {
	*BaseWorker
	analyzer Analyzer
	symbols  []string
	timeout  time.Duration
}

func NewWatchlistWarmer(analyzer Analyzer, symbols []string, interval time.Duration) *WatchlistWarmer {
	return &WatchlistWarmer{
		BaseWorker: NewBaseWorker("watchlist_warmer", interval, len(symbols) > 0),
		analyzer:   analyzer,
		symbols:    symbols,
		timeout:    3 * time.Minute,
	}
}

func (w *WatchlistWarmer) Run(ctx context.Context) error {
	var failed []string
	for _, symbol := range w.symbols {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		runCtx, cancel := context.WithTimeout(ctx, w.timeout)
		bundle, err := w.analyzer.GetCompleteAnalysis(runCtx, symbol)
		cancel()

		if err != nil {
			w.Log().Warn("Watchlist analysis failed", "symbol", symbol, "error", err)
			failed = append(failed, symbol)
			continue
		}
		w.Log().Info("Watchlist analysis refreshed",
			"symbol", bundle.Symbol,
			"sentiment_score", bundle.SentimentScore,
			"sources", bundle.SourcesCount,
		)
	}

	if len(failed) > 0 {
		return errors.Wrapf(errors.ErrExternal, "%d of %d watchlist symbols failed: %v", len(failed), len(w.symbols), failed)
	}
	return nil
}
