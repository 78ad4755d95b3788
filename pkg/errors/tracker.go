package errors

import (
	"context"
)

// Tracker reports errors to an external service (Sentry, etc.)
type Tracker interface {
	// CaptureError sends err tagged with tags and the symbol carried by ctx
	CaptureError(ctx context.Context, err error, tags map[string]string) error

	// Flush waits for pending events until ctx is done
	Flush(ctx context.Context) error
}

type symbolKey struct{}

// WithSymbol attaches the symbol being processed to ctx for error reports
func WithSymbol(ctx context.Context, symbol string) context.Context {
	if symbol == "" {
		return ctx
	}
	return context.WithValue(ctx, symbolKey{}, symbol)
}

// SymbolFrom returns the symbol attached by WithSymbol
func SymbolFrom(ctx context.Context) (string, bool) {
	symbol, ok := ctx.Value(symbolKey{}).(string)
	return symbol, ok
}
