package contextcache

import (
	"context"

	"cryptosys/internal/domain/analysis"
)

// Cache holds the latest complete analysis per symbol
type Cache interface {
	Get(ctx context.Context, symbol string) (*analysis.Bundle, bool)
	// Put stores bundle under bundle.Symbol, replacing any previous entry
	Put(ctx context.Context, bundle *analysis.Bundle) error
	Contains(ctx context.Context, symbol string) bool
	Delete(ctx context.Context, symbol string) error
	Len(ctx context.Context) int
}
