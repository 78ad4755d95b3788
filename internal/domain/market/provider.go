package market

import (
	"context"
	"time"
)

// PriceProvider fetches daily aggregates for a symbol quoted in USD
type PriceProvider interface {
	Aggregates(ctx context.Context, symbol string, from, to time.Time) (*Series, error)
}
