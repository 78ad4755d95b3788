package contextcache

import (
	"context"
	"time"

	"cryptosys/internal/adapters/redis"
	"cryptosys/internal/domain/analysis"
	"cryptosys/internal/metrics"
	"cryptosys/pkg/errors"
	"cryptosys/pkg/logger"
)

const keyPrefix = "cryptosys:context:"

// Redis shares cached analyses between processes. Values are JSON bundles;
// a zero ttl stores them without expiry.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

var _ Cache = (*Redis)(nil)

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		ttl:    ttl,
		log:    logger.Get().With("component", "context_cache", "backend", "redis"),
	}
}

func key(symbol string) string {
	return keyPrefix + symbol
}

// Get treats any Redis failure as a miss so callers fall back to a fresh analysis
func (r *Redis) Get(ctx context.Context, symbol string) (*analysis.Bundle, bool) {
	var b analysis.Bundle
	if err := r.client.Get(ctx, key(symbol), &b); err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			r.log.Warn("Context cache read failed",
				"symbol", symbol,
				"error", err,
			)
		}
		metrics.RecordCacheLookup(false)
		return nil, false
	}

	metrics.RecordCacheLookup(true)
	return &b, true
}

func (r *Redis) Put(ctx context.Context, bundle *analysis.Bundle) error {
	if err := r.client.Set(ctx, key(bundle.Symbol), bundle, r.ttl); err != nil {
		return errors.Wrapf(err, "cache analysis for %s", bundle.Symbol)
	}
	return nil
}

func (r *Redis) Contains(ctx context.Context, symbol string) bool {
	ok, err := r.client.Exists(ctx, key(symbol))
	if err != nil {
		r.log.Warn("Context cache exists check failed",
			"symbol", symbol,
			"error", err,
		)
		return false
	}
	return ok
}

func (r *Redis) Delete(ctx context.Context, symbol string) error {
	return r.client.Delete(ctx, key(symbol))
}

func (r *Redis) Len(ctx context.Context) int {
	n, err := r.client.CountPrefix(ctx, keyPrefix)
	if err != nil {
		r.log.Warn("Context cache count failed", "error", err)
		return 0
	}
	return n
}
