package workers

import (
	"context"
	"time"
)

// Pruner drops expired cache entries and reports how many were removed
type Pruner interface {
	Prune() int
}

// CacheJanitor periodically prunes expired context cache entries. It is
// disabled when the cache keeps entries forever.
type CacheJanitor struct {
	*BaseWorker
	cache Pruner
}

func NewCacheJanitor(cache Pruner, interval time.Duration, enabled bool) *CacheJanitor {
	return &CacheJanitor{
		BaseWorker: NewBaseWorker("cache_janitor", interval, enabled),
		cache:      cache,
	}
}

func (j *CacheJanitor) Run(_ context.Context) error {
	if n := j.cache.Prune(); n > 0 {
		j.Log().Debug("Pruned expired context entries", "count", n)
	}
	return nil
}
