package metrics

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"cryptosys/pkg/logger"
)

// StateCollector reports point-in-time state on every scrape: cached
// analyses and stored news chunks. Either source may be nil.
type StateCollector struct {
	log      *logger.Logger
	cacheLen func(ctx context.Context) int
	postgres *sqlx.DB
	timeout  time.Duration

	cacheEntries *prometheus.Desc
	newsChunks   *prometheus.Desc
}

func NewStateCollector(cacheLen func(ctx context.Context) int, postgres *sqlx.DB) *StateCollector {
	return &StateCollector{
		log:      logger.Get().With("component", "metrics_collector"),
		cacheLen: cacheLen,
		postgres: postgres,
		timeout:  5 * time.Second,

		cacheEntries: prometheus.NewDesc(
			"cryptosys_context_cache_entries",
			"Analyses currently held in the context cache",
			nil, nil,
		),
		newsChunks: prometheus.NewDesc(
			"cryptosys_news_chunks",
			"Stored news chunks by symbol",
			[]string{"symbol"}, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *StateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cacheEntries
	ch <- c.newsChunks
}

// Collect implements prometheus.Collector
func (c *StateCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if c.cacheLen != nil {
		ch <- prometheus.MustNewConstMetric(c.cacheEntries, prometheus.GaugeValue, float64(c.cacheLen(ctx)))
	}
	if c.postgres != nil {
		c.collectNewsChunks(ctx, ch)
	}
}

func (c *StateCollector) collectNewsChunks(ctx context.Context, ch chan<- prometheus.Metric) {
	type chunkStat struct {
		Symbol string `db:"symbol"`
		Count  int    `db:"count"`
	}

	var stats []chunkStat
	err := c.postgres.SelectContext(ctx, &stats, `
		SELECT symbol, COUNT(*) AS count
		FROM news_chunks
		GROUP BY symbol
	`)
	if err != nil {
		c.log.Warn("Failed to collect news chunk stats", "error", err)
		return
	}

	for _, stat := range stats {
		ch <- prometheus.MustNewConstMetric(c.newsChunks, prometheus.GaugeValue, float64(stat.Count), stat.Symbol)
	}
}

// RegisterCollector adds a collector to the default registry
func RegisterCollector(c prometheus.Collector) error {
	return prometheus.Register(c)
}
