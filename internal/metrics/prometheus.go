package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptosys_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cryptosys_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cryptosys_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// LLM metrics
	LLMCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptosys_llm_calls_total",
			Help: "Total number of LLM completion calls",
		},
		[]string{"operation", "model", "status"},
	)

	LLMLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cryptosys_llm_latency_seconds",
			Help:    "LLM completion latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"operation", "model"},
	)

	LLMTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptosys_llm_tokens_total",
			Help: "Total tokens consumed by LLM calls",
		},
		[]string{"operation", "model"},
	)

	// Data provider metrics (polygon, newsapi, twitter, embeddings)
	ProviderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptosys_provider_calls_total",
			Help: "Total number of data provider calls",
		},
		[]string{"provider", "endpoint", "status"},
	)

	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cryptosys_provider_latency_seconds",
			Help:    "Data provider latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "endpoint"},
	)

	// Analysis metrics
	Analyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptosys_analyses_total",
			Help: "Total number of orchestrator operations",
		},
		[]string{"operation", "status"},
	)

	SentimentScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cryptosys_sentiment_score",
			Help: "Latest sentiment score per symbol (0-100)",
		},
		[]string{"symbol"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptosys_context_cache_lookups_total",
			Help: "Context cache lookups by result",
		},
		[]string{"result"}, // hit|miss
	)

	CacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptosys_context_cache_evictions_total",
			Help: "Context cache entries removed by TTL or size bound",
		},
	)

	// Best-effort sink metrics (history store, score history, events)
	SinkFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptosys_sink_failures_total",
			Help: "Failures swallowed by best-effort sinks",
		},
		[]string{"sink"},
	)

	// HTTP metrics
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptosys_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cryptosys_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"route"},
	)

	WebSocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cryptosys_websocket_connections",
			Help: "Open chat websocket connections",
		},
	)
)

var initOnce sync.Once

// Init registers all metrics with Prometheus. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			WorkerExecutions,
			WorkerDuration,
			WorkerLastRun,
			LLMCalls,
			LLMLatency,
			LLMTokens,
			ProviderCalls,
			ProviderLatency,
			Analyses,
			SentimentScore,
			CacheLookups,
			CacheEvictions,
			SinkFailures,
			HTTPRequests,
			HTTPDuration,
			WebSocketConnections,
		)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	WorkerExecutions.WithLabelValues(worker, status(err)).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordLLMCall records a completion request
func RecordLLMCall(operation, model string, latency time.Duration, tokens int64, err error) {
	LLMCalls.WithLabelValues(operation, model, status(err)).Inc()
	LLMLatency.WithLabelValues(operation, model).Observe(latency.Seconds())

	if tokens > 0 {
		LLMTokens.WithLabelValues(operation, model).Add(float64(tokens))
	}
}

// RecordProviderCall records a market/news/social/embedding API call
func RecordProviderCall(provider, endpoint string, latency time.Duration, err error) {
	ProviderCalls.WithLabelValues(provider, endpoint, status(err)).Inc()
	ProviderLatency.WithLabelValues(provider, endpoint).Observe(latency.Seconds())
}

// RecordAnalysis records an orchestrator operation outcome
func RecordAnalysis(operation string, err error) {
	Analyses.WithLabelValues(operation, status(err)).Inc()
}

// SetSentimentScore publishes the latest score for a symbol
func SetSentimentScore(symbol string, score int) {
	SentimentScore.WithLabelValues(symbol).Set(float64(score))
}

// RecordCacheLookup records a context cache hit or miss
func RecordCacheLookup(hit bool) {
	if hit {
		CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	CacheLookups.WithLabelValues("miss").Inc()
}

// RecordCacheEvictions adds n evicted entries
func RecordCacheEvictions(n int) {
	if n > 0 {
		CacheEvictions.Add(float64(n))
	}
}

// RecordSinkFailure counts a swallowed failure in a best-effort sink
func RecordSinkFailure(sink string) {
	SinkFailures.WithLabelValues(sink).Inc()
}

// RecordHTTPRequest records a served request
func RecordHTTPRequest(route string, code int, duration time.Duration) {
	HTTPRequests.WithLabelValues(route, httpCode(code)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func httpCode(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
