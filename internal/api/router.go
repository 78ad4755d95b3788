package api

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"cryptosys/internal/api/health"
	"cryptosys/internal/domain/analysis"
	"cryptosys/internal/metrics"
	"cryptosys/internal/services/contextcache"
	"cryptosys/internal/services/orchestrator"
	"cryptosys/pkg/logger"
)

// Service is the analysis surface served over HTTP; implemented by the orchestrator
type Service interface {
	Analyze(ctx context.Context, symbol string) (*analysis.Bundle, error)
	HandleFollowup(ctx context.Context, symbol, question string) (*analysis.FollowupResult, error)
	PredictPriceMovement(ctx context.Context, symbol, timeframe string) (*analysis.PredictionResult, error)
	OptimalTradingStrategy(ctx context.Context, symbol, goal string) (*analysis.StrategyResult, error)
	AnalyzePolicyImpact(ctx context.Context, symbol, policy string) (*analysis.PolicyImpactResult, error)
	Chat(ctx context.Context, session *orchestrator.Session, message string) (*analysis.ChatReply, error)
	Cache() contextcache.Cache
}

// RequestQueue enqueues an analysis to be run by a consumer
type RequestQueue func(ctx context.Context, symbol string) error

// RouterConfig holds the router's collaborators. Scores, Health and
// Requests may be nil.
type RouterConfig struct {
	Service        Service
	Scores         analysis.ScoreHistory
	Health         *health.Handler
	Requests       RequestQueue
	AllowedOrigins []string
}

// Handler serves the JSON API
type Handler struct {
	svc      Service
	scores   analysis.ScoreHistory
	requests RequestQueue
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewRouter builds the full HTTP handler: API routes, chat websocket,
// health probes and metrics, wrapped in CORS and instrumentation.
func NewRouter(cfg RouterConfig) http.Handler {
	h := &Handler{
		svc:      cfg.Service,
		scores:   cfg.Scores,
		requests: cfg.Requests,
		upgrader: newUpgrader(cfg.AllowedOrigins),
		log:      logger.Get().With("component", "api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleRoot)
	mux.HandleFunc("GET /api/analyze/{symbol}", h.handleAnalyze)
	mux.HandleFunc("POST /api/followup", h.handleFollowup)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
	mux.HandleFunc("POST /api/strategy", h.handleStrategy)
	mux.HandleFunc("POST /api/policy-impact", h.handlePolicyImpact)
	mux.HandleFunc("GET /api/sentiment/{symbol}", h.handleSentiment)
	mux.HandleFunc("GET /api/history/{symbol}", h.handleHistory)
	mux.HandleFunc("POST /api/chat", h.handleChat)
	mux.HandleFunc("GET /ws/chat", h.handleChatSocket)
	if cfg.Requests != nil {
		mux.HandleFunc("POST /api/analysis-requests", h.handleAnalysisRequest)
	}

	if cfg.Health != nil {
		mux.HandleFunc("GET /health", cfg.Health.HandleHealth)
		mux.HandleFunc("GET /ready", cfg.Health.HandleReadiness)
		mux.HandleFunc("GET /live", cfg.Health.HandleLiveness)
	}
	mux.Handle("GET /metrics", metrics.Handler())

	return cors(cfg.AllowedOrigins, instrument(mux))
}
