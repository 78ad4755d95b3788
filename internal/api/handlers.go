package api

import (
	"net/http"
	"strconv"
	"time"

	"cryptosys/internal/domain/analysis"
	"cryptosys/internal/domain/market"
	"cryptosys/internal/domain/source"
	"cryptosys/internal/services/orchestrator"
	"cryptosys/pkg/errors"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

func (h *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to Cryptosys API"})
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	bundle, err := h.svc.Analyze(r.Context(), symbol)
	if err != nil {
		writeError(w, r, "Error analyzing "+symbol, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

type followupRequest struct {
	Symbol   string `json:"symbol"`
	Question string `json:"question"`
}

func (h *Handler) handleFollowup(w http.ResponseWriter, r *http.Request) {
	var req followupRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, "Error handling follow-up", err)
		return
	}

	symbol, err := market.NormalizeSymbol(req.Symbol)
	if err != nil {
		writeError(w, r, "Error handling follow-up", err)
		return
	}
	if !h.svc.Cache().Contains(r.Context(), symbol) {
		writeDetail(w, http.StatusNotFound, "No analysis found for "+symbol)
		return
	}

	res, err := h.svc.HandleFollowup(r.Context(), symbol, req.Question)
	if err != nil {
		writeError(w, r, "Error handling follow-up", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type predictRequest struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, "Error predicting price movement", err)
		return
	}

	res, err := h.svc.PredictPriceMovement(r.Context(), req.Symbol, req.Timeframe)
	if err != nil {
		writeError(w, r, "Error predicting price movement", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type strategyRequest struct {
	Symbol string `json:"symbol"`
	Goal   string `json:"goal"`
}

func (h *Handler) handleStrategy(w http.ResponseWriter, r *http.Request) {
	var req strategyRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, "Error generating strategy", err)
		return
	}

	res, err := h.svc.OptimalTradingStrategy(r.Context(), req.Symbol, req.Goal)
	if err != nil {
		writeError(w, r, "Error generating strategy", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type policyImpactRequest struct {
	Symbol            string `json:"symbol"`
	PolicyDescription string `json:"policy_description"`
}

func (h *Handler) handlePolicyImpact(w http.ResponseWriter, r *http.Request) {
	var req policyImpactRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, "Error analyzing policy impact", err)
		return
	}

	res, err := h.svc.AnalyzePolicyImpact(r.Context(), req.Symbol, req.PolicyDescription)
	if err != nil {
		writeError(w, r, "Error analyzing policy impact", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type sentimentResponse struct {
	Symbol           string            `json:"symbol"`
	SentimentScore   int               `json:"sentiment_score"`
	SentimentMetrics *analysis.Metrics `json:"sentiment_metrics"`
	Sources          []source.Record   `json:"sources"`
	SourcesCount     int               `json:"sources_count"`
	AnalyzedAt       time.Time         `json:"analyzed_at"`
}

func (h *Handler) handleSentiment(w http.ResponseWriter, r *http.Request) {
	symbol, err := market.NormalizeSymbol(r.PathValue("symbol"))
	if err != nil {
		writeError(w, r, "Error reading sentiment", err)
		return
	}

	bundle, ok := h.svc.Cache().Get(r.Context(), symbol)
	if !ok {
		writeDetail(w, http.StatusNotFound, "No analysis found for "+symbol)
		return
	}

	meta := bundle.Metadata()
	writeJSON(w, http.StatusOK, sentimentResponse{
		Symbol:           bundle.Symbol,
		SentimentScore:   meta.SentimentScore,
		SentimentMetrics: bundle.SentimentMetrics,
		Sources:          meta.Sources,
		SourcesCount:     meta.SourcesCount,
		AnalyzedAt:       bundle.AnalyzedAt,
	})
}

type historyResponse struct {
	Symbol string                `json:"symbol"`
	Points []analysis.ScorePoint `json:"points"`
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	symbol, err := market.NormalizeSymbol(r.PathValue("symbol"))
	if err != nil {
		writeError(w, r, "Error reading score history", err)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, "Error reading score history", errors.NewValidationError("limit", "must be a positive integer", raw))
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	points := []analysis.ScorePoint{}
	if h.scores != nil {
		recent, err := h.scores.Recent(r.Context(), symbol, limit)
		if err != nil {
			writeError(w, r, "Error reading score history", err)
			return
		}
		if recent != nil {
			points = recent
		}
	}

	writeJSON(w, http.StatusOK, historyResponse{Symbol: symbol, Points: points})
}

type chatRequest struct {
	Message string `json:"message"`
	Symbol  string `json:"symbol,omitempty"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, "Error handling chat message", err)
		return
	}

	session := &orchestrator.Session{}
	if req.Symbol != "" {
		symbol, err := market.NormalizeSymbol(req.Symbol)
		if err != nil {
			writeError(w, r, "Error handling chat message", err)
			return
		}
		session.Symbol = symbol
	}

	reply, err := h.svc.Chat(r.Context(), session, req.Message)
	if err != nil {
		writeError(w, r, "Error handling chat message", err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

type analysisRequest struct {
	Symbol string `json:"symbol"`
}

// handleAnalysisRequest queues a complete analysis and answers 202
func (h *Handler) handleAnalysisRequest(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, "Error queueing analysis", err)
		return
	}

	symbol, err := market.NormalizeSymbol(req.Symbol)
	if err != nil {
		writeError(w, r, "Error queueing analysis", err)
		return
	}

	if err := h.requests(r.Context(), symbol); err != nil {
		writeError(w, r, "Error queueing analysis for "+symbol, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"symbol": symbol, "status": "queued"})
}
