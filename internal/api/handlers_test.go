package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptosys/internal/domain/analysis"
	"cryptosys/internal/services/contextcache"
	"cryptosys/internal/services/orchestrator"
	"cryptosys/pkg/errors"
)

type fakeService struct {
	mu       sync.Mutex
	cache    *contextcache.Memory
	err      error
	sessions []string
}

func newFakeService() *fakeService {
	return &fakeService{cache: contextcache.NewMemory(0, 0)}
}

func (f *fakeService) Analyze(ctx context.Context, symbol string) (*analysis.Bundle, error) {
	if f.err != nil {
		return nil, f.err
	}
	b := &analysis.Bundle{
		Symbol:           strings.ToUpper(symbol),
		CombinedAnalysis: "combined",
		SentimentScore:   64,
		AnalyzedAt:       time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
	}
	_ = f.cache.Put(ctx, b)
	return b, nil
}

func (f *fakeService) HandleFollowup(_ context.Context, symbol, question string) (*analysis.FollowupResult, error) {
	if question == "" {
		return nil, errors.NewValidationError("question", "must not be empty", question)
	}
	return &analysis.FollowupResult{
		Symbol:   symbol,
		Question: question,
		Response: "followup answer",
		Metadata: analysis.NewMetadata(64, nil),
	}, nil
}

func (f *fakeService) PredictPriceMovement(_ context.Context, symbol, timeframe string) (*analysis.PredictionResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &analysis.PredictionResult{Symbol: symbol, Timeframe: timeframe, Days: 7, Prediction: "up"}, nil
}

func (f *fakeService) OptimalTradingStrategy(_ context.Context, symbol, goal string) (*analysis.StrategyResult, error) {
	return &analysis.StrategyResult{Symbol: symbol, Goal: goal, Strategy: "hold"}, nil
}

func (f *fakeService) AnalyzePolicyImpact(_ context.Context, symbol, policy string) (*analysis.PolicyImpactResult, error) {
	return &analysis.PolicyImpactResult{Symbol: symbol, PolicyDescription: policy, ImpactAnalysis: "mild"}, nil
}

func (f *fakeService) Chat(_ context.Context, session *orchestrator.Session, message string) (*analysis.ChatReply, error) {
	f.mu.Lock()
	f.sessions = append(f.sessions, session.Symbol)
	f.mu.Unlock()

	if message == "fail" {
		return nil, errors.New("model unavailable")
	}
	session.Symbol = "BTC"
	return &analysis.ChatReply{Symbol: "BTC", Response: "reply to " + message}, nil
}

func (f *fakeService) Cache() contextcache.Cache { return f.cache }

type fakeScores struct {
	points []analysis.ScorePoint
	limit  int
}

func (f *fakeScores) Record(context.Context, analysis.ScorePoint) error { return nil }

func (f *fakeScores) Recent(_ context.Context, _ string, limit int) ([]analysis.ScorePoint, error) {
	f.limit = limit
	return f.points, nil
}

func newTestRouter(svc Service, scores analysis.ScoreHistory) http.Handler {
	return NewRouter(RouterConfig{
		Service:        svc,
		Scores:         scores,
		AllowedOrigins: []string{"https://app.example.com"},
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Detail
}

func TestRoot(t *testing.T) {
	rec := do(t, newTestRouter(newFakeService(), nil), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Welcome to Cryptosys API"}`, rec.Body.String())
}

func TestAnalyze(t *testing.T) {
	svc := newFakeService()
	rec := do(t, newTestRouter(svc, nil), http.MethodGet, "/api/analyze/btc", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var bundle analysis.Bundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundle))
	assert.Equal(t, "BTC", bundle.Symbol)
	assert.Equal(t, 64, bundle.SentimentScore)
}

func TestAnalyzeFailure(t *testing.T) {
	svc := newFakeService()
	svc.err = errors.New("polygon down")

	rec := do(t, newTestRouter(svc, nil), http.MethodGet, "/api/analyze/BTC", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error analyzing BTC: internal error", detail(t, rec))
}

func TestAnalyzeFailureHidesUpstreamDetail(t *testing.T) {
	svc := newFakeService()
	svc.err = errors.Wrapf(errors.ErrUnavailable,
		"request failed: Get https://api.polygon.io/v2/aggs?apiKey=SECRET-KEY")

	rec := do(t, newTestRouter(svc, nil), http.MethodGet, "/api/analyze/BTC", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error analyzing BTC: an upstream service is unavailable", detail(t, rec))
	assert.NotContains(t, rec.Body.String(), "SECRET-KEY")
}

func TestFollowupWithoutAnalysis(t *testing.T) {
	rec := do(t, newTestRouter(newFakeService(), nil), http.MethodPost, "/api/followup",
		`{"symbol":"eth","question":"why?"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No analysis found for ETH", detail(t, rec))
}

func TestFollowupAfterAnalysis(t *testing.T) {
	svc := newFakeService()
	router := newTestRouter(svc, nil)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/api/analyze/ETH", "").Code)

	rec := do(t, router, http.MethodPost, "/api/followup", `{"symbol":"eth","question":"why?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res analysis.FollowupResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "ETH", res.Symbol)
	assert.Equal(t, "followup answer", res.Response)
	assert.Equal(t, []any{}, decodeMap(t, rec)["sources"])
}

func TestFollowupValidation(t *testing.T) {
	svc := newFakeService()
	router := newTestRouter(svc, nil)

	rec := do(t, router, http.MethodPost, "/api/followup", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/followup", `{"symbol":"b t c","question":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, _ = svc.Analyze(context.Background(), "BTC")
	rec = do(t, router, http.MethodPost, "/api/followup", `{"symbol":"BTC","question":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictStrategyPolicy(t *testing.T) {
	router := newTestRouter(newFakeService(), nil)

	rec := do(t, router, http.MethodPost, "/api/predict", `{"symbol":"BTC","timeframe":"week"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "week", decodeMap(t, rec)["timeframe"])

	rec = do(t, router, http.MethodPost, "/api/strategy", `{"symbol":"BTC","goal":"buy"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hold", decodeMap(t, rec)["strategy"])

	rec = do(t, router, http.MethodPost, "/api/policy-impact", `{"symbol":"BTC","policy_description":"ETF approval"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ETF approval", decodeMap(t, rec)["policy_description"])
}

func TestSentiment(t *testing.T) {
	svc := newFakeService()
	router := newTestRouter(svc, nil)

	rec := do(t, router, http.MethodGet, "/api/sentiment/SOL", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, _ = svc.Analyze(context.Background(), "SOL")
	rec = do(t, router, http.MethodGet, "/api/sentiment/sol", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeMap(t, rec)
	assert.Equal(t, "SOL", body["symbol"])
	assert.EqualValues(t, 64, body["sentiment_score"])
	assert.EqualValues(t, 0, body["sources_count"])
}

func TestHistory(t *testing.T) {
	scores := &fakeScores{points: []analysis.ScorePoint{{Symbol: "BTC", Score: 70}}}
	router := newTestRouter(newFakeService(), scores)

	rec := do(t, router, http.MethodGet, "/api/history/btc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultHistoryLimit, scores.limit)
	assert.Len(t, decodeMap(t, rec)["points"], 1)

	rec = do(t, router, http.MethodGet, "/api/history/btc?limit=5000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxHistoryLimit, scores.limit)

	rec = do(t, router, http.MethodGet, "/api/history/btc?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryWithoutStore(t *testing.T) {
	rec := do(t, newTestRouter(newFakeService(), nil), http.MethodGet, "/api/history/BTC", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"symbol":"BTC","points":[]}`, rec.Body.String())
}

func TestChatSeedsSession(t *testing.T) {
	svc := newFakeService()
	router := newTestRouter(svc, nil)

	rec := do(t, router, http.MethodPost, "/api/chat", `{"message":"and now?","symbol":"eth"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reply to and now?", decodeMap(t, rec)["response"])
	assert.Equal(t, []string{"ETH"}, svc.sessions)

	rec = do(t, router, http.MethodPost, "/api/chat", `{"message":"fail"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error handling chat message: internal error", detail(t, rec))
}

func TestUnknownRoute(t *testing.T) {
	rec := do(t, newTestRouter(newFakeService(), nil), http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS(t *testing.T) {
	router := newTestRouter(newFakeService(), nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/predict", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestInstrumentRecoversPanic(t *testing.T) {
	h := instrument(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", detail(t, rec))
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestAnalysisRequestQueued(t *testing.T) {
	var queued []string
	router := NewRouter(RouterConfig{
		Service: newFakeService(),
		Requests: func(_ context.Context, symbol string) error {
			queued = append(queued, symbol)
			return nil
		},
	})

	rec := do(t, router, http.MethodPost, "/api/analysis-requests", `{"symbol":"sol"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"symbol":"SOL","status":"queued"}`, rec.Body.String())
	assert.Equal(t, []string{"SOL"}, queued)

	rec = do(t, router, http.MethodPost, "/api/analysis-requests", `{"symbol":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalysisRequestsDisabled(t *testing.T) {
	rec := do(t, newTestRouter(newFakeService(), nil), http.MethodPost, "/api/analysis-requests", `{"symbol":"sol"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
