package events

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"cryptosys/internal/domain/analysis"
	"cryptosys/pkg/errors"
)

// AnalysisCompleted is emitted after every complete analysis
type AnalysisCompleted struct {
	ID             string
	Symbol         string
	SentimentScore int
	SourcesCount   int
	CompletedAt    time.Time
}

// NewAnalysisCompleted builds the event for bundle with a fresh ID
func NewAnalysisCompleted(bundle *analysis.Bundle) AnalysisCompleted {
	completedAt := bundle.AnalyzedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}
	return AnalysisCompleted{
		ID:             uuid.NewString(),
		Symbol:         bundle.Symbol,
		SentimentScore: bundle.SentimentScore,
		SourcesCount:   bundle.SourcesCount,
		CompletedAt:    completedAt,
	}
}

// Marshal encodes the event as a protobuf Struct
func (e AnalysisCompleted) Marshal() ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"id":              e.ID,
		"symbol":          e.Symbol,
		"sentiment_score": e.SentimentScore,
		"sources_count":   e.SourcesCount,
		"completed_at":    e.CompletedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, errors.Wrap(err, "build analysis_completed struct")
	}
	return proto.Marshal(s)
}

// UnmarshalAnalysisCompleted decodes an event written by Marshal
func UnmarshalAnalysisCompleted(data []byte) (AnalysisCompleted, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return AnalysisCompleted{}, errors.Wrap(errors.ErrMalformedResponse, "unmarshal analysis_completed: "+err.Error())
	}

	f := s.GetFields()
	completedAt, err := time.Parse(time.RFC3339Nano, f["completed_at"].GetStringValue())
	if err != nil {
		return AnalysisCompleted{}, errors.Wrap(errors.ErrMalformedResponse, "analysis_completed.completed_at")
	}

	return AnalysisCompleted{
		ID:             f["id"].GetStringValue(),
		Symbol:         f["symbol"].GetStringValue(),
		SentimentScore: int(f["sentiment_score"].GetNumberValue()),
		SourcesCount:   int(f["sources_count"].GetNumberValue()),
		CompletedAt:    completedAt,
	}, nil
}

// AnalysisRequest asks a consumer to run a complete analysis
type AnalysisRequest struct {
	Symbol string
}

func (r AnalysisRequest) Marshal() ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{"symbol": r.Symbol})
	if err != nil {
		return nil, errors.Wrap(err, "build analysis_request struct")
	}
	return proto.Marshal(s)
}

// UnmarshalAnalysisRequest decodes a request. The message key is used when
// the payload carries no symbol.
func UnmarshalAnalysisRequest(key, value []byte) (AnalysisRequest, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(value, &s); err != nil {
		return AnalysisRequest{}, errors.Wrap(errors.ErrMalformedResponse, "unmarshal analysis_request: "+err.Error())
	}

	symbol := strings.TrimSpace(s.GetFields()["symbol"].GetStringValue())
	if symbol == "" {
		symbol = strings.TrimSpace(string(key))
	}
	if symbol == "" {
		return AnalysisRequest{}, errors.NewValidationError("symbol", "missing from analysis request", "")
	}
	return AnalysisRequest{Symbol: symbol}, nil
}
