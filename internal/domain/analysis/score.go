package analysis

import (
	"context"
	"time"
)

// ScorePoint is one recorded sentiment score
type ScorePoint struct {
	Symbol       string    `json:"symbol"`
	Score        int       `json:"sentiment_score"`
	SourcesCount int       `json:"sources_count"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// ScoreHistory stores sentiment scores over time
type ScoreHistory interface {
	Record(ctx context.Context, point ScorePoint) error
	// Recent returns the newest points first
	Recent(ctx context.Context, symbol string, limit int) ([]ScorePoint, error)
}
