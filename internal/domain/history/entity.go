package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Chunk is a slice of news text remembered for later similarity search
type Chunk struct {
	ID             uuid.UUID       `db:"id"`
	Symbol         string          `db:"symbol"`
	Date           time.Time       `db:"chunk_date"`
	Content        string          `db:"content"`
	Embedding      pgvector.Vector `db:"embedding"`
	EmbeddingModel string          `db:"embedding_model"`
	CreatedAt      time.Time       `db:"created_at"`
}

// Repository persists chunks with their embeddings
type Repository interface {
	Insert(ctx context.Context, chunks []Chunk) error
	SearchSimilar(ctx context.Context, embedding pgvector.Vector, model string, limit int) ([]Chunk, error)
}

// TextStore is the similarity-searchable store consumed by sentiment analysis
type TextStore interface {
	// Remember stores texts tagged with symbol and date
	Remember(ctx context.Context, symbol string, date time.Time, texts []string) error
	// Similar returns up to k stored texts closest to query
	Similar(ctx context.Context, query string, k int) ([]string, error)
}

// Noop is the store used when no vector database is configured
type Noop struct{}

func (Noop) Remember(context.Context, string, time.Time, []string) error { return nil }

func (Noop) Similar(context.Context, string, int) ([]string, error) { return nil, nil }
