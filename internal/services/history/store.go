package history

import (
	"context"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"

	"cryptosys/internal/adapters/embeddings"
	"cryptosys/internal/domain/history"
	"cryptosys/pkg/errors"
	"cryptosys/pkg/logger"
)

// RecallK is the number of stored chunks pulled into a sentiment prompt
const RecallK = 5

// Store implements history.TextStore on an embedding provider and a vector repository
type Store struct {
	repo     history.Repository
	embedder embeddings.Provider
	log      *logger.Logger
}

var _ history.TextStore = (*Store)(nil)

func NewStore(repo history.Repository, embedder embeddings.Provider) *Store {
	return &Store{
		repo:     repo,
		embedder: embedder,
		log:      logger.Get().With("component", "history_store"),
	}
}

// Remember joins texts, chunks them, embeds every chunk and persists the
// result tagged with symbol and the calendar day of date.
func (s *Store) Remember(ctx context.Context, symbol string, date time.Time, texts []string) error {
	chunks := Chunk(strings.Join(texts, "\n\n"), ChunkSize, ChunkOverlap)
	if len(chunks) == 0 {
		return nil
	}

	vectors, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return errors.Wrap(err, "embed news chunks")
	}
	if len(vectors) != len(chunks) {
		return errors.Wrapf(errors.ErrMalformedResponse, "got %d embeddings for %d chunks", len(vectors), len(chunks))
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	rows := make([]history.Chunk, len(chunks))
	for i, c := range chunks {
		rows[i] = history.Chunk{
			Symbol:         symbol,
			Date:           day,
			Content:        c,
			Embedding:      pgvector.NewVector(vectors[i]),
			EmbeddingModel: s.embedder.Name(),
		}
	}

	if err := s.repo.Insert(ctx, rows); err != nil {
		return errors.Wrap(err, "store news chunks")
	}

	s.log.Debug("Stored news chunks",
		"symbol", symbol,
		"chunks", len(rows),
	)
	return nil
}

// Similar returns up to k stored chunk texts closest to query
func (s *Store) Similar(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, errors.Wrap(err, "embed recall query")
	}
	if len(vectors) != 1 {
		return nil, errors.Wrapf(errors.ErrMalformedResponse, "got %d embeddings for query", len(vectors))
	}

	found, err := s.repo.SearchSimilar(ctx, pgvector.NewVector(vectors[0]), s.embedder.Name(), k)
	if err != nil {
		return nil, errors.Wrap(err, "search news chunks")
	}

	texts := make([]string, 0, len(found))
	for _, c := range found {
		texts = append(texts, c.Content)
	}
	return texts, nil
}
