package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"cryptosys/internal/domain/history"
	"cryptosys/pkg/errors"
)

var _ history.Repository = (*NewsChunkRepository)(nil)

// NewsChunkRepository implements history.Repository using sqlx and pgvector
type NewsChunkRepository struct {
	db DBTX
}

// NewNewsChunkRepository creates a repository over a connection or transaction
func NewNewsChunkRepository(db DBTX) *NewsChunkRepository {
	return &NewsChunkRepository{db: db}
}

// Insert stores chunks; missing IDs and timestamps are filled in
func (r *NewsChunkRepository) Insert(ctx context.Context, chunks []history.Chunk) error {
	query := `
		INSERT INTO news_chunks (
			id, symbol, chunk_date, content, embedding, embedding_model, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)`

	now := time.Now().UTC()
	for i := range chunks {
		c := &chunks[i]
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}

		_, err := r.db.ExecContext(ctx, query,
			c.ID, c.Symbol, c.Date, c.Content, c.Embedding, c.EmbeddingModel, c.CreatedAt,
		)
		if err != nil {
			return errors.Wrapf(err, "insert news chunk %d/%d", i+1, len(chunks))
		}
	}

	return nil
}

// SearchSimilar performs semantic search using pgvector cosine distance.
// Only vectors produced by the same embedding model are compared.
func (r *NewsChunkRepository) SearchSimilar(ctx context.Context, embedding pgvector.Vector, model string, limit int) ([]history.Chunk, error) {
	var chunks []history.Chunk

	query := `
		SELECT id, symbol, chunk_date, content, embedding, embedding_model, created_at
		FROM news_chunks
		WHERE embedding_model = $2
		ORDER BY embedding <=> $1
		LIMIT $3`

	if err := r.db.SelectContext(ctx, &chunks, query, embedding, model, limit); err != nil {
		return nil, errors.Wrap(err, "search news chunks")
	}

	return chunks, nil
}

// CountBySymbol returns how many chunks are stored for symbol
func (r *NewsChunkRepository) CountBySymbol(ctx context.Context, symbol string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM news_chunks WHERE symbol = $1`, symbol)
	return n, err
}
