package clickhouse

import (
	"context"
	"time"

	"cryptosys/internal/domain/analysis"
	"cryptosys/pkg/clickhouse"
)

var _ analysis.ScoreHistory = (*BufferedScores)(nil)

// scoreBatchWriter is the subset of clickhouse.BatchWriter used here
type scoreBatchWriter interface {
	Add(ctx context.Context, point analysis.ScorePoint) error
	Flush(ctx context.Context) error
	Start(ctx context.Context)
	Stop(ctx context.Context) error
}

// BufferedScores batches score writes. Recent flushes pending points first
// so a reader sees its own writes.
type BufferedScores struct {
	repo   *ScoreRepository
	writer scoreBatchWriter
}

func NewBufferedScores(repo *ScoreRepository, maxBatch int, maxAge time.Duration) *BufferedScores {
	return &BufferedScores{
		repo: repo,
		writer: clickhouse.NewBatchWriter(clickhouse.BatchWriterConfig[analysis.ScorePoint]{
			FlushFunc:    repo.RecordBatch,
			TableName:    repo.table,
			MaxBatchSize: maxBatch,
			MaxAge:       maxAge,
		}),
	}
}

func (b *BufferedScores) Record(ctx context.Context, point analysis.ScorePoint) error {
	if point.RecordedAt.IsZero() {
		point.RecordedAt = time.Now()
	}
	return b.writer.Add(ctx, point)
}

func (b *BufferedScores) Recent(ctx context.Context, symbol string, limit int) ([]analysis.ScorePoint, error) {
	if err := b.writer.Flush(ctx); err != nil {
		return nil, err
	}
	return b.repo.Recent(ctx, symbol, limit)
}

// Start runs the periodic flush until ctx is done or Stop is called
func (b *BufferedScores) Start(ctx context.Context) {
	b.writer.Start(ctx)
}

func (b *BufferedScores) Stop(ctx context.Context) error {
	return b.writer.Stop(ctx)
}
