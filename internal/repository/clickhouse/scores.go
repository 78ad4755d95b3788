package clickhouse

import (
	"context"
	"fmt"
	"time"

	"cryptosys/internal/adapters/clickhouse"
	"cryptosys/internal/domain/analysis"
	"cryptosys/pkg/errors"
)

const DefaultScoresTable = "sentiment_scores"

var _ analysis.ScoreHistory = (*ScoreRepository)(nil)

// ScoreRepository implements analysis.ScoreHistory using ClickHouse
type ScoreRepository struct {
	client *clickhouse.Client
	table  string
}

// NewScoreRepository creates a repository writing to table (DefaultScoresTable when empty)
func NewScoreRepository(client *clickhouse.Client, table string) *ScoreRepository {
	if table == "" {
		table = DefaultScoresTable
	}
	return &ScoreRepository{client: client, table: table}
}

type scoreRow struct {
	Symbol       string    `ch:"symbol"`
	Score        uint8     `ch:"score"`
	SourcesCount uint32    `ch:"sources_count"`
	RecordedAt   time.Time `ch:"recorded_at"`
}

// EnsureTable creates the score table when missing
func (r *ScoreRepository) EnsureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			symbol        LowCardinality(String),
			score         UInt8,
			sources_count UInt32,
			recorded_at   DateTime64(3, 'UTC')
		) ENGINE = MergeTree()
		ORDER BY (symbol, recorded_at)`, r.table)

	if err := r.client.Exec(ctx, query); err != nil {
		return errors.Wrap(err, "create sentiment_scores table")
	}
	return nil
}

// Record inserts one score
func (r *ScoreRepository) Record(ctx context.Context, point analysis.ScorePoint) error {
	if err := r.RecordBatch(ctx, []analysis.ScorePoint{point}); err != nil {
		return errors.Wrapf(err, "record score for %s", point.Symbol)
	}
	return nil
}

// RecordBatch inserts points in one batch
func (r *ScoreRepository) RecordBatch(ctx context.Context, points []analysis.ScorePoint) error {
	if len(points) == 0 {
		return nil
	}

	rows := make([]interface{}, 0, len(points))
	for _, p := range points {
		rows = append(rows, toScoreRow(p))
	}

	query := fmt.Sprintf("INSERT INTO %s (symbol, score, sources_count, recorded_at)", r.table)
	if err := r.client.InsertStructs(ctx, query, rows); err != nil {
		return errors.Wrapf(err, "insert %d scores", len(points))
	}
	return nil
}

func toScoreRow(point analysis.ScorePoint) *scoreRow {
	recordedAt := point.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	sourcesCount := max(point.SourcesCount, 0)

	return &scoreRow{
		Symbol:       point.Symbol,
		Score:        uint8(analysis.ClampScore(point.Score)),
		SourcesCount: uint32(sourcesCount),
		RecordedAt:   recordedAt.UTC(),
	}
}

// Recent returns up to limit scores for symbol, newest first
func (r *ScoreRepository) Recent(ctx context.Context, symbol string, limit int) ([]analysis.ScorePoint, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []scoreRow
	query := fmt.Sprintf(`
		SELECT symbol, score, sources_count, recorded_at
		FROM %s
		WHERE symbol = ?
		ORDER BY recorded_at DESC
		LIMIT ?`, r.table)

	if err := r.client.Select(ctx, &rows, query, symbol, limit); err != nil {
		return nil, errors.Wrapf(err, "select scores for %s", symbol)
	}

	points := make([]analysis.ScorePoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, analysis.ScorePoint{
			Symbol:       row.Symbol,
			Score:        int(row.Score),
			SourcesCount: int(row.SourcesCount),
			RecordedAt:   row.RecordedAt,
		})
	}
	return points, nil
}
