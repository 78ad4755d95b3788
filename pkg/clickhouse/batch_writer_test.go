package clickhouse

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]int
}

func (r *recorder) flush(_ context.Context, batch []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, batch)
	return nil
}

func (r *recorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n
}

func TestBatchWriter_FlushOnMaxSize(t *testing.T) {
	rec := &recorder{}
	bw := NewBatchWriter(BatchWriterConfig[int]{
		FlushFunc:    rec.flush,
		TableName:    "test_table",
		MaxBatchSize: 3,
		MaxAge:       10 * time.Second,
	})
	ctx := context.Background()

	require.NoError(t, bw.Add(ctx, 1))
	require.NoError(t, bw.Add(ctx, 2))
	assert.Empty(t, rec.batches)

	require.NoError(t, bw.Add(ctx, 3))
	require.Len(t, rec.batches, 1)
	assert.Equal(t, []int{1, 2, 3}, rec.batches[0])
	assert.Zero(t, bw.BufferSize())
}

func TestBatchWriter_FlushOnTimer(t *testing.T) {
	rec := &recorder{}
	bw := NewBatchWriter(BatchWriterConfig[int]{
		FlushFunc:    rec.flush,
		MaxBatchSize: 100,
		MaxAge:       50 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bw.Start(ctx)

	require.NoError(t, bw.Add(ctx, 1))
	require.NoError(t, bw.Add(ctx, 2))

	assert.Eventually(t, func() bool { return rec.total() == 2 }, time.Second, 10*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, bw.Stop(stopCtx))
}

func TestBatchWriter_StopFlushesRemaining(t *testing.T) {
	rec := &recorder{}
	bw := NewBatchWriter(BatchWriterConfig[int]{
		FlushFunc:    rec.flush,
		MaxBatchSize: 100,
		MaxAge:       10 * time.Second,
	})
	bw.Start(context.Background())

	for i := range 3 {
		require.NoError(t, bw.Add(context.Background(), i))
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, bw.Stop(stopCtx))
	assert.Equal(t, 3, rec.total())

	require.NoError(t, bw.Stop(stopCtx), "stopping twice is a no-op")
}

func TestBatchWriter_ConcurrentAdds(t *testing.T) {
	rec := &recorder{}
	bw := NewBatchWriter(BatchWriterConfig[int]{
		FlushFunc:    rec.flush,
		MaxBatchSize: 10,
		MaxAge:       time.Second,
	})
	bw.Start(context.Background())

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = bw.Add(context.Background(), i)
		}()
	}
	wg.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, bw.Stop(stopCtx))
	assert.Equal(t, 50, rec.total())
}

func TestBatchWriter_FlushError(t *testing.T) {
	bw := NewBatchWriter(BatchWriterConfig[int]{
		FlushFunc: func(context.Context, []int) error {
			return errors.New("clickhouse unavailable")
		},
		MaxBatchSize: 1,
	})

	assert.Error(t, bw.Add(context.Background(), 1))
	assert.Zero(t, bw.BufferSize())
}
