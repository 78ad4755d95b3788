package consumers

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptosys/internal/domain/analysis"
	"cryptosys/internal/events"
	"cryptosys/pkg/errors"
)

type queueReader struct {
	msgs   chan kafka.Message
	closed bool
}

func (r *queueReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *queueReader) Close() error {
	r.closed = true
	return nil
}

type recordingAnalyzer struct {
	mu      sync.Mutex
	symbols []string
	done    chan struct{}
}

func (a *recordingAnalyzer) GetCompleteAnalysis(_ context.Context, symbol string) (*analysis.Bundle, error) {
	a.mu.Lock()
	a.symbols = append(a.symbols, symbol)
	n := len(a.symbols)
	a.mu.Unlock()

	if n == 2 {
		close(a.done)
	}
	if symbol == "BAD" {
		return nil, errors.ErrUnavailable
	}
	return &analysis.Bundle{Symbol: symbol}, nil
}

func request(t *testing.T, symbol string) kafka.Message {
	value, err := events.AnalysisRequest{Symbol: symbol}.Marshal()
	require.NoError(t, err)
	return kafka.Message{Key: []byte(symbol), Value: value}
}

func TestAnalysisRequestConsumerRunsRequests(t *testing.T) {
	reader := &queueReader{msgs: make(chan kafka.Message, 4)}
	analyzer := &recordingAnalyzer{done: make(chan struct{})}
	c := NewAnalysisRequestConsumer(reader, analyzer)

	reader.msgs <- request(t, "BAD")
	reader.msgs <- kafka.Message{Value: []byte{0xff, 0xff}}
	reader.msgs <- request(t, "ETH")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(ctx) }()

	select {
	case <-analyzer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("requests were not processed")
	}
	cancel()

	require.NoError(t, <-errCh)
	assert.Equal(t, []string{"BAD", "ETH"}, analyzer.symbols, "failures and malformed messages do not stop the loop")
	assert.True(t, reader.closed)
}

type brokenReader struct {
	reads atomic.Int32
}

func (r *brokenReader) ReadMessage(context.Context) (kafka.Message, error) {
	r.reads.Add(1)
	return kafka.Message{}, errors.ErrUnavailable
}

func (r *brokenReader) Close() error { return nil }

func TestAnalysisRequestConsumerBacksOffOnReadErrors(t *testing.T) {
	reader := &brokenReader{}
	c := NewAnalysisRequestConsumer(reader, &recordingAnalyzer{done: make(chan struct{})})
	c.retryDelay = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(ctx) }()

	time.Sleep(220 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop during backoff")
	}

	reads := reader.reads.Load()
	assert.GreaterOrEqual(t, reads, int32(2))
	assert.LessOrEqual(t, reads, int32(8), "read errors are retried after a pause")
}
