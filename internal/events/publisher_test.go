package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptosys/internal/domain/analysis"
	"cryptosys/pkg/errors"
)

type captured struct {
	topic string
	key   []byte
	value []byte
}

type fakeProducer struct {
	sent []captured
	err  error
}

func (f *fakeProducer) PublishBinary(_ context.Context, topic string, key, value []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, captured{topic: topic, key: key, value: value})
	return nil
}

func TestPublishAnalysisCompleted(t *testing.T) {
	producer := &fakeProducer{}
	pub := NewPublisher(producer, "cryptosys.analysis.completed")
	at := time.Date(2024, 3, 8, 12, 30, 0, 0, time.UTC)

	err := pub.AnalysisCompleted(context.Background(), &analysis.Bundle{
		Symbol:         "BTC",
		SentimentScore: 64,
		SourcesCount:   9,
		AnalyzedAt:     at,
	})
	require.NoError(t, err)
	require.Len(t, producer.sent, 1)

	msg := producer.sent[0]
	assert.Equal(t, "cryptosys.analysis.completed", msg.topic)
	assert.Equal(t, "BTC", string(msg.key))

	evt, err := UnmarshalAnalysisCompleted(msg.value)
	require.NoError(t, err)
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, "BTC", evt.Symbol)
	assert.Equal(t, 64, evt.SentimentScore)
	assert.Equal(t, 9, evt.SourcesCount)
	assert.True(t, at.Equal(evt.CompletedAt))
}

func TestPublishWrapsProducerError(t *testing.T) {
	pub := NewPublisher(&fakeProducer{err: errors.ErrUnavailable}, "t")

	err := pub.AnalysisCompleted(context.Background(), &analysis.Bundle{Symbol: "ETH"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
}

func TestAnalysisRequestFallsBackToKey(t *testing.T) {
	producer := &fakeProducer{}
	require.NoError(t, RequestAnalysis(context.Background(), producer, "req", "SOL"))

	req, err := UnmarshalAnalysisRequest(producer.sent[0].key, producer.sent[0].value)
	require.NoError(t, err)
	assert.Equal(t, "SOL", req.Symbol)

	empty, err := AnalysisRequest{}.Marshal()
	require.NoError(t, err)
	req, err = UnmarshalAnalysisRequest([]byte("ADA"), empty)
	require.NoError(t, err)
	assert.Equal(t, "ADA", req.Symbol)

	_, err = UnmarshalAnalysisRequest(nil, empty)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}
