package events

import (
	"context"

	"cryptosys/internal/domain/analysis"
	"cryptosys/pkg/errors"
	"cryptosys/pkg/logger"
)

// BinaryPublisher sends pre-encoded messages; implemented by kafka.Producer
type BinaryPublisher interface {
	PublishBinary(ctx context.Context, topic string, key, value []byte) error
}

// Publisher publishes analysis events to Kafka
type Publisher struct {
	producer BinaryPublisher
	topic    string
	log      *logger.Logger
}

func NewPublisher(producer BinaryPublisher, topic string) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
		log:      logger.Get().With("component", "event_publisher"),
	}
}

// PublishAnalysisCompleted publishes evt keyed by symbol
func (p *Publisher) PublishAnalysisCompleted(ctx context.Context, evt AnalysisCompleted) error {
	data, err := evt.Marshal()
	if err != nil {
		return err
	}

	if err := p.producer.PublishBinary(ctx, p.topic, []byte(evt.Symbol), data); err != nil {
		return errors.Wrap(err, "send to kafka")
	}

	p.log.Debug("Event published",
		"topic", p.topic,
		"event_id", evt.ID,
		"symbol", evt.Symbol,
		"size_bytes", len(data),
	)
	return nil
}

// AnalysisCompleted publishes the completion event for bundle
func (p *Publisher) AnalysisCompleted(ctx context.Context, bundle *analysis.Bundle) error {
	return p.PublishAnalysisCompleted(ctx, NewAnalysisCompleted(bundle))
}

// RequestAnalysis enqueues a complete analysis of symbol on topic
func RequestAnalysis(ctx context.Context, producer BinaryPublisher, topic, symbol string) error {
	data, err := AnalysisRequest{Symbol: symbol}.Marshal()
	if err != nil {
		return err
	}
	return producer.PublishBinary(ctx, topic, []byte(symbol), data)
}
