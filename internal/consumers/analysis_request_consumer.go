package consumers

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"cryptosys/internal/domain/analysis"
	"cryptosys/internal/events"
	"cryptosys/pkg/errors"
	"cryptosys/pkg/logger"
)

const (
	// DefaultProcessTimeout bounds one requested analysis
	DefaultProcessTimeout = 3 * time.Minute
	// DefaultReadRetryDelay is the pause after a failed read
	DefaultReadRetryDelay = time.Second
)

// MessageReader is satisfied by kafka.Consumer
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Analyzer runs a complete analysis; satisfied by the orchestrator
type Analyzer interface {
	GetCompleteAnalysis(ctx context.Context, symbol string) (*analysis.Bundle, error)
}

// AnalysisRequestConsumer runs a complete analysis for every symbol
// requested on the analysis request topic.
type AnalysisRequestConsumer struct {
	consumer   MessageReader
	analyzer   Analyzer
	timeout    time.Duration
	retryDelay time.Duration
	log        *logger.Logger
}

func NewAnalysisRequestConsumer(consumer MessageReader, analyzer Analyzer) *AnalysisRequestConsumer {
	return &AnalysisRequestConsumer{
		consumer:   consumer,
		analyzer:   analyzer,
		timeout:    DefaultProcessTimeout,
		retryDelay: DefaultReadRetryDelay,
		log:        logger.Get().With("component", "analysis_request_consumer"),
	}
}

// Start consumes until ctx is cancelled. The request in flight at shutdown
// is finished before returning.
func (c *AnalysisRequestConsumer) Start(ctx context.Context) error {
	c.log.Info("Starting analysis request consumer")

	defer func() {
		if err := c.consumer.Close(); err != nil {
			c.log.Error("Failed to close analysis request consumer", "error", err)
		}
	}()

	for {
		msg, err := c.consumer.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("Analysis request consumer stopping")
				return nil
			}
			c.log.Warn("Failed to read analysis request", "error", err)

			select {
			case <-ctx.Done():
				c.log.Info("Analysis request consumer stopping")
				return nil
			case <-time.After(c.retryDelay):
			}
			continue
		}

		processCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
		if err := c.handle(processCtx, msg); err != nil {
			c.log.Error("Failed to handle analysis request",
				"key", string(msg.Key),
				"error", err,
			)
		}
		cancel()

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *AnalysisRequestConsumer) handle(ctx context.Context, msg kafka.Message) error {
	req, err := events.UnmarshalAnalysisRequest(msg.Key, msg.Value)
	if err != nil {
		return err
	}

	bundle, err := c.analyzer.GetCompleteAnalysis(ctx, req.Symbol)
	if err != nil {
		return errors.Wrapf(err, "requested analysis of %s", req.Symbol)
	}

	c.log.Info("Requested analysis completed",
		"symbol", bundle.Symbol,
		"sentiment_score", bundle.SentimentScore,
	)
	return nil
}
