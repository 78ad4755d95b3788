package embeddings

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"cryptosys/internal/adapters/ai"
	"cryptosys/internal/adapters/config"
	"cryptosys/internal/metrics"
	"cryptosys/pkg/errors"
	"cryptosys/pkg/logger"
)

// maxBatch is the OpenAI per-request input limit
const maxBatch = 2048

// OpenAIProvider implements embedding generation using official OpenAI Go SDK
type OpenAIProvider struct {
	client     openai.Client
	model      openai.EmbeddingModel
	dimensions int
	timeout    time.Duration
	log        *logger.Logger
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates an embedding provider sharing the chat API credentials
func NewOpenAIProvider(cfg config.OpenAIConfig, opts ...option.RequestOption) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "openai API key is required")
	}

	model := cfg.EmbeddingModel
	if model == "" {
		model = openai.EmbeddingModelTextEmbedding3Small
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	clientOpts = append(clientOpts, opts...)

	return &OpenAIProvider{
		client:     openai.NewClient(clientOpts...),
		model:      openai.EmbeddingModel(model),
		dimensions: getDimensions(model),
		timeout:    timeout,
		log:        logger.Get().With("component", "openai_embeddings", "model", model),
	}, nil
}

// Embed creates embeddings for texts, splitting into API-sized batches
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "texts cannot be empty")
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := start + maxBatch
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := p.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}

	return out, nil
}

func (p *OpenAIProvider) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	begin := time.Now()
	response, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: p.model,
	})
	if err != nil {
		err = ai.ClassifyError(err)
		metrics.RecordProviderCall("openai", "embeddings", time.Since(begin), err)
		return nil, errors.Wrap(err, "openai embeddings call failed")
	}
	metrics.RecordProviderCall("openai", "embeddings", time.Since(begin), nil)

	if len(response.Data) != len(texts) {
		return nil, errors.Wrapf(errors.ErrMalformedResponse, "expected %d embeddings, got %d", len(texts), len(response.Data))
	}

	// Data is ordered by index; float64 from the SDK is narrowed for pgvector
	embeddings := make([][]float32, len(response.Data))
	for _, data := range response.Data {
		idx := int(data.Index)
		if idx < 0 || idx >= len(embeddings) {
			return nil, errors.Wrapf(errors.ErrMalformedResponse, "embedding index %d out of range", idx)
		}
		vec := make([]float32, len(data.Embedding))
		for j, val := range data.Embedding {
			vec[j] = float32(val)
		}
		embeddings[idx] = vec
	}

	p.log.Debug("Generated batch embeddings",
		"batch_size", len(texts),
		"tokens_used", response.Usage.TotalTokens,
	)

	return embeddings, nil
}

func (p *OpenAIProvider) Dimensions() int {
	return p.dimensions
}

// Name returns the model name (e.g., "text-embedding-3-small")
func (p *OpenAIProvider) Name() string {
	return string(p.model)
}

func getDimensions(model string) int {
	switch model {
	case openai.EmbeddingModelTextEmbedding3Large:
		return 3072
	default:
		return 1536
	}
}
