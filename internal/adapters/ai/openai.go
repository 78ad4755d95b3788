package ai

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"cryptosys/internal/adapters/config"
	"cryptosys/internal/adapters/ratelimit"
	"cryptosys/internal/metrics"
	"cryptosys/pkg/errors"
	"cryptosys/pkg/logger"
)

// OpenAICompleter implements Completer on the chat completions API
type OpenAICompleter struct {
	client  openai.Client
	model   string
	timeout time.Duration
	limiter *ratelimit.Limiter
	log     *logger.Logger
}

var _ Completer = (*OpenAICompleter)(nil)

// NewOpenAICompleter builds a completer. Retries are disabled; every
// failure is reported to the caller on the first attempt.
func NewOpenAICompleter(cfg config.OpenAIConfig, opts ...option.RequestOption) (*OpenAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "openai API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	clientOpts = append(clientOpts, opts...)

	return &OpenAICompleter{
		client:  openai.NewClient(clientOpts...),
		model:   model,
		timeout: cfg.Timeout,
		limiter: ratelimit.NewLimiter("openai", cfg.RequestsPerMinute),
		log:     logger.Get().With("component", "openai_completer", "model", model),
	}, nil
}

// Model returns the default chat model
func (c *OpenAICompleter) Model() string {
	return c.model
}

// Complete sends the prompt as a single user message
func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "prompt cannot be empty")
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(model),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	latency := time.Since(start)
	if err != nil {
		err = ClassifyError(err)
		metrics.RecordLLMCall(req.Operation, model, latency, 0, err)
		return nil, errors.Wrapf(err, "openai completion (%s)", req.Operation)
	}

	out := &Completion{
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	if len(resp.Choices) > 0 {
		out.Text = resp.Choices[0].Message.Content
	} else {
		c.log.Warn("Completion returned no choices",
			"operation", req.Operation,
		)
	}

	metrics.RecordLLMCall(req.Operation, model, latency, out.TotalTokens, nil)

	c.log.Debug("Completion finished",
		"operation", req.Operation,
		"latency_ms", latency.Milliseconds(),
		"tokens", out.TotalTokens,
		"chars", len(out.Text),
	)

	return out, nil
}

// ClassifyError maps SDK and transport failures onto the error taxonomy
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrapf(errors.ErrTimeout, "%v", err)
	}
	if stderrors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *openai.Error
	if stderrors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return errors.Wrapf(errors.ErrRateLimitExceeded, "openai status %d: %v", apiErr.StatusCode, err)
		case apiErr.StatusCode >= 500:
			return errors.Wrapf(errors.ErrUnavailable, "openai status %d: %v", apiErr.StatusCode, err)
		default:
			return errors.Wrapf(errors.ErrExternal, "openai status %d: %v", apiErr.StatusCode, err)
		}
	}

	return errors.Wrapf(errors.ErrUnavailable, "%v", err)
}
