package ai

import "context"

// Completer turns a single prompt into generated text
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// CompletionRequest is one prompt sent to the language model.
// Operation labels the call in logs and metrics.
type CompletionRequest struct {
	Operation   string
	System      string
	Prompt      string
	Model       string // empty uses the completer default
	MaxTokens   int
	Temperature float64
}

// Completion is the text the model returned
type Completion struct {
	Text             string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

// CompleterFunc adapts a function to the Completer interface
type CompleterFunc func(ctx context.Context, req CompletionRequest) (*Completion, error)

func (f CompleterFunc) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	return f(ctx, req)
}
