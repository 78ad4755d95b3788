package embeddings

import "context"

// Provider turns text into vectors for similarity search
type Provider interface {
	// Embed returns one vector per input text, in input order
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	Dimensions() int

	// Name returns the model name. Stored next to each vector so searches
	// never compare vectors from different models.
	Name() string
}
