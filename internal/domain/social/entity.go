package social

import (
	"context"
	"time"
)

// Post is a social media post mentioning a symbol
type Post struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	AuthorID  string    `json:"author_id,omitempty"`
	Likes     int       `json:"likes"`
	Reposts   int       `json:"reposts"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Provider returns recent posts about a symbol created after since
type Provider interface {
	Recent(ctx context.Context, symbol string, limit int, since time.Time) ([]Post, error)
}

// Disabled is the provider used when no social credentials are configured
type Disabled struct{}

func (Disabled) Recent(context.Context, string, int, time.Time) ([]Post, error) {
	return nil, nil
}
