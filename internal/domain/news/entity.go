package news

import (
	"context"
	"time"
)

// Article is a news search hit
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	SourceName  string    `json:"source_name"`
	Author      string    `json:"author,omitempty"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// Provider searches recent articles about a symbol
type Provider interface {
	Search(ctx context.Context, symbol string, limit int) ([]Article, error)
}
