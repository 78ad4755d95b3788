package newsapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cryptosys/internal/adapters/config"
	"cryptosys/internal/domain/news"
	"cryptosys/internal/metrics"
	"cryptosys/pkg/errors"
	"cryptosys/pkg/logger"
)

const (
	providerName = "newsapi"
	maxBodyBytes = 4 << 20
)

// Client searches articles through the NewsAPI /v2/everything endpoint
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

var _ news.Provider = (*Client)(nil)

func NewClient(cfg config.NewsAPIConfig) *Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.Timeout})
}

func NewClientWithHTTP(cfg config.NewsAPIConfig, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		log:        logger.Get().With("component", "newsapi_client"),
	}
}

type everythingResponse struct {
	Status       string    `json:"status"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
	TotalResults int       `json:"totalResults"`
	Articles     []article `json:"articles"`
}

type article struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

// Search returns up to limit English articles for "{symbol} cryptocurrency",
// newest first. A 2xx answer that is not status "ok" is treated as no news.
func (c *Client) Search(ctx context.Context, symbol string, limit int) ([]news.Article, error) {
	params := url.Values{}
	params.Set("q", symbol+" cryptocurrency")
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/everything?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	start := time.Now()
	body, err := c.do(req)
	metrics.RecordProviderCall(providerName, "everything", time.Since(start), err)
	if err != nil {
		return nil, errors.Wrapf(err, "newsapi search for %s", symbol)
	}

	var resp everythingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.log.Warn("Malformed news response, treating as empty", "symbol", symbol, "error", err)
		return nil, nil
	}
	if resp.Status != "ok" {
		c.log.Warn("News API returned non-ok status",
			"symbol", symbol,
			"status", resp.Status,
			"code", resp.Code,
			"message", resp.Message,
		)
		return nil, nil
	}

	articles := make([]news.Article, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if a.Title == "" || a.Title == "[Removed]" {
			continue
		}
		published, _ := time.Parse(time.RFC3339, a.PublishedAt)
		articles = append(articles, news.Article{
			Title:       a.Title,
			Description: a.Description,
			Content:     a.Content,
			SourceName:  a.Source.Name,
			Author:      a.Author,
			URL:         a.URL,
			PublishedAt: published,
		})
	}
	if len(articles) > limit && limit > 0 {
		articles = articles[:limit]
	}

	c.log.Debug("Found news articles", "symbol", symbol, "count", len(articles))
	return articles, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUnavailable, "request failed: %v", errors.Transport(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUnavailable, "read body: %v", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, errors.Wrapf(errors.ErrUnavailable, "status %d", resp.StatusCode)
	case resp.StatusCode >= 300:
		var apiErr everythingResponse
		_ = json.Unmarshal(body, &apiErr)
		return nil, errors.Wrapf(errors.ErrExternal, "status %d: %s %s", resp.StatusCode, apiErr.Code, apiErr.Message)
	}
	return body, nil
}
