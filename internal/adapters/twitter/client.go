package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cryptosys/internal/adapters/config"
	"cryptosys/internal/domain/market"
	"cryptosys/internal/domain/social"
	"cryptosys/internal/metrics"
	"cryptosys/pkg/errors"
	"cryptosys/pkg/logger"
)

const (
	providerName = "twitter"
	maxBodyBytes = 4 << 20
)

// Client searches recent posts through the Twitter API v2
type Client struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
	log         *logger.Logger
}

var _ social.Provider = (*Client)(nil)

func NewClient(cfg config.TwitterConfig) *Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.Timeout})
}

func NewClientWithHTTP(cfg config.TwitterConfig, httpClient *http.Client) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		bearerToken: cfg.BearerToken,
		httpClient:  httpClient,
		log:         logger.Get().With("component", "twitter_client"),
	}
}

type searchResponse struct {
	Data []tweet `json:"data"`
	Meta struct {
		ResultCount int `json:"result_count"`
	} `json:"meta"`
}

type tweet struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	AuthorID      string `json:"author_id"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		RetweetCount int `json:"retweet_count"`
		LikeCount    int `json:"like_count"`
	} `json:"public_metrics"`
}

// SearchQuery builds "(BTC OR $BTC OR bitcoin) -is:retweet lang:en"
func SearchQuery(symbol string) string {
	terms := []string{symbol, "$" + symbol}
	if name, ok := market.CoinName(symbol); ok {
		terms = append(terms, name)
	}
	return "(" + strings.Join(terms, " OR ") + ") -is:retweet lang:en"
}

// Recent returns up to limit posts created after since.
// A 429 answer is reported as no posts.
func (c *Client) Recent(ctx context.Context, symbol string, limit int, since time.Time) ([]social.Post, error) {
	maxResults := limit
	if maxResults < 10 {
		maxResults = 10
	}
	if maxResults > 100 {
		maxResults = 100
	}

	params := url.Values{}
	params.Set("query", SearchQuery(symbol))
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("start_time", since.UTC().Format(time.RFC3339))
	params.Set("tweet.fields", "created_at,public_metrics,author_id")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/2/tweets/search/recent?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create twitter request")
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordProviderCall(providerName, "search_recent", time.Since(start), err)
		return nil, errors.Wrapf(errors.ErrUnavailable, "twitter request failed: %v", errors.Transport(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		metrics.RecordProviderCall(providerName, "search_recent", time.Since(start), errors.ErrRateLimitExceeded)
		c.log.Warn("Twitter API rate limit reached", "symbol", symbol)
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := errors.Wrapf(errors.ErrExternal, "twitter status %d: %s", resp.StatusCode, string(body))
		metrics.RecordProviderCall(providerName, "search_recent", time.Since(start), err)
		return nil, err
	}

	var payload searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&payload); err != nil {
		metrics.RecordProviderCall(providerName, "search_recent", time.Since(start), err)
		return nil, errors.Wrapf(errors.ErrMalformedResponse, "decode twitter response: %v", err)
	}
	metrics.RecordProviderCall(providerName, "search_recent", time.Since(start), nil)

	posts := make([]social.Post, 0, len(payload.Data))
	for _, t := range payload.Data {
		created, err := time.Parse(time.RFC3339, t.CreatedAt)
		if err != nil || created.Before(since) {
			continue
		}
		posts = append(posts, social.Post{
			ID:        t.ID,
			Text:      t.Text,
			AuthorID:  t.AuthorID,
			Likes:     t.PublicMetrics.LikeCount,
			Reposts:   t.PublicMetrics.RetweetCount,
			URL:       fmt.Sprintf("https://twitter.com/i/web/status/%s", t.ID),
			CreatedAt: created,
		})
		if len(posts) == limit {
			break
		}
	}

	c.log.Debug("Fetched posts", "symbol", symbol, "count", len(posts))
	return posts, nil
}
