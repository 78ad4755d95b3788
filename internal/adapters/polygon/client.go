package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cryptosys/internal/adapters/config"
	"cryptosys/internal/adapters/ratelimit"
	"cryptosys/internal/domain/market"
	"cryptosys/internal/metrics"
	"cryptosys/pkg/errors"
	"cryptosys/pkg/logger"
)

const (
	providerName = "polygon"
	maxBodyBytes = 4 << 20
)

// Client fetches crypto aggregates from the Polygon.io REST API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	log        *logger.Logger
}

var _ market.PriceProvider = (*Client)(nil)

// NewClient creates a Polygon client from config
func NewClient(cfg config.PolygonConfig) *Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.Timeout})
}

// NewClientWithHTTP allows a custom http.Client (tests, proxies)
func NewClientWithHTTP(cfg config.PolygonConfig, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		limiter:    ratelimit.NewLimiter(providerName, cfg.RequestsPerMinute),
		log:        logger.Get().With("component", "polygon_client"),
	}
}

// Ticker returns the Polygon crypto ticker for a symbol quoted in USD
func Ticker(symbol string) string {
	return "X:" + symbol + "USD"
}

type aggsResponse struct {
	Ticker       string   `json:"ticker"`
	Status       string   `json:"status"`
	ResultsCount int      `json:"resultsCount"`
	Results      []aggBar `json:"results"`
	Error        string   `json:"error"`
	Message      string   `json:"message"`
}

type aggBar struct {
	Open      decimal.Decimal `json:"o"`
	High      decimal.Decimal `json:"h"`
	Low       decimal.Decimal `json:"l"`
	Close     decimal.Decimal `json:"c"`
	Volume    decimal.Decimal `json:"v"`
	VWAP      decimal.Decimal `json:"vw"`
	Timestamp int64           `json:"t"`
	Trades    int64           `json:"n"`
}

// Aggregates returns daily bars for symbol between from and to (inclusive dates).
// Transport failures and non-2xx answers are returned as errors; an
// undecodable body yields an empty series.
func (c *Client) Aggregates(ctx context.Context, symbol string, from, to time.Time) (*market.Series, error) {
	series := &market.Series{
		Symbol: symbol,
		Ticker: Ticker(symbol),
		From:   from.Format(market.DateLayout),
		To:     to.Format(market.DateLayout),
	}

	days := int(to.Sub(from).Hours()/24 + 0.5)
	if days < 1 {
		days = 1
	}

	endpoint := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s",
		c.baseURL, url.PathEscape(series.Ticker), series.From, series.To)
	params := url.Values{}
	params.Set("adjusted", "true")
	params.Set("sort", "asc")
	params.Set("limit", fmt.Sprintf("%d", days))

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	body, err := c.get(ctx, endpoint+"?"+params.Encode())
	metrics.RecordProviderCall(providerName, "aggs", time.Since(start), err)
	if err != nil {
		return nil, errors.Wrapf(err, "polygon aggregates for %s", symbol)
	}

	var resp aggsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.log.Warn("Malformed aggregates response, treating as empty",
			"symbol", symbol,
			"error", err,
		)
		return series, nil
	}

	if strings.EqualFold(resp.Status, "ERROR") {
		return nil, errors.Wrapf(errors.ErrExternal, "polygon aggregates for %s: %s%s", symbol, resp.Error, resp.Message)
	}

	series.Bars = make([]market.Bar, 0, len(resp.Results))
	for _, r := range resp.Results {
		series.Bars = append(series.Bars, market.Bar{
			Timestamp: time.UnixMilli(r.Timestamp).UTC(),
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
			VWAP:      r.VWAP,
			Trades:    r.Trades,
		})
	}

	c.log.Debug("Fetched aggregates",
		"symbol", symbol,
		"from", series.From,
		"to", series.To,
		"bars", len(series.Bars),
	)

	return series, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

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
		return nil, errors.Wrapf(errors.ErrExternal, "status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
