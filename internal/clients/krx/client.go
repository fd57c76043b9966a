package krx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Client fetches daily market data from the quote service. The rate
// limiter is injected so callers own the throttling policy; the client
// itself keeps no module-level timing state.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// New creates a new market data client.
func New(baseURL string, limiter *rate.Limiter, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: limiter,
		log:     log.With().Str("client", "krx").Logger(),
	}
}

// DailyQuote is one day of market data for a stock or index.
type DailyQuote struct {
	Date       string  `json:"date"`
	Close      float64 `json:"close"`
	TradeQty   int64   `json:"trade_qty"`
	MarketCap  *int64  `json:"market_cap,omitempty"`
	StockCount *int64  `json:"stock_count,omitempty"`
}

// quoteResponse is the service's envelope for quote listings.
type quoteResponse struct {
	List  []DailyQuote `json:"list"`
	Error *string      `json:"error,omitempty"`
}

// DailyQuotes fetches per-stock daily quotes over [start, end].
func (c *Client) DailyQuotes(ctx context.Context, stockCode, start, end string) ([]DailyQuote, error) {
	return c.fetch(ctx, "/quotes/daily", url.Values{
		"stock_code": {stockCode},
		"start":      {start},
		"end":        {end},
	})
}

// IndexQuotes fetches benchmark index quotes over [start, end].
func (c *Client) IndexQuotes(ctx context.Context, indexCode, start, end string) ([]DailyQuote, error) {
	return c.fetch(ctx, "/quotes/index", url.Values{
		"index_code": {indexCode},
		"start":      {start},
		"end":        {end},
	})
}

func (c *Client) fetch(ctx context.Context, endpoint string, params url.Values) ([]DailyQuote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	reqURL := c.baseURL + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Str("endpoint", endpoint).Msg("Fetching quotes")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote service returned status %d", resp.StatusCode)
	}

	var parsed quoteResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("quote service error: %s", *parsed.Error)
	}

	return parsed.List, nil
}
