package pricing

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shai-hub/brokai/internal/config"
)

// QuoteClientInterface defines the interface for the quote API client.
type QuoteClientInterface interface {
	GetQuote(symbol string) (decimal.Decimal, error)
	LastPrice(symbol string) (decimal.Decimal, bool)
}

// Client fetches delayed last prices from a Yahoo-style quote API.
// It implements the QuoteClientInterface and portfolio.PriceSource.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure Client implements the interface
var _ QuoteClientInterface = (*Client)(nil)

// NewClient creates a new quote API client.
func NewClient(cfg *config.Quotes, logger *zap.Logger) *Client {
	client := resty.New().SetBaseURL(cfg.BaseURL)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:  client,
		logger:  logger,
		limiter: limiter,
	}
}

// quoteResponse mirrors the /v7/finance/quote payload, reduced to the fields
// the engine needs.
type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string  `json:"symbol"`
			RegularMarketPrice float64 `json:"regularMarketPrice"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// GetQuote fetches the most recent market price for one symbol.
func (c *Client) GetQuote(symbol string) (decimal.Decimal, error) {
	var quote quoteResponse

	req := c.client.R().
		SetResult(&quote).
		SetQueryParam("symbols", symbol).
		SetHeader("Content-Type", "application/json")
	ctx := context.Background()

	resp, err := c.doRequest(ctx, "GET", "/v7/finance/quote", req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get quote for %s: %w", symbol, err)
	}

	result := resp.Result().(*quoteResponse)
	for _, r := range result.QuoteResponse.Result {
		if r.Symbol == symbol {
			return decimal.NewFromFloat(r.RegularMarketPrice), nil
		}
	}

	return decimal.Zero, fmt.Errorf("no quote data for symbol %s", symbol)
}

// LastPrice adapts GetQuote to the engine's best-effort price lookup: any
// failure is logged and reported as an absent price, never as an error.
func (c *Client) LastPrice(symbol string) (decimal.Decimal, bool) {
	price, err := c.GetQuote(symbol)
	if err != nil {
		c.logger.Warn("Price lookup failed, reporting absent price",
			zap.String("symbol", symbol), zap.Error(err))
		return decimal.Zero, false
	}
	return price, true
}
