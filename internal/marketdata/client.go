// Package marketdata fetches stock quotes from the external price feed and
// assembles the per-tick price snapshots the broker settles against.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/stonkshq/stonks/internal/config"
	"github.com/stonkshq/stonks/pkg/models"
)

// FetchError indicates that the quote request failed at the transport level
// or came back with a non-200 status. It is transient; callers retry it.
type FetchError struct {
	Symbol     models.Symbol
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to fetch quote for %s: %v", e.Symbol, e.Err)
	}
	return fmt.Sprintf("failed to fetch quote for %s: status %d", e.Symbol, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError indicates that the quote response body could not be interpreted:
// malformed JSON, or a missing/non-numeric price field.
type ParseError struct {
	Symbol models.Symbol
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse quote for %s: %v", e.Symbol, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// QuoteClient fetches one symbol's current market price.
type QuoteClient interface {
	Quote(ctx context.Context, symbol models.Symbol) (decimal.Decimal, error)
}

// FinnhubClient fetches quotes from the Finnhub HTTP API. It issues exactly
// one request per call; retry policy lives in the caller.
type FinnhubClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	tokenHeader string
}

var _ QuoteClient = (*FinnhubClient)(nil)

// NewFinnhubClient creates a quote client for the configured endpoint.
func NewFinnhubClient(cfg config.FinnhubConfig) *FinnhubClient {
	return &FinnhubClient{
		httpClient:  &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		tokenHeader: cfg.TokenHeader,
	}
}

// quoteResponse is the subset of the Finnhub quote payload we consume. "c" is
// the current price.
type quoteResponse struct {
	Current json.Number `json:"c"`
}

// Quote fetches the current market price for one symbol.
func (c *FinnhubClient) Quote(ctx context.Context, symbol models.Symbol) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s?symbol=%s", c.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, &FetchError{Symbol: symbol, Err: err}
	}
	req.Header.Set(c.tokenHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, &FetchError{Symbol: symbol, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, &FetchError{Symbol: symbol, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, &FetchError{Symbol: symbol, Err: err}
	}

	var payload quoteResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Zero, &ParseError{Symbol: symbol, Err: err}
	}
	if payload.Current == "" {
		return decimal.Zero, &ParseError{Symbol: symbol, Err: fmt.Errorf("price field missing")}
	}

	price, err := decimal.NewFromString(payload.Current.String())
	if err != nil {
		return decimal.Zero, &ParseError{Symbol: symbol, Err: err}
	}

	return price, nil
}
