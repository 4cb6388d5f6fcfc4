package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/minhleeee123/MantleFlow-sub001/internal/adapters/config"
	"github.com/minhleeee123/MantleFlow-sub001/internal/domain/market"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/errors"
)

// Provider is the upstream market-data contract consumed by the pricing
// service. Defined here so tests can substitute a fake upstream.
type Provider interface {
	FetchPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
	FetchCandles(ctx context.Context, symbol string, limit int) ([]market.Candle, error)
	FetchVolume24h(ctx context.Context, symbol string) (decimal.Decimal, error)
	FetchSentiment(ctx context.Context, symbol string) (decimal.Decimal, error)
	FetchGasPrice(ctx context.Context) (decimal.Decimal, error)
}

// Client is an HTTP JSON client for the market data oracle
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Compile-time check that we implement the interface
var _ Provider = (*Client)(nil)

// NewClient creates a new oracle client
func NewClient(cfg config.OracleConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type priceResponse struct {
	Prices map[string]decimal.Decimal `json:"prices"`
}

// FetchPrices performs one batched price lookup for all requested symbols.
// The upstream may answer a subset; missing symbols are simply absent from
// the returned map, never an error.
func (c *Client) FetchPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	if len(symbols) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	q := url.Values{}
	q.Set("symbols", strings.Join(symbols, ","))

	var resp priceResponse
	if err := c.getJSON(ctx, "/prices", q, &resp); err != nil {
		return nil, err
	}

	if resp.Prices == nil {
		resp.Prices = map[string]decimal.Decimal{}
	}
	return resp.Prices, nil
}

type candleResponse struct {
	Candles []market.Candle `json:"candles"`
}

// FetchCandles returns up to limit most recent OHLCV bars for a symbol
func (c *Client) FetchCandles(ctx context.Context, symbol string, limit int) ([]market.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("limit", fmt.Sprintf("%d", limit))

	var resp candleResponse
	if err := c.getJSON(ctx, "/candles", q, &resp); err != nil {
		return nil, err
	}

	return resp.Candles, nil
}

type valueResponse struct {
	Value decimal.Decimal `json:"value"`
}

// FetchVolume24h returns the rolling 24h traded volume for a symbol
func (c *Client) FetchVolume24h(ctx context.Context, symbol string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("symbol", symbol)

	var resp valueResponse
	if err := c.getJSON(ctx, "/volume", q, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.Value, nil
}

// FetchSentiment returns the aggregated sentiment score for a symbol
func (c *Client) FetchSentiment(ctx context.Context, symbol string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("symbol", symbol)

	var resp valueResponse
	if err := c.getJSON(ctx, "/sentiment", q, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.Value, nil
}

// FetchGasPrice returns the current network gas price in gwei
func (c *Client) FetchGasPrice(ctx context.Context) (decimal.Decimal, error) {
	var resp valueResponse
	if err := c.getJSON(ctx, "/gas", nil, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.Value, nil
}

// getJSON performs a GET request and decodes the JSON body into dest
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build oracle request")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(errors.ErrUnavailable, "oracle request %s: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(errors.ErrUnavailable, "oracle responded %d on %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return errors.Wrapf(err, "failed to decode oracle response from %s", path)
	}

	return nil
}
