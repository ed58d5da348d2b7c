package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"stocks-trader/models"
)

const AlphaVantageBaseURL = "https://www.alphavantage.co"

type AlphaVantageResponse struct {
	GlobalQuote struct {
		Symbol string `json:"01. symbol"`
		Price  string `json:"05. price"`
	} `json:"Global Quote"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

type alphaVantageSearch struct {
	BestMatches []struct {
		Symbol string `json:"1. symbol"`
		Name   string `json:"2. name"`
	} `json:"bestMatches"`
}

// AlphaVantage looks quotes up through the Alpha Vantage query API.
type AlphaVantage struct {
	apiKey string
	*options
}

func NewAlphaVantage(apiKey string, opts ...Option) *AlphaVantage {
	return &AlphaVantage{apiKey: apiKey, options: newOptions(AlphaVantageBaseURL, opts)}
}

// APIError is a non-2xx answer from an upstream API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("quote API error: %s (status: %d)", e.Message, e.StatusCode)
}

func (c *AlphaVantage) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	sym := Normalize(symbol)
	if sym == "" {
		return nil, models.ErrUnknownSymbol
	}

	var result AlphaVantageResponse
	params := url.Values{"function": {"GLOBAL_QUOTE"}, "symbol": {sym}}
	if err := c.get(ctx, params, &result); err != nil {
		return nil, err
	}
	if result.Note != "" || result.Information != "" {
		c.logger.Warn().Str("symbol", sym).Msg("Alpha Vantage throttled the request")
		return nil, fmt.Errorf("%w: rate limited", models.ErrProviderUnavailable)
	}
	if result.ErrorMessage != "" || result.GlobalQuote.Price == "" {
		return nil, models.ErrUnknownSymbol
	}

	price, err := decimal.NewFromString(result.GlobalQuote.Price)
	if err != nil {
		return nil, fmt.Errorf("%w: bad price %q", models.ErrProviderUnavailable, result.GlobalQuote.Price)
	}
	if !price.IsPositive() {
		return nil, models.ErrUnknownSymbol
	}
	if result.GlobalQuote.Symbol != "" {
		sym = strings.ToUpper(result.GlobalQuote.Symbol)
	}

	return &Quote{Symbol: sym, Name: c.name(ctx, sym), Price: price}, nil
}

// name resolves the company name, falling back to the symbol.
func (c *AlphaVantage) name(ctx context.Context, sym string) string {
	var result alphaVantageSearch
	params := url.Values{"function": {"SYMBOL_SEARCH"}, "keywords": {sym}}
	if err := c.get(ctx, params, &result); err != nil {
		c.logger.Debug().Err(err).Str("symbol", sym).Msg("symbol search failed")
		return sym
	}
	for _, m := range result.BestMatches {
		if strings.EqualFold(m.Symbol, sym) && m.Name != "" {
			return m.Name
		}
	}
	return sym
}

// get performs a rate-limited GET request
func (c *AlphaVantage) get(ctx context.Context, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit wait: %v", models.ErrProviderUnavailable, err)
	}

	params.Set("apikey", c.apiKey)
	reqURL := c.baseURL + "/query?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("function", params.Get("function")).Msg("Alpha Vantage request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %v", models.ErrProviderUnavailable,
			&APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))})
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to parse response: %v", models.ErrProviderUnavailable, err)
	}
	return nil
}
