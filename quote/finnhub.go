package quote

import (
	"context"
	"fmt"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"
	"github.com/shopspring/decimal"

	"stocks-trader/models"
)

const FinnhubBaseURL = "https://finnhub.io/api/v1"

// Finnhub looks quotes up through the official Finnhub SDK.
type Finnhub struct {
	api *finnhub.DefaultApiService
	*options
}

func NewFinnhub(apiKey string, opts ...Option) *Finnhub {
	o := newOptions(FinnhubBaseURL, opts)

	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", apiKey)
	cfg.HTTPClient = o.httpClient
	cfg.Servers = finnhub.ServerConfigurations{{URL: o.baseURL}}

	return &Finnhub{api: finnhub.NewAPIClient(cfg).DefaultApi, options: o}
}

func (c *Finnhub) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	sym := Normalize(symbol)
	if sym == "" {
		return nil, models.ErrUnknownSymbol
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", models.ErrProviderUnavailable, err)
	}
	res, _, err := c.api.Quote(ctx).Symbol(sym).Execute()
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", sym).Msg("Finnhub quote failed")
		return nil, fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}
	// Finnhub answers unknown symbols with an all-zero quote.
	price := decimal.NewFromFloat32(res.GetC())
	if !price.IsPositive() {
		return nil, models.ErrUnknownSymbol
	}

	return &Quote{Symbol: sym, Name: c.name(ctx, sym), Price: price}, nil
}

func (c *Finnhub) name(ctx context.Context, sym string) string {
	if err := c.limiter.Wait(ctx); err != nil {
		return sym
	}
	profile, _, err := c.api.CompanyProfile2(ctx).Symbol(sym).Execute()
	if err != nil {
		c.logger.Debug().Err(err).Str("symbol", sym).Msg("Finnhub profile failed")
		return sym
	}
	if name := profile.GetName(); name != "" {
		return name
	}
	return sym
}
