// Package quote looks up current stock prices.
//
// Every Provider reports an unresolvable symbol as models.ErrUnknownSymbol and
// any transport, rate-limit or timeout problem as models.ErrProviderUnavailable,
// so callers never need to know which upstream is configured.
package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stocks-trader/models"
)

// Quote is a point-in-time price for a symbol.
type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

// Provider resolves a symbol to its current quote.
type Provider interface {
	Lookup(ctx context.Context, symbol string) (*Quote, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, symbol string) (*Quote, error)

func (f ProviderFunc) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	return f(ctx, symbol)
}

// Normalize upper-cases and trims a ticker symbol.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Static serves fixed prices. Useful for local development without an API key.
type Static map[string]Quote

// ParseStatic reads "AAPL=190.5,MSFT=410" into a Static provider.
func ParseStatic(pairs string) (Static, error) {
	s := Static{}
	for _, pair := range strings.Split(pairs, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		sym, price, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid static quote %q", pair)
		}
		p, err := decimal.NewFromString(strings.TrimSpace(price))
		if err != nil || !p.IsPositive() {
			return nil, fmt.Errorf("invalid static price %q", pair)
		}
		sym = Normalize(sym)
		s[sym] = Quote{Symbol: sym, Name: sym, Price: p}
	}
	return s, nil
}

func (s Static) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}
	q, ok := s[Normalize(symbol)]
	if !ok {
		return nil, models.ErrUnknownSymbol
	}
	return &q, nil
}

type timeoutProvider struct {
	next    Provider
	timeout time.Duration
}

// WithTimeout bounds every lookup on p by d.
func WithTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		return p
	}
	return &timeoutProvider{next: p, timeout: d}
}

func (t *timeoutProvider) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	q, err := t.next.Lookup(ctx, symbol)
	if err != nil {
		if errors.Is(err, models.ErrUnknownSymbol) || errors.Is(err, models.ErrProviderUnavailable) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrProviderUnavailable, ctx.Err())
		}
		return nil, err
	}
	return q, nil
}
