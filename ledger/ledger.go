// Package ledger keeps a user's cash, holdings and transaction log
// consistent across buys and sells, and values the resulting portfolio.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"stocks-trader/logging"
	"stocks-trader/models"
	"stocks-trader/quote"
)

// Store persists the ledger. ApplyBuy and ApplySell must be atomic and must
// re-check funds/holdings under a lock that serializes trades per user.
type Store interface {
	Cash(ctx context.Context, userID uint) (decimal.Decimal, error)
	Holding(ctx context.Context, userID uint, symbol string) (*models.Holding, error)
	Holdings(ctx context.Context, userID uint) ([]models.Holding, error)
	Transactions(ctx context.Context, userID uint) ([]models.Transaction, error)
	ApplyBuy(ctx context.Context, userID uint, symbol string, shares int64, price decimal.Decimal) (*models.Transaction, error)
	ApplySell(ctx context.Context, userID uint, symbol string, shares int64, price decimal.Decimal) (*models.Transaction, error)
}

type Service struct {
	store  Store
	quotes quote.Provider
	logger *logging.Logger
}

func NewService(store Store, quotes quote.Provider, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewSilent()
	}
	return &Service{store: store, quotes: quotes, logger: logger}
}

func validateOrder(symbol string, shares int64) (string, error) {
	sym := quote.Normalize(symbol)
	if sym == "" {
		return "", models.Invalid("symbol", "must provide symbol")
	}
	if shares <= 0 {
		return "", models.Invalid("shares", "shares must be a positive integer")
	}
	return sym, nil
}

// lookup returns the quote rounded to the stored price scale, keeping only
// the two provider error kinds.
func (s *Service) lookup(ctx context.Context, symbol string) (*quote.Quote, error) {
	q, err := s.quotes.Lookup(ctx, symbol)
	if err == nil {
		// Prices are stored with PriceScale places.
		priced := *q
		priced.Price = q.Price.Round(models.PriceScale)
		if !priced.Price.IsPositive() {
			return nil, models.ErrUnknownSymbol
		}
		return &priced, nil
	}
	if errors.Is(err, models.ErrUnknownSymbol) || errors.Is(err, models.ErrProviderUnavailable) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
}

// Quote looks up symbol with the same validation and error kinds as a trade.
func (s *Service) Quote(ctx context.Context, symbol string) (*quote.Quote, error) {
	sym := quote.Normalize(symbol)
	if sym == "" {
		return nil, models.Invalid("symbol", "must provide symbol")
	}
	return s.lookup(ctx, sym)
}

// Buy purchases shares of symbol at the current quote.
func (s *Service) Buy(ctx context.Context, userID uint, symbol string, shares int64) (*models.Transaction, error) {
	sym, err := validateOrder(symbol, shares)
	if err != nil {
		return nil, err
	}

	q, err := s.lookup(ctx, sym)
	if err != nil {
		return nil, err
	}

	entry, err := s.store.ApplyBuy(ctx, userID, sym, shares, q.Price)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Uint("user_id", userID).
		Str("symbol", sym).
		Int64("shares", shares).
		Str("price", q.Price.String()).
		Msg("bought")
	return entry, nil
}

// Sell disposes of shares of symbol at the current quote. The holding is
// checked before the quote is fetched and again inside the store.
func (s *Service) Sell(ctx context.Context, userID uint, symbol string, shares int64) (*models.Transaction, error) {
	sym, err := validateOrder(symbol, shares)
	if err != nil {
		return nil, err
	}

	holding, err := s.store.Holding(ctx, userID, sym)
	if err != nil {
		return nil, err
	}
	if holding == nil || holding.Shares < shares {
		return nil, models.ErrInsufficientHoldings
	}

	q, err := s.lookup(ctx, sym)
	if err != nil {
		return nil, err
	}

	entry, err := s.store.ApplySell(ctx, userID, sym, shares, q.Price)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Uint("user_id", userID).
		Str("symbol", sym).
		Int64("shares", shares).
		Str("price", q.Price.String()).
		Msg("sold")
	return entry, nil
}

func (s *Service) History(ctx context.Context, userID uint) ([]models.Transaction, error) {
	return s.store.Transactions(ctx, userID)
}

func (s *Service) Holdings(ctx context.Context, userID uint) ([]models.Holding, error) {
	return s.store.Holdings(ctx, userID)
}
