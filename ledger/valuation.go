package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Position is one holding valued at the current quote. When the quote could
// not be fetched Priced is false and Price/Value are zero.
type Position struct {
	Symbol string
	Name   string
	Shares int64
	Price  decimal.Decimal
	Value  decimal.Decimal
	Priced bool
}

type Valuation struct {
	Cash       decimal.Decimal
	Positions  []Position
	StockValue decimal.Decimal
	GrandTotal decimal.Decimal
}

// Unpriced counts positions left out of StockValue.
func (v *Valuation) Unpriced() int {
	n := 0
	for _, p := range v.Positions {
		if !p.Priced {
			n++
		}
	}
	return n
}

// Valuation values every holding at its current quote. Holdings whose quote
// fails are still listed but contribute nothing to the totals.
func (s *Service) Valuation(ctx context.Context, userID uint) (*Valuation, error) {
	cash, err := s.store.Cash(ctx, userID)
	if err != nil {
		return nil, err
	}
	holdings, err := s.store.Holdings(ctx, userID)
	if err != nil {
		return nil, err
	}

	v := &Valuation{Cash: cash, StockValue: decimal.Zero}
	for _, h := range holdings {
		pos := Position{Symbol: h.Symbol, Name: h.Symbol, Shares: h.Shares}

		q, err := s.lookup(ctx, h.Symbol)
		if err != nil {
			s.logger.Warn().Err(err).
				Uint("user_id", userID).
				Str("symbol", h.Symbol).
				Msg("holding left out of valuation")
			v.Positions = append(v.Positions, pos)
			continue
		}

		pos.Name = q.Name
		pos.Price = q.Price
		pos.Value = q.Price.Mul(decimal.NewFromInt(h.Shares))
		pos.Priced = true
		v.StockValue = v.StockValue.Add(pos.Value)
		v.Positions = append(v.Positions, pos)
	}
	v.GrandTotal = cash.Add(v.StockValue)
	return v, nil
}
