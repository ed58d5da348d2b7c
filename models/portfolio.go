package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of decimal places money columns keep
// (numeric(20,4)).
const PriceScale = 4

// Holding is a user's open position in one symbol. A row only exists while
// Shares is positive.
type Holding struct {
	UserID uint            `gorm:"primaryKey;autoIncrement:false"`
	Symbol string          `gorm:"primaryKey;size:16"`
	Shares int64           `gorm:"not null"`
	Price  decimal.Decimal `gorm:"type:numeric(20,4);not null"` // price of the latest buy
}

// Transaction is an append-only ledger entry. Shares is positive for a buy
// and negative for a sell.
type Transaction struct {
	ID           uint            `gorm:"primaryKey"`
	UserID       uint            `gorm:"index;not null"`
	Symbol       string          `gorm:"size:16;not null"`
	Shares       int64           `gorm:"not null"`
	Price        decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	TransactedAt time.Time       `gorm:"autoCreateTime;index"`
}

// IsBuy reports whether the entry added shares.
func (t Transaction) IsBuy() bool { return t.Shares > 0 }

// Total is the absolute cash amount that moved.
func (t Transaction) Total() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Shares)).Abs()
}
