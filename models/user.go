package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultStartingCash is the balance a freshly registered user receives.
var DefaultStartingCash = decimal.NewFromInt(10000)

type User struct {
	ID        uint            `gorm:"primaryKey"`
	Username  string          `gorm:"uniqueIndex;size:128;not null"`
	Hash      string          `gorm:"not null"`
	Cash      decimal.Decimal `gorm:"type:numeric(20,4);not null;default:10000"`
	CreatedAt time.Time
}
