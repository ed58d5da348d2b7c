package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stocks-trader/models"
)

// Migrate creates or updates the users, holdings and transactions tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Holding{},
		&models.Transaction{},
	); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}
	return nil
}

// Store is the only code that touches the three ledger tables. Each mutating
// method runs in a single database transaction holding the user's row lock,
// so cash, holdings and the transaction log always change together.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// FindUserByName returns models.ErrUserNotFound when no user matches exactly.
func (s *Store) FindUserByName(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (s *Store) FindUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// InsertUser stores a new user. A username collision, including one lost to a
// concurrent insert, is reported as models.ErrDuplicateUsername.
func (s *Store) InsertUser(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).Create(user).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return models.ErrDuplicateUsername
	}
	if _, findErr := s.FindUserByName(ctx, user.Username); findErr == nil {
		return models.ErrDuplicateUsername
	}
	return fmt.Errorf("insert user: %w", err)
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func (s *Store) Cash(ctx context.Context, userID uint) (decimal.Decimal, error) {
	user, err := s.FindUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return user.Cash, nil
}

// Holding returns nil without error when the user holds no shares of symbol.
func (s *Store) Holding(ctx context.Context, userID uint, symbol string) (*models.Holding, error) {
	return findHolding(s.db.WithContext(ctx), userID, symbol)
}

func (s *Store) Holdings(ctx context.Context, userID uint) ([]models.Holding, error) {
	var holdings []models.Holding
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("symbol").
		Find(&holdings).Error
	if err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	return holdings, nil
}

func (s *Store) Transactions(ctx context.Context, userID uint) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("transacted_at, id").
		Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txns, nil
}

// ApplyBuy debits shares*price from the user's cash, adds the shares to the
// holding and appends a positive transaction. It fails with
// models.ErrInsufficientFunds, leaving everything untouched, when the cost
// exceeds the cash balance.
func (s *Store) ApplyBuy(ctx context.Context, userID uint, symbol string, shares int64, price decimal.Decimal) (*models.Transaction, error) {
	cost := price.Mul(decimal.NewFromInt(shares))
	var entry *models.Transaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		if cost.GreaterThan(user.Cash) {
			return models.ErrInsufficientFunds
		}

		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			Update("cash", user.Cash.Sub(cost)).Error; err != nil {
			return fmt.Errorf("debit cash: %w", err)
		}

		holding, err := findHolding(tx, userID, symbol)
		if err != nil {
			return err
		}
		if holding == nil {
			holding = &models.Holding{UserID: userID, Symbol: symbol, Shares: shares, Price: price}
			if err := tx.Create(holding).Error; err != nil {
				return fmt.Errorf("create holding: %w", err)
			}
		} else if err := tx.Model(&models.Holding{}).
			Where("user_id = ? AND symbol = ?", userID, symbol).
			Updates(map[string]interface{}{"shares": holding.Shares + shares, "price": price}).Error; err != nil {
			return fmt.Errorf("update holding: %w", err)
		}

		entry, err = appendTransaction(tx, userID, symbol, shares, price)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ApplySell credits shares*price to the user's cash, removes the shares from
// the holding (deleting it when none remain) and appends a negative
// transaction. It fails with models.ErrInsufficientHoldings when the user
// holds fewer shares than requested.
func (s *Store) ApplySell(ctx context.Context, userID uint, symbol string, shares int64, price decimal.Decimal) (*models.Transaction, error) {
	proceeds := price.Mul(decimal.NewFromInt(shares))
	var entry *models.Transaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}

		holding, err := findHolding(tx, userID, symbol)
		if err != nil {
			return err
		}
		if holding == nil || holding.Shares < shares {
			return models.ErrInsufficientHoldings
		}

		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			Update("cash", user.Cash.Add(proceeds)).Error; err != nil {
			return fmt.Errorf("credit cash: %w", err)
		}

		where := tx.Where("user_id = ? AND symbol = ?", userID, symbol)
		if holding.Shares == shares {
			err = where.Delete(&models.Holding{}).Error
		} else {
			err = where.Model(&models.Holding{}).Update("shares", holding.Shares-shares).Error
		}
		if err != nil {
			return fmt.Errorf("update holding: %w", err)
		}

		entry, err = appendTransaction(tx, userID, symbol, -shares, price)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// lockUser reads the user row with FOR UPDATE so concurrent trades by the same
// user serialize. sqlite ignores the clause and serializes writers instead.
func lockUser(tx *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}
	return &user, nil
}

func findHolding(db *gorm.DB, userID uint, symbol string) (*models.Holding, error) {
	var holding models.Holding
	err := db.Where("user_id = ? AND symbol = ?", userID, symbol).Take(&holding).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find holding: %w", err)
	}
	return &holding, nil
}

func appendTransaction(tx *gorm.DB, userID uint, symbol string, shares int64, price decimal.Decimal) (*models.Transaction, error) {
	entry := &models.Transaction{UserID: userID, Symbol: symbol, Shares: shares, Price: price}
	if err := tx.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("record transaction: %w", err)
	}
	return entry, nil
}
