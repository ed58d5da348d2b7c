// Package auth registers users and verifies their credentials.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"stocks-trader/models"
)

// CredentialStore persists users by name.
type CredentialStore interface {
	FindUserByName(ctx context.Context, username string) (*models.User, error)
	InsertUser(ctx context.Context, user *models.User) error
}

// Hasher hashes passwords and checks them against stored hashes.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// Bcrypt is the production Hasher.
type Bcrypt struct {
	Cost int
}

// bcrypt only looks at the first 72 bytes and newer versions reject longer input.
func truncate(password string) []byte {
	b := []byte(password)
	if len(b) > 72 {
		b = b[:72]
	}
	return b
}

func (b Bcrypt) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword(truncate(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (b Bcrypt) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncate(password)) == nil
}

type Service struct {
	store        CredentialStore
	hasher       Hasher
	startingCash decimal.Decimal
}

func NewService(store CredentialStore, hasher Hasher, startingCash decimal.Decimal) *Service {
	return &Service{store: store, hasher: hasher, startingCash: startingCash}
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// validateUsername checks that a username is safe for storage.
func validateUsername(username string) error {
	if len(username) > 128 {
		return models.Invalid("username", "username must be 128 characters or fewer")
	}
	for _, c := range username {
		if c < 0x20 || c == 0x7f {
			return models.Invalid("username", "username contains invalid control characters")
		}
	}
	return nil
}

// Register creates a user with the configured starting cash. Usernames are
// compared case-sensitively.
func (s *Service) Register(ctx context.Context, username, password, confirmation string) (*models.User, error) {
	if blank(username) {
		return nil, &models.ValidationError{Field: "username", Msg: "username is required", Err: models.ErrBlankField}
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if blank(password) || blank(confirmation) {
		return nil, &models.ValidationError{Field: "password", Msg: "password and confirmation are required", Err: models.ErrBlankField}
	}
	if password != confirmation {
		return nil, &models.ValidationError{Field: "confirmation", Msg: "passwords do not match", Err: models.ErrPasswordMismatch}
	}

	duplicate := &models.ValidationError{Field: "username", Msg: "username already exists", Err: models.ErrDuplicateUsername}
	_, err := s.store.FindUserByName(ctx, username)
	if err == nil {
		return nil, duplicate
	}
	if !errors.Is(err, models.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Username: username, Hash: hash, Cash: s.startingCash}
	if err := s.store.InsertUser(ctx, user); err != nil {
		if errors.Is(err, models.ErrDuplicateUsername) {
			return nil, duplicate
		}
		return nil, err
	}
	return user, nil
}

// Authenticate returns the user whose password matches. An unknown username
// and a wrong password produce the same models.ErrAuthentication.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if blank(username) {
		return nil, &models.ValidationError{Field: "username", Msg: "must provide username", Err: models.ErrBlankField}
	}
	if blank(password) {
		return nil, &models.ValidationError{Field: "password", Msg: "must provide password", Err: models.ErrBlankField}
	}

	user, err := s.store.FindUserByName(ctx, username)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, models.ErrAuthentication
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(password, user.Hash) {
		return nil, models.ErrAuthentication
	}
	return user, nil
}
