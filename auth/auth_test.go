package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"stocks-trader/auth"
	"stocks-trader/database"
	"stocks-trader/models"
	"stocks-trader/testutil"
)

func newService(t *testing.T) (*auth.Service, *database.Store) {
	t.Helper()
	store := testutil.NewStore(t)
	return auth.NewService(store, auth.Bcrypt{Cost: bcrypt.MinCost}, decimal.NewFromInt(10000)), store
}

func TestRegister(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "s3cret", "s3cret")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "s3cret", user.Hash)
	assert.True(t, decimal.NewFromInt(10000).Equal(user.Cash))

	stored, err := store.FindUserByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.ID)
	assert.True(t, decimal.NewFromInt(10000).Equal(stored.Cash))
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name                             string
		username, password, confirmation string
		want                             error
	}{
		{"blank username", "", "pw", "pw", models.ErrBlankField},
		{"whitespace username", "   ", "pw", "pw", models.ErrBlankField},
		{"blank password", "bob", "", "pw", models.ErrBlankField},
		{"blank confirmation", "bob", "pw", "", models.ErrBlankField},
		{"mismatch", "bob", "pw", "pW", models.ErrPasswordMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, tt.password, tt.confirmation)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, models.IsValidation(err))
		})
	}

	_, err := svc.Register(ctx, strings.Repeat("a", 129), "pw", "pw")
	assert.True(t, models.IsValidation(err))
	_, err = svc.Register(ctx, "bad\x00name", "pw", "pw")
	assert.True(t, models.IsValidation(err))
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, "alice", "one", "one")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "two", "two")
	require.ErrorIs(t, err, models.ErrDuplicateUsername)
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "username already exists", ve.Msg)

	stored, err := store.FindUserByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, first.Hash, stored.Hash)

	_, err = svc.Register(ctx, "ALICE", "three", "three")
	assert.NoError(t, err, "usernames are case-sensitive")
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	registered, err := svc.Register(ctx, "alice", "s3cret", "s3cret")
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, errWrongPassword := svc.Authenticate(ctx, "alice", "nope")
	_, errUnknownUser := svc.Authenticate(ctx, "mallory", "s3cret")
	assert.ErrorIs(t, errWrongPassword, models.ErrAuthentication)
	assert.ErrorIs(t, errUnknownUser, models.ErrAuthentication)
	assert.Equal(t, errWrongPassword.Error(), errUnknownUser.Error())

	_, err = svc.Authenticate(ctx, "", "s3cret")
	assert.True(t, models.IsValidation(err))
	_, err = svc.Authenticate(ctx, "alice", "")
	assert.True(t, models.IsValidation(err))
}

func TestBcrypt_LongPasswords(t *testing.T) {
	h := auth.Bcrypt{Cost: bcrypt.MinCost}
	long := strings.Repeat("p", 100)

	hash, err := h.Hash(long)
	require.NoError(t, err)
	assert.True(t, h.Verify(long, hash))
	assert.False(t, h.Verify("short", hash))
}
