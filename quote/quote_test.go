package quote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocks-trader/models"
)

func TestParseStatic(t *testing.T) {
	s, err := ParseStatic(" aapl=190.50, MSFT=410 ,")
	require.NoError(t, err)
	require.Len(t, s, 2)

	q, err := s.Lookup(context.Background(), "Aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.True(t, decimal.RequireFromString("190.5").Equal(q.Price))

	_, err = s.Lookup(context.Background(), "GOOG")
	assert.ErrorIs(t, err, models.ErrUnknownSymbol)
}

func TestParseStatic_Invalid(t *testing.T) {
	for _, input := range []string{"AAPL", "AAPL=abc", "AAPL=0", "AAPL=-3"} {
		_, err := ParseStatic(input)
		assert.Error(t, err, input)
	}
}

func TestStatic_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Static{"AAPL": {Symbol: "AAPL"}}.Lookup(ctx, "AAPL")
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
}

func TestWithTimeout_SlowProvider(t *testing.T) {
	slow := ProviderFunc(func(ctx context.Context, _ string) (*Quote, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	start := time.Now()
	_, err := WithTimeout(slow, 20*time.Millisecond).Lookup(context.Background(), "AAPL")
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWithTimeout_PassesThroughErrors(t *testing.T) {
	unknown := ProviderFunc(func(context.Context, string) (*Quote, error) {
		return nil, models.ErrUnknownSymbol
	})
	_, err := WithTimeout(unknown, time.Second).Lookup(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, models.ErrUnknownSymbol)

	boom := errors.New("boom")
	failing := ProviderFunc(func(context.Context, string) (*Quote, error) { return nil, boom })
	_, err = WithTimeout(failing, time.Second).Lookup(context.Background(), "AAPL")
	assert.ErrorIs(t, err, boom)
}

func TestWithTimeout_ZeroDisables(t *testing.T) {
	s := Static{}
	assert.Equal(t, Provider(s), WithTimeout(s, 0))
}
