package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"stocks-trader/logging"
)

const DefaultCacheTTL = 5 * time.Minute

// Cached serves quotes from redis and falls through to the wrapped provider
// on a miss. Redis problems are logged and never fail a lookup.
type Cached struct {
	next   Provider
	rdb    *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

func NewCached(next Provider, rdb *redis.Client, ttl time.Duration, logger *logging.Logger) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = logging.NewSilent()
	}
	return &Cached{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(symbol string) string {
	return fmt.Sprintf("stock:%s:quote", symbol)
}

func (c *Cached) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	sym := Normalize(symbol)
	key := cacheKey(sym)

	cached, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		var q Quote
		if jsonErr := json.Unmarshal([]byte(cached), &q); jsonErr == nil {
			return &q, nil
		}
		c.logger.Warn().Str("key", key).Msg("discarding unreadable cached quote")
	case !errors.Is(err, redis.Nil):
		c.logger.Warn().Err(err).Str("symbol", sym).Msg("quote cache read failed")
	}

	q, err := c.next.Lookup(ctx, sym)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(q)
	if err == nil {
		err = c.rdb.Set(ctx, key, data, c.ttl).Err()
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", sym).Msg("failed to cache quote")
	}
	return q, nil
}
