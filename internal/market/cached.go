package market

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CachedOracle decorates an oracle with a Redis price cache. Current prices
// are cached briefly to absorb bursts of portfolio valuations; historical
// closes never change, so they get a long TTL. Cache failures degrade to
// the upstream oracle, never to a request failure.
type CachedOracle struct {
	oracle        PriceOracle
	rdb           *redis.Client
	quoteTTL      time.Duration
	historicalTTL time.Duration
	log           zerolog.Logger
}

// NewCachedOracle wraps an oracle with a Redis cache
func NewCachedOracle(oracle PriceOracle, rdb *redis.Client, quoteTTL, historicalTTL time.Duration, log zerolog.Logger) *CachedOracle {
	return &CachedOracle{
		oracle:        oracle,
		rdb:           rdb,
		quoteTTL:      quoteTTL,
		historicalTTL: historicalTTL,
		log:           log.With().Str("component", "price_cache").Logger(),
	}
}

// CurrentPrice serves from the cache when fresh, otherwise asks the
// upstream oracle and caches the answer
func (c *CachedOracle) CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	key := "price:current:" + ticker
	if price, ok := c.get(ctx, key); ok {
		return price, nil
	}

	price, err := c.oracle.CurrentPrice(ctx, ticker)
	if err != nil {
		return decimal.Zero, err
	}
	c.set(ctx, key, price, c.quoteTTL)
	return price, nil
}

// HistoricalPrice serves immutable daily closes from the cache
func (c *CachedOracle) HistoricalPrice(ctx context.Context, ticker string, on time.Time) (decimal.Decimal, error) {
	key := "price:historical:" + ticker + ":" + on.Format("2006-01-02")
	if price, ok := c.get(ctx, key); ok {
		return price, nil
	}

	price, err := c.oracle.HistoricalPrice(ctx, ticker, on)
	if err != nil {
		return decimal.Zero, err
	}
	c.set(ctx, key, price, c.historicalTTL)
	return price, nil
}

func (c *CachedOracle) get(ctx context.Context, key string) (decimal.Decimal, bool) {
	raw, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return decimal.Zero, false
	}
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return decimal.Zero, false
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return price, true
}

func (c *CachedOracle) set(ctx context.Context, key string, price decimal.Decimal, ttl time.Duration) {
	if err := c.rdb.Set(ctx, key, price.String(), ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
