package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// PriceCache implements ports.PriceCache with Redis hashes at "price:{SYMBOL}"
// holding fields "price" (decimal string) and "ts" (unix nanoseconds).
type PriceCache struct {
	client *goredis.Client
}

// NewPriceCache creates a Redis-backed price cache.
func NewPriceCache(client *goredis.Client) *PriceCache {
	return &PriceCache{client: client}
}

// Get returns the cached price. ok is false on a miss.
func (c *PriceCache) Get(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	vals, err := c.client.HGetAll(ctx, pricePrefix+symbol).Result()
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("redis get price %s: %w", symbol, err)
	}
	raw, ok := vals["price"]
	if !ok {
		return decimal.Zero, false, nil
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("redis parse price %s: %w", symbol, err)
	}
	return price, true, nil
}

// Set stores the price and stamps it with the current time.
func (c *PriceCache) Set(ctx context.Context, symbol string, price decimal.Decimal, ttl time.Duration) error {
	key := pricePrefix + symbol
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"price": price.String(),
		"ts":    strconv.FormatInt(time.Now().UnixNano(), 10),
	})
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set price %s: %w", symbol, err)
	}
	return nil
}
