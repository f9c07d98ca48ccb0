package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Jamarblack/Degen-Arena/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// MarketCache implements ports.MarketCache, holding the last market listing
// as one JSON blob.
type MarketCache struct {
	client *goredis.Client
}

// NewMarketCache creates a Redis-backed market listing cache.
func NewMarketCache(client *goredis.Client) *MarketCache {
	return &MarketCache{client: client}
}

// Get returns the cached listing. ok is false on a miss.
func (c *MarketCache) Get(ctx context.Context) ([]domain.MarketToken, bool, error) {
	val, err := c.client.Get(ctx, marketKey).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis market get: %w", err)
	}
	var tokens []domain.MarketToken
	if err := json.Unmarshal(val, &tokens); err != nil {
		return nil, false, fmt.Errorf("redis market decode: %w", err)
	}
	return tokens, true, nil
}

// Set stores the listing with TTL.
func (c *MarketCache) Set(ctx context.Context, tokens []domain.MarketToken, ttl time.Duration) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("redis market encode: %w", err)
	}
	if err := c.client.Set(ctx, marketKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis market set: %w", err)
	}
	return nil
}
