package oracle

import (
	"context"
	"time"

	"github.com/Jamarblack/Degen-Arena/internal/core/domain"
	"github.com/Jamarblack/Degen-Arena/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Source is the upstream the cache decorates.
type Source interface {
	ports.PriceOracle
	ports.MarketLister
}

// Cached fronts a Source with short-lived Redis caches. Cache failures are
// logged and fall through to the source.
type Cached struct {
	source  Source
	prices  ports.PriceCache
	markets ports.MarketCache
	ttl     time.Duration
	log     zerolog.Logger
}

// NewCached wraps source. A zero ttl disables caching.
func NewCached(source Source, prices ports.PriceCache, markets ports.MarketCache, ttl time.Duration, log zerolog.Logger) *Cached {
	return &Cached{source: source, prices: prices, markets: markets, ttl: ttl, log: log}
}

// GetPrice returns a cached quote when fresh, otherwise fetches and caches it.
func (c *Cached) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	sym := domain.NormalizeSymbol(symbol)
	if c.ttl <= 0 {
		return c.source.GetPrice(ctx, sym)
	}

	price, ok, err := c.prices.Get(ctx, sym)
	switch {
	case err != nil:
		c.log.Warn().Err(err).Str("symbol", sym).Msg("price cache read failed")
	case ok:
		return price, nil
	}

	price, err = c.source.GetPrice(ctx, sym)
	if err != nil {
		return decimal.Zero, err
	}
	if err := c.prices.Set(ctx, sym, price, c.ttl); err != nil {
		c.log.Warn().Err(err).Str("symbol", sym).Msg("price cache write failed")
	}
	return price, nil
}

// ListMarket returns the cached listing when fresh, otherwise refreshes it.
func (c *Cached) ListMarket(ctx context.Context) ([]domain.MarketToken, error) {
	if c.ttl <= 0 {
		return c.source.ListMarket(ctx)
	}

	tokens, ok, err := c.markets.Get(ctx)
	switch {
	case err != nil:
		c.log.Warn().Err(err).Msg("market cache read failed")
	case ok:
		return tokens, nil
	}

	tokens, err = c.source.ListMarket(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.markets.Set(ctx, tokens, c.ttl); err != nil {
		c.log.Warn().Err(err).Msg("market cache write failed")
	}
	return tokens, nil
}
