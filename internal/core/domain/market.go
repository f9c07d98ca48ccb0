package domain

import "github.com/shopspring/decimal"

// MarketToken is one tradable asset as listed for the arena.
type MarketToken struct {
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name"`
	Address        string          `json:"address"`
	PriceUSD       decimal.Decimal `json:"price_usd"`
	PriceChange24h float64         `json:"price_change_24h"`
	Volume24h      float64         `json:"volume_24h"`
	LiquidityUSD   float64         `json:"liquidity_usd"`
	Icon           string          `json:"icon,omitempty"`
}

// WagerStats summarizes the store for operators.
type WagerStats struct {
	Open        int64           `json:"open"`
	Won         int64           `json:"won"`
	Lost        int64           `json:"lost"`
	Quarantined int64           `json:"quarantined"`
	PoolBalance decimal.Decimal `json:"pool_balance_sol"`
}
