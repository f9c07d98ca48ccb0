package domain

import (
	"fmt"
	"sort"
	"strings"
)

// defaultAssets is the tradable pool: symbol -> Solana mint address.
var defaultAssets = map[string]string{
	"BONK":     "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
	"WIF":      "EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm",
	"POPCAT":   "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYkW2hr",
	"MEW":      "MEW1gQWJ3nEXg2qgERiKu7FAFj79PHvQVREabe85bCR",
	"BOME":     "ukHH6c7mMyiWCf1b9pnWe25TSpkDDt3H5pQZgZ74J82",
	"PNUT":     "2qEHjDLDLbuBgRYvsxhc5D6uDWAivNFZGan56P1tpump",
	"GOAT":     "HeLp6NuQkmYB4p5Vo2RPtEWB6UB8xXPp30RzUHZpump",
	"ACT":      "Az6oGenF48P6Y28w6dweY3x8g8F6Qc8hX5P5Q4w5pump",
	"FARTCOIN": "9BB6NFEBSJbQdxqze4psJq7jyCFhtKbYEGqAmWi1pump",
	"MOODENG":  "ED5nyyWEzpPPiWimP8vYm7sD7TD3LAt3Q3gRTWHzPJBY",
	"MYRO":     "HhJpBhRRn4g56VsyLuT8DL5Bv31HkXqsrahTTUCZeZg4",
	"JUP":      "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN",
	"SLERF":    "7BgBvyjr2HDURj8nddpGTLJ0pmzVf1f1k3tgEAg1pump",
	"WEN":      "WENWENvqqNya429ubCdR81ZmD69brwQaaBYY6p3LCpk",
	"MANEKI":   "25hAyBQfoDhfWx9ay6rarbgvWGwDdNqcHsXS3jQ3mUAj",
	"MICHI":    "5mbK36SZ7J19An8jFco7R446d8Wq4t4q2vWqK16pump",
	"BILLY":    "3B5wuUrMEi5y1D8BAu2e71rUUGxxTmgk7c06VvRjJ7m7",
	"MOTHER":   "3S8qX1MsMqRqeW4govDEWQKz4zwoTncWuQK60G37pump",
	"PONKE":    "5z3EqYQo9HiCEs3R84RCDMy256X9lFcwZh279qksfthp",
	"GIGACHAD": "63LfDmNb3MQ8mw9MtZ2To9bEA2M71kZUUGq5tiJxcqj9",
}

// NormalizeSymbol upper-cases a ticker and strips a leading "$".
func NormalizeSymbol(symbol string) string {
	s := strings.TrimSpace(symbol)
	s = strings.TrimPrefix(s, "$")
	return strings.ToUpper(strings.TrimSpace(s))
}

// AssetRegistry maps tickers to venue addresses. Immutable after construction.
type AssetRegistry struct {
	addresses map[string]string
	symbols   map[string]string
}

// NewAssetRegistry builds the registry from the default pool plus overrides.
// Override keys are normalized; an empty address removes a symbol.
func NewAssetRegistry(overrides map[string]string) *AssetRegistry {
	r := &AssetRegistry{
		addresses: make(map[string]string, len(defaultAssets)+len(overrides)),
		symbols:   make(map[string]string, len(defaultAssets)+len(overrides)),
	}
	for sym, addr := range defaultAssets {
		r.addresses[sym] = addr
	}
	for sym, addr := range overrides {
		sym = NormalizeSymbol(sym)
		addr = strings.TrimSpace(addr)
		if addr == "" {
			delete(r.addresses, sym)
			continue
		}
		r.addresses[sym] = addr
	}
	for sym, addr := range r.addresses {
		r.symbols[addr] = sym
	}
	return r
}

// Resolve returns the venue address for symbol.
func (r *AssetRegistry) Resolve(symbol string) (string, error) {
	sym := NormalizeSymbol(symbol)
	addr, ok := r.addresses[sym]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAsset, sym)
	}
	return addr, nil
}

// SymbolFor returns the ticker registered for a venue address.
func (r *AssetRegistry) SymbolFor(address string) (string, bool) {
	sym, ok := r.symbols[address]
	return sym, ok
}

// Addresses returns every registered address ordered by symbol.
func (r *AssetRegistry) Addresses() []string {
	syms := r.Symbols()
	out := make([]string, 0, len(syms))
	for _, s := range syms {
		out = append(out, r.addresses[s])
	}
	return out
}

// Symbols returns every registered ticker in sorted order.
func (r *AssetRegistry) Symbols() []string {
	out := make([]string, 0, len(r.addresses))
	for s := range r.addresses {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
