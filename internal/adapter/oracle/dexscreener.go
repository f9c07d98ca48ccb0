package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Jamarblack/Degen-Arena/config"
	"github.com/Jamarblack/Degen-Arena/internal/core/domain"

	"github.com/shopspring/decimal"
)

// maxBatchAddresses is the most token addresses DexScreener accepts per request.
const maxBatchAddresses = 30

// DexScreener implements ports.PriceOracle and ports.MarketLister against the
// public DexScreener token endpoint.
type DexScreener struct {
	baseURL        string
	referenceQuote string
	minLiquidity   float64
	assets         *domain.AssetRegistry
	httpClient     *http.Client
}

// NewDexScreener creates an oracle client. The registry decides which tickers
// are priceable.
func NewDexScreener(cfg config.OracleConfig, assets *domain.AssetRegistry) *DexScreener {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DexScreener{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		referenceQuote: strings.ToUpper(cfg.ReferenceQuote),
		minLiquidity:   cfg.MinLiquidityUSD,
		assets:         assets,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

type tokensResponse struct {
	Pairs []pair `json:"pairs"`
}

type pair struct {
	BaseToken struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	QuoteToken struct {
		Symbol string `json:"symbol"`
	} `json:"quoteToken"`
	PriceUSD    string `json:"priceUsd"`
	PriceChange struct {
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	Liquidity *struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	Info *struct {
		ImageURL string `json:"imageUrl"`
	} `json:"info"`
}

// GetPrice returns the USD price of symbol. Unmapped tickers wrap
// domain.ErrUnknownAsset; every venue failure wraps domain.ErrPriceUnavailable.
func (d *DexScreener) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	addr, err := d.assets.Resolve(symbol)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := d.fetchTokens(ctx, []string{addr})
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", domain.ErrPriceUnavailable, domain.NormalizeSymbol(symbol), err)
	}

	p, ok := d.selectPair(resp.Pairs)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s: no pairs listed", domain.ErrPriceUnavailable, domain.NormalizeSymbol(symbol))
	}

	price, err := parsePrice(p.PriceUSD)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", domain.ErrPriceUnavailable, domain.NormalizeSymbol(symbol), err)
	}
	return price, nil
}

// selectPair prefers the first pair quoted in the reference currency, falling
// back to the first pair listed.
func (d *DexScreener) selectPair(pairs []pair) (pair, bool) {
	if len(pairs) == 0 {
		return pair{}, false
	}
	for _, p := range pairs {
		if strings.EqualFold(p.QuoteToken.Symbol, d.referenceQuote) {
			return p, true
		}
	}
	return pairs[0], true
}

// ListMarket returns one quote per registered asset with enough liquidity in
// the reference currency, sorted by symbol.
func (d *DexScreener) ListMarket(ctx context.Context) ([]domain.MarketToken, error) {
	addrs := d.assets.Addresses()
	seen := make(map[string]struct{}, len(addrs))
	tokens := make([]domain.MarketToken, 0, len(addrs))

	for start := 0; start < len(addrs); start += maxBatchAddresses {
		end := min(start+maxBatchAddresses, len(addrs))
		resp, err := d.fetchTokens(ctx, addrs[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: list market: %v", domain.ErrPriceUnavailable, err)
		}

		for _, p := range resp.Pairs {
			if !strings.EqualFold(p.QuoteToken.Symbol, d.referenceQuote) {
				continue
			}
			if p.Liquidity == nil || p.Liquidity.USD <= d.minLiquidity {
				continue
			}
			sym, ok := d.assets.SymbolFor(p.BaseToken.Address)
			if !ok {
				sym = domain.NormalizeSymbol(p.BaseToken.Symbol)
			}
			if _, dup := seen[sym]; dup {
				continue
			}
			price, err := parsePrice(p.PriceUSD)
			if err != nil {
				continue
			}
			seen[sym] = struct{}{}

			tok := domain.MarketToken{
				Symbol:         sym,
				Name:           p.BaseToken.Name,
				Address:        p.BaseToken.Address,
				PriceUSD:       price,
				PriceChange24h: p.PriceChange.H24,
				Volume24h:      p.Volume.H24,
				LiquidityUSD:   p.Liquidity.USD,
			}
			if p.Info != nil {
				tok.Icon = p.Info.ImageURL
			}
			tokens = append(tokens, tok)
		}
	}

	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Symbol < tokens[j].Symbol })
	return tokens, nil
}

func (d *DexScreener) fetchTokens(ctx context.Context, addrs []string) (*tokensResponse, error) {
	url := d.baseURL + "/latest/dex/tokens/" + strings.Join(addrs, ",")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out tokensResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, fmt.Errorf("missing priceUsd")
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid priceUsd %q", raw)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive priceUsd %q", raw)
	}
	return price, nil
}
