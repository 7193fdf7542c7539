package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"arbscan/internal/domain"
	"arbscan/internal/identity"
)

const DefaultCoinGeckoBaseURL = "https://api.coingecko.com"

// Public CoinGecko allowance is roughly 30 req/min; one Enrich spends two.
const coinGeckoPerMinute = 30

// A coin ranked inside this market-cap window counts as verified.
const verifiedRankCeiling = 250

// CoinGecko is a rate-limited client for the CoinGecko coins API used as an
// enrichment source. It implements domain.EnrichmentProvider.
type CoinGecko struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewCoinGecko creates a client against the given API root; pass "" for the
// public endpoint. apiKey is optional and sent as the demo-tier header when
// set.
func NewCoinGecko(baseURL, apiKey string) *CoinGecko {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoBaseURL
	}
	return &CoinGecko{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(coinGeckoPerMinute)/60, 2),
	}
}

type cgSearchResponse struct {
	Coins []cgCoin `json:"coins"`
}

type cgCoin struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	MarketCapRank int    `json:"market_cap_rank"`
}

// cgCoinDetail carries the platform listing for one coin. Platforms maps
// CoinGecko platform identifiers to contract addresses; AssetPlatformID
// names the coin's home platform.
type cgCoinDetail struct {
	ID              string            `json:"id"`
	Symbol          string            `json:"symbol"`
	AssetPlatformID string            `json:"asset_platform_id"`
	Platforms       map[string]string `json:"platforms"`
}

// coinGeckoChains translates CoinGecko platform identifiers onto the
// canonical chain vocabulary.
var coinGeckoChains = map[string]string{
	"ethereum":            "ethereum",
	"binance-smart-chain": "bsc",
	"polygon-pos":         "polygon",
	"arbitrum-one":        "arbitrum",
	"optimistic-ethereum": "optimism",
	"base":                "base",
	"avalanche":           "avalanche",
	"fantom":              "fantom",
	"solana":              "solana",
	"sui":                 "sui",
	"aptos":               "aptos",
	"zksync":              "zksync",
	"scroll":              "scroll",
	"linea":               "linea",
	"blast":               "blast",
}

// Enrich resolves a base symbol through the CoinGecko catalog: a symbol
// search picks the best-ranked exact match, then the coin's platform listing
// supplies chain and contract. Returns domain.ErrNotFound when the catalog
// has no exact match or no usable platform.
func (c *CoinGecko) Enrich(ctx context.Context, symbol string) (domain.Enrichment, error) {
	sym := identity.BaseSymbol(symbol)
	if sym == "" {
		return domain.Enrichment{}, fmt.Errorf("coingecko: %w: empty symbol", domain.ErrNotFound)
	}

	coin, err := c.search(ctx, sym)
	if err != nil {
		return domain.Enrichment{}, err
	}
	detail, err := c.coinDetail(ctx, coin.ID)
	if err != nil {
		return domain.Enrichment{}, err
	}

	chain, addr, ok := platformIdentity(detail)
	if !ok {
		return domain.Enrichment{}, fmt.Errorf("coingecko: %w: %s has no usable platform", domain.ErrNotFound, sym)
	}
	return domain.Enrichment{
		Symbol:          sym,
		Chain:           chain,
		ContractAddress: identity.NormalizeAddress(addr),
		Verified:        coin.MarketCapRank > 0 && coin.MarketCapRank <= verifiedRankCeiling,
	}, nil
}

// search returns the best-ranked coin whose symbol matches exactly. Partial
// matches are catalog noise and never adopted.
func (c *CoinGecko) search(ctx context.Context, sym string) (cgCoin, error) {
	params := url.Values{}
	params.Set("query", sym)
	body, err := c.doGet(ctx, "/api/v3/search?"+params.Encode())
	if err != nil {
		return cgCoin{}, fmt.Errorf("coingecko: search %s: %w", sym, err)
	}

	var resp cgSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return cgCoin{}, fmt.Errorf("coingecko: decode search results: %w", err)
	}

	var best cgCoin
	found := false
	for _, coin := range resp.Coins {
		if !strings.EqualFold(coin.Symbol, sym) {
			continue
		}
		if !found || betterRank(coin.MarketCapRank, best.MarketCapRank) {
			best = coin
			found = true
		}
	}
	if !found {
		return cgCoin{}, fmt.Errorf("coingecko: %w: no exact match for %s", domain.ErrNotFound, sym)
	}
	return best, nil
}

// betterRank prefers a lower market-cap rank; unranked coins lose to any
// ranked one.
func betterRank(candidate, current int) bool {
	if current <= 0 {
		return candidate > 0
	}
	return candidate > 0 && candidate < current
}

func (c *CoinGecko) coinDetail(ctx context.Context, id string) (cgCoinDetail, error) {
	path := fmt.Sprintf(
		"/api/v3/coins/%s?localization=false&tickers=false&market_data=false&community_data=false&developer_data=false&sparkline=false",
		url.PathEscape(id),
	)
	body, err := c.doGet(ctx, path)
	if err != nil {
		return cgCoinDetail{}, fmt.Errorf("coingecko: coin %s: %w", id, err)
	}

	var detail cgCoinDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return cgCoinDetail{}, fmt.Errorf("coingecko: decode coin detail: %w", err)
	}
	return detail, nil
}

// platformIdentity picks the chain and contract for a coin: the home
// platform when it maps onto the canonical vocabulary, otherwise the single
// mappable platform listing. More than one mappable platform without a home
// is ambiguous and yields nothing.
func platformIdentity(detail cgCoinDetail) (chain, addr string, ok bool) {
	if home, known := coinGeckoChains[detail.AssetPlatformID]; known {
		if a := detail.Platforms[detail.AssetPlatformID]; a != "" {
			return home, a, true
		}
	}
	n := 0
	for platform, a := range detail.Platforms {
		mapped, known := coinGeckoChains[platform]
		if !known || a == "" {
			continue
		}
		chain, addr = mapped, a
		n++
	}
	if n != 1 {
		return "", "", false
	}
	return chain, addr, true
}

func (c *CoinGecko) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("limiter: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
