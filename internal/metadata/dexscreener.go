// Package metadata implements the external token-metadata collaborators:
// the DexScreener lookup and the CoinGecko enrichment source.
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

const DefaultBaseURL = "https://api.dexscreener.com"

// Published DexScreener limits: 300 req/min on the pairs endpoints,
// 60 req/min on search.
const (
	pairsPerMinute  = 300
	searchPerMinute = 60
)

// DexScreener is a rate-limited client for the DexScreener token API. It
// implements domain.MetadataLookup.
type DexScreener struct {
	baseURL       string
	httpClient    *http.Client
	pairsLimiter  *rate.Limiter
	searchLimiter *rate.Limiter
}

// NewDexScreener creates a client against the given API root; pass "" for
// the public endpoint.
func NewDexScreener(baseURL string) *DexScreener {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &DexScreener{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		pairsLimiter:  rate.NewLimiter(rate.Limit(pairsPerMinute)/60, 5),
		searchLimiter: rate.NewLimiter(rate.Limit(searchPerMinute)/60, 2),
	}
}

// apiPair is one trading pair as returned by the API. Prices come back as
// strings; liquidity and volume as nested objects.
type apiPair struct {
	ChainID   string `json:"chainId"`
	DexID     string `json:"dexId"`
	BaseToken struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	Info struct {
		ImageURL string `json:"imageUrl"`
	} `json:"info"`
}

type searchResponse struct {
	Pairs []apiPair `json:"pairs"`
}

// SearchSymbol returns candidate on-chain identities for a base symbol.
// Pairs whose base token does not match the symbol exactly, or that sit on
// a chain outside the canonical vocabulary, are discarded. Candidates
// aggregate per (chain, contract): one entry per contract with summed
// liquidity and venue count.
func (d *DexScreener) SearchSymbol(ctx context.Context, symbol string) ([]domain.TokenCandidate, error) {
	sym := identity.BaseSymbol(symbol)
	if sym == "" {
		return nil, nil
	}
	if err := d.searchLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("dexscreener: search limiter: %w", err)
	}

	params := url.Values{}
	params.Set("q", sym)
	body, err := d.doGet(ctx, "/latest/dex/search?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("dexscreener: search %s: %w", sym, err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("dexscreener: decode search results: %w", err)
	}

	byContract := make(map[string]*domain.TokenCandidate)
	var order []string
	for _, p := range resp.Pairs {
		if !strings.EqualFold(p.BaseToken.Symbol, sym) {
			continue
		}
		chain, ok := identity.NormalizeChain(p.ChainID)
		if !ok {
			continue
		}
		addr := identity.NormalizeAddress(p.BaseToken.Address)
		if addr == "" {
			continue
		}
		key := identity.AssetKey(chain, addr)
		c, seen := byContract[key]
		if !seen {
			c = &domain.TokenCandidate{
				Chain:           chain,
				ContractAddress: addr,
				Symbol:          sym,
				Name:            p.BaseToken.Name,
				ImageURL:        p.Info.ImageURL,
			}
			byContract[key] = c
			order = append(order, key)
		}
		c.LiquidityUSD += p.Liquidity.USD
		c.PairCount++
	}

	out := make([]domain.TokenCandidate, 0, len(order))
	for _, key := range order {
		out = append(out, *byContract[key])
	}
	return out, nil
}

type pairsResponse struct {
	Pairs []apiPair `json:"pairs"`
}

// TokenLiquidity aggregates the liquidity picture for one contract across
// every venue DexScreener knows about. Returns domain.ErrNotFound when the
// API has no pairs for the contract.
func (d *DexScreener) TokenLiquidity(ctx context.Context, chain, address string) (domain.TokenLiquidity, error) {
	c, ok := identity.NormalizeChain(chain)
	if !ok {
		return domain.TokenLiquidity{}, fmt.Errorf("dexscreener: %w: chain %q", domain.ErrNotFound, chain)
	}
	addr := identity.NormalizeAddress(address)
	if err := d.pairsLimiter.Wait(ctx); err != nil {
		return domain.TokenLiquidity{}, fmt.Errorf("dexscreener: pairs limiter: %w", err)
	}

	path := fmt.Sprintf("/latest/dex/tokens/%s", url.PathEscape(addr))
	body, err := d.doGet(ctx, path)
	if err != nil {
		return domain.TokenLiquidity{}, fmt.Errorf("dexscreener: token %s: %w", addr, err)
	}

	var resp pairsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.TokenLiquidity{}, fmt.Errorf("dexscreener: decode token pairs: %w", err)
	}

	var liq domain.TokenLiquidity
	for _, p := range resp.Pairs {
		pc, ok := identity.NormalizeChain(p.ChainID)
		if !ok || pc != c {
			continue
		}
		if identity.NormalizeAddress(p.BaseToken.Address) != addr {
			continue
		}
		liq.LiquidityUSD += p.Liquidity.USD
		liq.Volume24hUSD += p.Volume.H24
		liq.VenueCount++
	}
	if liq.VenueCount == 0 {
		return domain.TokenLiquidity{}, fmt.Errorf("dexscreener: %w: %s on %s", domain.ErrNotFound, addr, c)
	}
	// listed on more than one venue with real depth counts as verified
	liq.Verified = liq.VenueCount >= 2 && liq.LiquidityUSD >= 10_000
	return liq, nil
}

func (d *DexScreener) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
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
