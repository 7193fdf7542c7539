package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbscan/internal/domain"
)

const searchBody = `{
  "pairs": [
    {"chainId": "ethereum", "dexId": "uniswap",
     "baseToken": {"address": "0xAAA", "name": "Pepe", "symbol": "PEPE"},
     "liquidity": {"usd": 500000}, "volume": {"h24": 90000}},
    {"chainId": "ethereum", "dexId": "sushiswap",
     "baseToken": {"address": "0xAAA", "name": "Pepe", "symbol": "PEPE"},
     "liquidity": {"usd": 250000}, "volume": {"h24": 40000}},
    {"chainId": "bsc", "dexId": "pancakeswap",
     "baseToken": {"address": "0xBBB", "name": "Pepe Clone", "symbol": "PEPE"},
     "liquidity": {"usd": 1000}, "volume": {"h24": 100}},
    {"chainId": "ethereum", "dexId": "uniswap",
     "baseToken": {"address": "0xCCC", "name": "Not Pepe", "symbol": "PEPE2"},
     "liquidity": {"usd": 9999999}, "volume": {"h24": 1}},
    {"chainId": "dogechain", "dexId": "dogeswap",
     "baseToken": {"address": "0xDDD", "name": "Pepe", "symbol": "PEPE"},
     "liquidity": {"usd": 123}, "volume": {"h24": 1}}
  ]
}`

func TestSearchSymbolAggregatesPerContract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/dex/search", r.URL.Path)
		assert.Equal(t, "PEPE", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	c := NewDexScreener(srv.URL)
	got, err := c.SearchSymbol(context.Background(), "pepe/usdt")
	require.NoError(t, err)

	require.Len(t, got, 2, "symbol mismatches and unknown chains are discarded")
	assert.Equal(t, "ethereum", got[0].Chain)
	assert.Equal(t, "0xaaa", got[0].ContractAddress)
	assert.Equal(t, 750000.0, got[0].LiquidityUSD, "same contract across venues is summed")
	assert.Equal(t, 2, got[0].PairCount)
	assert.Equal(t, "bsc", got[1].Chain)
	assert.Equal(t, "0xbbb", got[1].ContractAddress)
}

func TestTokenLiquidityAggregatesVenues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/dex/tokens/0xaaa", r.URL.Path)
		_, _ = w.Write([]byte(`{
  "pairs": [
    {"chainId": "ethereum",
     "baseToken": {"address": "0xAAA", "symbol": "PEPE"},
     "liquidity": {"usd": 500000}, "volume": {"h24": 90000}},
    {"chainId": "ethereum",
     "baseToken": {"address": "0xAAA", "symbol": "PEPE"},
     "liquidity": {"usd": 250000}, "volume": {"h24": 40000}},
    {"chainId": "bsc",
     "baseToken": {"address": "0xAAA", "symbol": "PEPE"},
     "liquidity": {"usd": 99999}, "volume": {"h24": 1}}
  ]
}`))
	}))
	defer srv.Close()

	c := NewDexScreener(srv.URL)
	got, err := c.TokenLiquidity(context.Background(), "eth", "0xAAA")
	require.NoError(t, err)

	assert.Equal(t, 750000.0, got.LiquidityUSD, "only the requested chain counts")
	assert.Equal(t, 130000.0, got.Volume24hUSD)
	assert.Equal(t, 2, got.VenueCount)
	assert.True(t, got.Verified)
}

func TestTokenLiquidityNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"pairs": []}`))
	}))
	defer srv.Close()

	c := NewDexScreener(srv.URL)
	_, err := c.TokenLiquidity(context.Background(), "ethereum", "0xAAA")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDoGetMapsStatusCodes(t *testing.T) {
	status := http.StatusTooManyRequests
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	c := NewDexScreener(srv.URL)
	_, err := c.SearchSymbol(context.Background(), "BTC")
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	status = http.StatusNotFound
	_, err = c.SearchSymbol(context.Background(), "BTC")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSearchSymbolEmptyInput(t *testing.T) {
	c := NewDexScreener("http://127.0.0.1:0")
	got, err := c.SearchSymbol(context.Background(), "   ")
	assert.NoError(t, err)
	assert.Empty(t, got)
}
