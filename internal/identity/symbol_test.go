package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseSymbol(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "BTC", "BTC"},
		{"lowercase", "btc", "BTC"},
		{"slash pair", "BTC/USDT", "BTC"},
		{"dash pair", "eth-usdc", "ETH"},
		{"underscore pair", "SOL_USD", "SOL"},
		{"glued suffix", "BTCUSDT", "BTC"},
		{"glued usd", "ETHUSD", "ETH"},
		{"suffix is whole symbol", "USDT", "USDT"},
		{"suffix would leave one char", "TUSD", "TUSD"},
		{"whitespace", "  doge/usdt ", "DOGE"},
		{"empty", "", ""},
		{"no quote currency", "PEPE", "PEPE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseSymbol(tt.raw))
		})
	}
}

func TestNormalizeChain(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"ethereum", "ethereum", true},
		{"ETH", "ethereum", true},
		{"mainnet", "ethereum", true},
		{"bnb", "bsc", true},
		{"binance", "bsc", true},
		{"matic", "polygon", true},
		{"Arb", "arbitrum", true},
		{"sol", "solana", true},
		{"base", "base", true},
		{"", "", false},
		{"dogechain", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeChain(tt.in)
		assert.Equal(t, tt.wantOK, ok, "chain %q", tt.in)
		assert.Equal(t, tt.want, got, "chain %q", tt.in)
	}
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t,
		"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		NormalizeAddress(" 0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48 "))
}

func TestAssetKey(t *testing.T) {
	assert.Equal(t, "ethereum:0xabc", AssetKey("Ethereum", "0xABC"))
}
