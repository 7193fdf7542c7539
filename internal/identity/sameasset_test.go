package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"arbscan/internal/domain"
)

func TestSameAsset(t *testing.T) {
	q := func(symbol, chain, addr string) domain.Quote {
		return domain.Quote{Symbol: symbol, Chain: chain, ContractAddress: addr}
	}

	tests := []struct {
		name string
		a, b domain.Quote
		want bool
	}{
		{
			name: "different base symbols never match",
			a:    q("BTC", "", ""),
			b:    q("ETH", "", ""),
			want: false,
		},
		{
			name: "pair forms of the same base match",
			a:    q("BTC/USDT", "", ""),
			b:    q("BTCUSDC", "", ""),
			want: true,
		},
		{
			name: "both unresolved matches on symbol alone",
			a:    q("PEPE", "", ""),
			b:    q("PEPE", "", ""),
			want: true,
		},
		{
			name: "equal contract addresses match",
			a:    q("TOKEN", "ethereum", "0xabc"),
			b:    q("TOKEN", "ethereum", "0xABC"),
			want: true,
		},
		{
			name: "different contract addresses reject",
			a:    q("TOKEN", "ethereum", "0xabc"),
			b:    q("TOKEN", "ethereum", "0xdef"),
			want: false,
		},
		{
			name: "different chains reject when no addresses",
			a:    q("TOKEN", "ethereum", ""),
			b:    q("TOKEN", "bsc", ""),
			want: false,
		},
		{
			name: "one side unresolved is allowed through",
			a:    q("TOKEN", "ethereum", "0xabc"),
			b:    q("TOKEN", "", ""),
			want: true,
		},
		{
			name: "one side has chain only other has nothing",
			a:    q("TOKEN", "polygon", ""),
			b:    q("TOKEN", "", ""),
			want: true,
		},
		{
			name: "address on one side chain on the other",
			a:    q("TOKEN", "", "0xabc"),
			b:    q("TOKEN", "bsc", ""),
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SameAsset(tt.a, tt.b))
			assert.Equal(t, tt.want, SameAsset(tt.b, tt.a), "predicate must be symmetric")
		})
	}
}
