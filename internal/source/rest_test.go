package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbscan/internal/domain"
)

func TestRESTSourceSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			{"symbol": "BTC/USDT", "bid": 64000, "ask": 64010, "volume": 12.5},
			{"symbol": "TKN", "bid": 1.00, "ask": 1.01, "volume": 500,
			 "chain": "ETH", "contract_address": "0xABC"},
			{"symbol": "BAD", "bid": -5, "ask": 1, "volume": 10}
		]`))
	}))
	defer srv.Close()

	s := NewRESTSource("alpha", srv.URL, "bsc", 5*time.Second)
	quotes, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	require.Len(t, quotes, 2, "invalid tickers are dropped at the edge")

	btc := quotes[0]
	assert.Equal(t, "alpha", btc.Source)
	assert.Equal(t, "bsc", btc.Chain, "chain hint applies when the payload has none")

	tkn := quotes[1]
	assert.Equal(t, "ethereum", tkn.Chain, "payload chain wins over the hint")
	assert.Equal(t, "0xabc", tkn.ContractAddress)
}

func TestRESTSourceWrappedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tickers": [{"symbol": "ETH", "bid": 3000, "ask": 3001, "volume": 1}]}`))
	}))
	defer srv.Close()

	s := NewRESTSource("beta", srv.URL, "", 5*time.Second)
	quotes, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "ETH", quotes[0].Symbol)
}

func TestRESTSourceRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewRESTSource("gamma", srv.URL, "", 5*time.Second)
	_, err := s.Snapshot(context.Background())
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	s := NewRESTSource("alpha", "http://localhost", "", 0)

	require.NoError(t, r.Register(s))
	assert.Error(t, r.Register(s))
	assert.Equal(t, 1, r.Len())

	got, ok := r.Get("alpha")
	assert.True(t, ok)
	assert.Equal(t, "alpha", got.Name())
}

func TestRegistryAllIsSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(NewRESTSource(name, "http://localhost", "", 0)))
	}
	var names []string
	for _, p := range r.All() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}
