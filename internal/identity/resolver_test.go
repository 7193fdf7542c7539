package identity

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbscan/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubLookup struct {
	mu         sync.Mutex
	calls      atomic.Int64
	candidates map[string][]domain.TokenCandidate
	err        error
}

func (s *stubLookup) SearchSymbol(_ context.Context, symbol string) ([]domain.TokenCandidate, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.candidates[symbol], nil
}

func (s *stubLookup) TokenLiquidity(context.Context, string, string) (domain.TokenLiquidity, error) {
	return domain.TokenLiquidity{}, domain.ErrNotFound
}

type stubEnricher struct {
	enrichment domain.Enrichment
	err        error
}

func (s *stubEnricher) Enrich(context.Context, string) (domain.Enrichment, error) {
	return s.enrichment, s.err
}

func TestResolveSymbolKnownTableWins(t *testing.T) {
	lookup := &stubLookup{candidates: map[string][]domain.TokenCandidate{
		"USDC": {{Chain: "bsc", ContractAddress: "0xwrong"}},
	}}
	r := NewResolver(lookup, nil, nil, testLogger())

	id := r.ResolveSymbol(context.Background(), "usdc/usd")

	assert.Equal(t, "ethereum", id.Chain)
	assert.Equal(t, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", id.ContractAddress)
	assert.Equal(t, 100, id.Confidence)
	assert.True(t, id.WellKnown)
	assert.Zero(t, lookup.calls.Load(), "curated table must short-circuit the lookup")
}

func TestResolveSymbolNativeToken(t *testing.T) {
	r := NewResolver(nil, nil, nil, testLogger())

	id := r.ResolveSymbol(context.Background(), "SOL-USDT")

	assert.Equal(t, "solana", id.Chain)
	assert.Empty(t, id.ContractAddress)
	assert.Equal(t, 50, id.Confidence)
	assert.False(t, id.WellKnown)
}

func TestResolveSymbolDominantChain(t *testing.T) {
	lookup := &stubLookup{candidates: map[string][]domain.TokenCandidate{
		"PEPE": {
			{Chain: "ethereum", ContractAddress: "0xAAA", LiquidityUSD: 100},
			{Chain: "ethereum", ContractAddress: "0xBBB", LiquidityUSD: 9000},
			{Chain: "bsc", ContractAddress: "0xCCC", LiquidityUSD: 50000},
		},
	}}
	r := NewResolver(lookup, nil, nil, testLogger())

	id := r.ResolveSymbol(context.Background(), "PEPE")

	assert.Equal(t, "ethereum", id.Chain, "two of three candidates sit on ethereum")
	assert.Equal(t, "0xbbb", id.ContractAddress, "most liquid candidate on the winning chain")
	assert.Equal(t, 60, id.Confidence)
}

func TestResolveSymbolAmbiguousChainsYieldNothing(t *testing.T) {
	lookup := &stubLookup{candidates: map[string][]domain.TokenCandidate{
		"MOON": {
			{Chain: "ethereum", ContractAddress: "0xAAA"},
			{Chain: "bsc", ContractAddress: "0xBBB"},
		},
	}}
	r := NewResolver(lookup, nil, nil, testLogger())

	id := r.ResolveSymbol(context.Background(), "MOON")

	assert.True(t, id.Unresolved())
	assert.Zero(t, id.Confidence)
}

func TestResolveSymbolLookupConfidenceCappedAt90(t *testing.T) {
	lookup := &stubLookup{candidates: map[string][]domain.TokenCandidate{
		"SINGLE": {{Chain: "ethereum", ContractAddress: "0xAAA", LiquidityUSD: 1}},
	}}
	r := NewResolver(lookup, nil, nil, testLogger())

	id := r.ResolveSymbol(context.Background(), "SINGLE")

	require.False(t, id.Unresolved())
	assert.Equal(t, 90, id.Confidence)
}

func TestResolveSymbolEnrichmentBeforeLookup(t *testing.T) {
	lookup := &stubLookup{candidates: map[string][]domain.TokenCandidate{
		"OBSCURE": {{Chain: "bsc", ContractAddress: "0xlookup"}},
	}}
	enricher := &stubEnricher{enrichment: domain.Enrichment{
		Symbol:          "OBSCURE",
		Chain:           "eth",
		ContractAddress: "0xEnriched",
		Verified:        true,
	}}
	r := NewResolver(lookup, nil, enricher, testLogger())

	id := r.ResolveSymbol(context.Background(), "OBSCURE")

	assert.Equal(t, "ethereum", id.Chain)
	assert.Equal(t, "0xenriched", id.ContractAddress)
	assert.Equal(t, 80, id.Confidence)
	assert.Zero(t, lookup.calls.Load())
}

func TestResolveSymbolFailsOpen(t *testing.T) {
	lookup := &stubLookup{err: domain.ErrRateLimited}
	r := NewResolver(lookup, nil, nil, testLogger())

	id := r.ResolveSymbol(context.Background(), "UNKNOWABLE")

	assert.True(t, id.Unresolved())
	assert.Zero(t, id.Confidence)
}

func TestResolveAllMemoizesPerSymbol(t *testing.T) {
	lookup := &stubLookup{candidates: map[string][]domain.TokenCandidate{
		"PEPE": {{Chain: "ethereum", ContractAddress: "0xAAA", LiquidityUSD: 10}},
	}}
	r := NewResolver(lookup, nil, nil, testLogger())

	quotes := []domain.Quote{
		{Symbol: "PEPE/USDT", Source: "alpha", Bid: 1, Ask: 1.1},
		{Symbol: "PEPEUSDC", Source: "beta", Bid: 1, Ask: 1.1},
		{Symbol: "pepe-usd", Source: "gamma", Bid: 1, Ask: 1.1},
	}
	out := r.ResolveAll(context.Background(), quotes)

	require.Len(t, out, 3)
	for _, q := range out {
		assert.Equal(t, "ethereum", q.Chain, "source %s", q.Source)
		assert.Equal(t, "0xaaa", q.ContractAddress, "source %s", q.Source)
	}
	assert.Equal(t, int64(1), lookup.calls.Load(), "one lookup per distinct base symbol per pass")
}

func TestResolveAllTrustsExplicitQuoteFields(t *testing.T) {
	lookup := &stubLookup{}
	r := NewResolver(lookup, nil, nil, testLogger())

	quotes := []domain.Quote{
		{Symbol: "TOKEN", Source: "dex", Bid: 1, Ask: 1.1, Chain: "BNB", ContractAddress: "0xDEF"},
	}
	out := r.ResolveAll(context.Background(), quotes)

	require.Len(t, out, 1)
	assert.Equal(t, "bsc", out[0].Chain)
	assert.Equal(t, "0xdef", out[0].ContractAddress)
	assert.Equal(t, 100, out[0].IdentityConfidence)
	assert.Zero(t, lookup.calls.Load())
}

func TestResolveAllChainHintDoesNotSkipResolution(t *testing.T) {
	lookup := &stubLookup{}
	r := NewResolver(lookup, nil, nil, testLogger())

	quotes := []domain.Quote{
		{Symbol: "USDC", Source: "dex", Bid: 1, Ask: 1.001, Chain: "bsc"},
	}
	out := r.ResolveAll(context.Background(), quotes)

	require.Len(t, out, 1)
	assert.Equal(t, "ethereum", out[0].Chain, "curated identity must replace the chain hint")
	assert.Equal(t, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", out[0].ContractAddress)
	assert.Equal(t, 100, out[0].IdentityConfidence)
}

func TestResolveAllKeepsChainHintWhenUnresolvable(t *testing.T) {
	lookup := &stubLookup{}
	r := NewResolver(lookup, nil, nil, testLogger())

	quotes := []domain.Quote{
		{Symbol: "NOWHERE", Source: "dex", Bid: 1, Ask: 1.1, Chain: "BNB"},
	}
	out := r.ResolveAll(context.Background(), quotes)

	require.Len(t, out, 1)
	assert.Equal(t, "bsc", out[0].Chain, "hint survives normalized when no heuristic has an opinion")
	assert.Empty(t, out[0].ContractAddress)
	assert.Equal(t, 100, out[0].IdentityConfidence)
}

func TestResolveAllLeavesUnresolvableQuotesIntact(t *testing.T) {
	r := NewResolver(&stubLookup{}, nil, nil, testLogger())

	quotes := []domain.Quote{{Symbol: "NOWHERE", Source: "alpha", Bid: 2, Ask: 2.2}}
	out := r.ResolveAll(context.Background(), quotes)

	require.Len(t, out, 1)
	assert.Empty(t, out[0].Chain)
	assert.Empty(t, out[0].ContractAddress)
	assert.Zero(t, out[0].IdentityConfidence)
	assert.Equal(t, 2.0, out[0].Bid, "price fields pass through untouched")
}
