package scanner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbscan/internal/arb"
	"arbscan/internal/domain"
	"arbscan/internal/identity"
	"arbscan/internal/source"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubProvider struct {
	name   string
	quotes []domain.Quote
	err    error
}

func (p stubProvider) Name() string { return p.name }

func (p stubProvider) Snapshot(context.Context) ([]domain.Quote, error) {
	return p.quotes, p.err
}

func quote(src string, bid, ask float64) domain.Quote {
	return domain.Quote{
		Symbol:          "TKN",
		Source:          src,
		Bid:             bid,
		Ask:             ask,
		Volume:          1000,
		Chain:           "ethereum",
		ContractAddress: "0xabc",
		Timestamp:       time.Now().UTC(),
	}
}

func newTestScanner(t *testing.T, sinks ...Sink) (*Scanner, *source.Registry) {
	t.Helper()
	reg := source.NewRegistry()
	costs := arb.NewCostModel(nil, nil)
	costs.SetDefaults(0, 0)
	s := New(
		reg,
		identity.NewResolver(nil, nil, nil, testLogger()),
		arb.NewDetector(costs, 100, testLogger()),
		arb.NewRiskScorer(nil, arb.DefaultRiskThresholds(), testLogger()),
		Config{Interval: time.Minute, MinProfitPct: 0.5, MaxProfitPct: 50},
		testLogger(),
		sinks...,
	)
	return s, reg
}

func TestRunPassEndToEnd(t *testing.T) {
	var sunk []domain.Opportunity
	sink := SinkFunc(func(_ context.Context, opps []domain.Opportunity) { sunk = opps })

	s, reg := newTestScanner(t, sink)
	require.NoError(t, reg.Register(stubProvider{name: "X", quotes: []domain.Quote{quote("X", 10.00, 10.00)}}))
	require.NoError(t, reg.Register(stubProvider{name: "Y", quotes: []domain.Quote{quote("Y", 10.50, 10.50)}}))

	opps, err := s.RunPass(context.Background())
	require.NoError(t, err)

	require.Len(t, opps, 1)
	assert.Equal(t, "X", opps[0].BuySource)
	assert.Equal(t, "Y", opps[0].SellSource)
	assert.InDelta(t, 5.0, opps[0].NetProfitPct, 1e-9)
	assert.Equal(t, opps, sunk, "sinks receive the filtered pass result")
}

func TestRunPassFailingSourceIsSkipped(t *testing.T) {
	s, reg := newTestScanner(t)
	require.NoError(t, reg.Register(stubProvider{name: "X", quotes: []domain.Quote{quote("X", 10.00, 10.00)}}))
	require.NoError(t, reg.Register(stubProvider{name: "Y", quotes: []domain.Quote{quote("Y", 10.50, 10.50)}}))
	require.NoError(t, reg.Register(stubProvider{name: "Z", err: errors.New("venue down")}))

	opps, err := s.RunPass(context.Background())
	require.NoError(t, err)
	assert.Len(t, opps, 1, "one broken venue must not abort the pass")
}

func TestRunPassEmptySnapshot(t *testing.T) {
	s, _ := newTestScanner(t)

	opps, err := s.RunPass(context.Background())
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestRunPassCancelledDiscardsWholesale(t *testing.T) {
	called := false
	sink := SinkFunc(func(context.Context, []domain.Opportunity) { called = true })

	s, reg := newTestScanner(t, sink)
	require.NoError(t, reg.Register(stubProvider{name: "X", quotes: []domain.Quote{quote("X", 10.00, 10.00)}}))
	require.NoError(t, reg.Register(stubProvider{name: "Y", quotes: []domain.Quote{quote("Y", 10.50, 10.50)}}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opps, err := s.RunPass(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, opps)
	assert.False(t, called, "abandoned passes must not reach the sinks")
}

func TestEncodePass(t *testing.T) {
	payload, err := EncodePass([]domain.Opportunity{{ID: "1", Symbol: "TKN"}})
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"pass_complete"`)
	assert.Contains(t, string(payload), `"TKN"`)
}
