package arb

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbscan/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tkn(source string, bid, ask float64) domain.Quote {
	return domain.Quote{
		Symbol:          "TKN",
		Source:          source,
		Bid:             bid,
		Ask:             ask,
		Volume:          1000,
		Chain:           "ethereum",
		ContractAddress: "0xabc",
		Timestamp:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func zeroFeeModel() *CostModel {
	m := NewCostModel(map[string]float64{"X": 0, "Y": 0}, nil)
	m.SetDefaults(0, 0)
	return m
}

func TestDetectSimpleSpread(t *testing.T) {
	d := NewDetector(zeroFeeModel(), 100, testLogger())

	opps := d.Detect(context.Background(), []domain.Quote{
		tkn("X", 10.00, 10.00),
		tkn("Y", 10.50, 10.50),
	})

	require.Len(t, opps, 1, "only the X buy / Y sell direction is profitable")
	opp := opps[0]
	assert.Equal(t, "X", opp.BuySource)
	assert.Equal(t, "Y", opp.SellSource)
	assert.InDelta(t, 5.0, opp.NetProfitPct, 1e-9)
	assert.InDelta(t, 5.0, opp.GrossProfitPct, 1e-9)
	assert.Equal(t, "TKN", opp.Symbol)
	assert.Equal(t, "ethereum", opp.Chain)
	assert.Equal(t, "0xabc", opp.ContractAddress)
	assert.Equal(t, 1000.0, opp.Volume)
	assert.NotEmpty(t, opp.ID)
}

func TestDetectContractMismatchYieldsNothing(t *testing.T) {
	d := NewDetector(zeroFeeModel(), 100, testLogger())

	y := tkn("Y", 10.50, 10.50)
	y.ContractAddress = "0xdef"
	opps := d.Detect(context.Background(), []domain.Quote{tkn("X", 10.00, 10.00), y})

	assert.Empty(t, opps, "matching chains cannot override disagreeing contracts")
}

func TestDetectFeesShrinkProfit(t *testing.T) {
	m := NewCostModel(map[string]float64{"X": 1, "Y": 1}, nil)
	m.SetDefaults(0, 0)
	d := NewDetector(m, 100, testLogger())

	opps := d.Detect(context.Background(), []domain.Quote{
		tkn("X", 10.00, 10.00),
		tkn("Y", 10.50, 10.50),
	})

	require.Len(t, opps, 1)
	// netBuy 10.10, netSell 10.395
	assert.InDelta(t, 2.9208, opps[0].NetProfitPct, 1e-3)

	// at 3% on either side the pair no longer clears a 1% floor
	for _, fees := range []map[string]float64{
		{"X": 3, "Y": 1},
		{"X": 1, "Y": 3},
	} {
		m := NewCostModel(fees, nil)
		m.SetDefaults(0, 0)
		d := NewDetector(m, 100, testLogger())
		opps := d.Detect(context.Background(), []domain.Quote{
			tkn("X", 10.00, 10.00),
			tkn("Y", 10.50, 10.50),
		})
		filtered := ThresholdFilter{MinProfitPct: 1.0, MaxProfitPct: 50}.Apply(opps)
		assert.Empty(t, filtered, "fees %v", fees)
	}
}

func TestDetectExcludesInvalidQuotes(t *testing.T) {
	d := NewDetector(zeroFeeModel(), 100, testLogger())

	bad := tkn("Z", 20.00, -1)
	opps := d.Detect(context.Background(), []domain.Quote{
		tkn("X", 10.00, 10.00),
		tkn("Y", 10.50, 10.50),
		bad,
	})

	require.Len(t, opps, 1)
	for _, o := range opps {
		assert.NotEqual(t, "Z", o.BuySource)
		assert.NotEqual(t, "Z", o.SellSource)
	}
}

func TestDetectBothDirectionsEvaluatedIndependently(t *testing.T) {
	d := NewDetector(zeroFeeModel(), 0, testLogger())

	// crossed books: each side's bid exceeds the other's ask
	a := tkn("A", 10.40, 10.00)
	b := tkn("B", 10.30, 10.10)
	opps := d.Detect(context.Background(), []domain.Quote{a, b})

	require.Len(t, opps, 2)
	dirs := map[string]bool{}
	for _, o := range opps {
		dirs[o.BuySource+">"+o.SellSource] = true
	}
	assert.True(t, dirs["A>B"])
	assert.True(t, dirs["B>A"])
}

func TestDetectChainMismatchRejected(t *testing.T) {
	d := NewDetector(zeroFeeModel(), 0, testLogger())

	a := tkn("X", 10.00, 10.00)
	a.Chain, a.ContractAddress = "ethereum", ""
	b := tkn("Y", 10.50, 10.50)
	b.Chain, b.ContractAddress = "bsc", ""
	opps := d.Detect(context.Background(), []domain.Quote{a, b})

	assert.Empty(t, opps)
}

func TestDetectOneSideUnresolvedCarriesIdentityForward(t *testing.T) {
	d := NewDetector(zeroFeeModel(), 0, testLogger())

	a := tkn("X", 10.00, 10.00)
	b := tkn("Y", 10.50, 10.50)
	b.Chain, b.ContractAddress, b.IdentityConfidence = "", "", 0

	opps := d.Detect(context.Background(), []domain.Quote{a, b})

	require.Len(t, opps, 1)
	assert.Equal(t, "ethereum", opps[0].Chain)
	assert.Equal(t, "0xabc", opps[0].ContractAddress)
}

func TestDetectMinVolumeFloor(t *testing.T) {
	d := NewDetector(zeroFeeModel(), 100, testLogger())

	a := tkn("X", 10.00, 10.00)
	b := tkn("Y", 10.50, 10.50)
	b.Volume = 50 // smaller side falls below the floor

	opps := d.Detect(context.Background(), []domain.Quote{a, b})

	assert.Empty(t, opps)
}

func TestDetectTransferCostMonotonicity(t *testing.T) {
	quotes := func() []domain.Quote {
		a := tkn("X", 10.00, 10.00)
		a.Chain, a.ContractAddress = "ethereum", "0xabc"
		b := tkn("Y", 10.50, 10.50)
		b.Chain, b.ContractAddress = "bsc", "0xabc" // same contract, bridged
		return []domain.Quote{a, b}
	}

	prev := 1e9
	for _, xfer := range []float64{0, 0.05, 0.10, 0.20} {
		m := NewCostModel(map[string]float64{"X": 0, "Y": 0},
			map[string]float64{"ethereum:bsc": xfer})
		m.SetDefaults(0, xfer)
		d := NewDetector(m, 0, testLogger())
		opps := d.Detect(context.Background(), quotes())
		require.Len(t, opps, 1, "transfer %v", xfer)
		assert.Less(t, opps[0].NetProfitPct, prev, "raising transfer cost must not raise profit")
		prev = opps[0].NetProfitPct
	}
}

func TestDetectCancelledPassEmitsNothing(t *testing.T) {
	d := NewDetector(zeroFeeModel(), 0, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opps := d.Detect(ctx, []domain.Quote{tkn("X", 10.00, 10.00), tkn("Y", 10.50, 10.50)})

	assert.Empty(t, opps)
}

func TestCostModelDefaults(t *testing.T) {
	m := NewCostModel(nil, nil)

	assert.Equal(t, 0.1, m.Fee("unknown"))
	assert.Equal(t, 0.0, m.TransferCost("ethereum", "ethereum"))
	assert.Equal(t, 0.0, m.TransferCost("", "bsc"))
	assert.Equal(t, 5.0, m.TransferCost("ethereum", "bsc"))
}

func TestCostModelTransferKeySymmetric(t *testing.T) {
	m := NewCostModel(nil, map[string]float64{"bsc:ethereum": 2.5})

	assert.Equal(t, 2.5, m.TransferCost("ethereum", "bsc"))
	assert.Equal(t, 2.5, m.TransferCost("bsc", "ethereum"))
}
