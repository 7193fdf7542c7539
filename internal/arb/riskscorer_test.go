package arb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"arbscan/internal/domain"
)

type liquidityStub struct {
	liq domain.TokenLiquidity
	err error
}

func (s liquidityStub) SearchSymbol(context.Context, string) ([]domain.TokenCandidate, error) {
	return nil, nil
}

func (s liquidityStub) TokenLiquidity(context.Context, string, string) (domain.TokenLiquidity, error) {
	return s.liq, s.err
}

func scoredOpp() domain.Opportunity {
	return domain.Opportunity{
		Symbol:          "TKN",
		Chain:           "ethereum",
		ContractAddress: "0xabc",
		NetProfitPct:    2.0,
	}
}

func TestScoreLiquidityTiers(t *testing.T) {
	tests := []struct {
		name       string
		liq        domain.TokenLiquidity
		wantScore  int
		wantRisks  []domain.RiskFlag
		executable bool
	}{
		{
			name:       "deep liquidity keeps base confidence",
			liq:        domain.TokenLiquidity{LiquidityUSD: 500_000, Volume24hUSD: 100_000},
			wantScore:  85,
			executable: true,
		},
		{
			name:       "between medium and high loses ten",
			liq:        domain.TokenLiquidity{LiquidityUSD: 60_000, Volume24hUSD: 10_000},
			wantScore:  75,
			executable: true,
		},
		{
			name:       "below medium",
			liq:        domain.TokenLiquidity{LiquidityUSD: 20_000, Volume24hUSD: 5_000},
			wantScore:  55,
			wantRisks:  []domain.RiskFlag{domain.RiskMediumLiquidity},
			executable: true,
		},
		{
			name:       "below low",
			liq:        domain.TokenLiquidity{LiquidityUSD: 5_000, Volume24hUSD: 1_000},
			wantScore:  45,
			wantRisks:  []domain.RiskFlag{domain.RiskLowLiquidity},
			executable: true,
		},
		{
			name:       "near-zero liquidity is a honeypot",
			liq:        domain.TokenLiquidity{LiquidityUSD: 200, Volume24hUSD: 10},
			wantScore:  0,
			wantRisks:  []domain.RiskFlag{domain.RiskHoneypot},
			executable: false,
		},
		{
			name:       "wash-traded volume is a honeypot",
			liq:        domain.TokenLiquidity{LiquidityUSD: 50_000, Volume24hUSD: 10_000_000},
			wantScore:  0,
			wantRisks:  []domain.RiskFlag{domain.RiskHoneypot},
			executable: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewRiskScorer(liquidityStub{liq: tt.liq}, DefaultRiskThresholds(), testLogger())
			got := s.Score(context.Background(), scoredOpp())
			assert.Equal(t, tt.wantScore, got.ConfidenceScore)
			assert.Equal(t, tt.executable, got.Executable)
			assert.Equal(t, tt.wantRisks, got.Risks)
		})
	}
}

type countingLiquidityStub struct {
	liquidityStub
	calls int
}

func (s *countingLiquidityStub) TokenLiquidity(ctx context.Context, chain, addr string) (domain.TokenLiquidity, error) {
	s.calls++
	return s.liquidityStub.TokenLiquidity(ctx, chain, addr)
}

func TestScoreAllFetchesLiquidityOncePerContract(t *testing.T) {
	stub := &countingLiquidityStub{liquidityStub: liquidityStub{
		liq: domain.TokenLiquidity{LiquidityUSD: 500_000, Volume24hUSD: 100_000},
	}}
	s := NewRiskScorer(stub, DefaultRiskThresholds(), testLogger())

	opps := []domain.Opportunity{scoredOpp(), scoredOpp(), scoredOpp()}
	other := scoredOpp()
	other.ContractAddress = "0xother"
	opps = append(opps, other)

	got := s.ScoreAll(context.Background(), opps)

	assert.Equal(t, 2, stub.calls, "one lookup per distinct contract per pass")
	for _, o := range got {
		assert.Equal(t, 85, o.ConfidenceScore)
		assert.True(t, o.Executable)
	}
}

func TestScoreAllSharesVerdictAcrossContractPairs(t *testing.T) {
	stub := &countingLiquidityStub{liquidityStub: liquidityStub{err: domain.ErrNotFound}}
	s := NewRiskScorer(stub, DefaultRiskThresholds(), testLogger())

	got := s.ScoreAll(context.Background(), []domain.Opportunity{scoredOpp(), scoredOpp()})

	assert.Equal(t, 1, stub.calls)
	for _, o := range got {
		assert.False(t, o.Executable)
		assert.True(t, o.HasRisk(domain.RiskNotFound))
	}
}

func TestScoreNotFound(t *testing.T) {
	s := NewRiskScorer(liquidityStub{err: domain.ErrNotFound}, DefaultRiskThresholds(), testLogger())

	got := s.Score(context.Background(), scoredOpp())

	assert.False(t, got.Executable)
	assert.True(t, got.HasRisk(domain.RiskNotFound))
	assert.Equal(t, 10, got.ConfidenceScore)
}

func TestScoreFailsOpenOnCollaboratorError(t *testing.T) {
	s := NewRiskScorer(liquidityStub{err: errors.New("upstream 500")}, DefaultRiskThresholds(), testLogger())

	got := s.Score(context.Background(), scoredOpp())

	assert.True(t, got.Executable, "verification failure must not block the opportunity")
	assert.True(t, got.HasRisk(domain.RiskVerificationFailed))
	assert.Equal(t, 50, got.ConfidenceScore)
}

func TestScoreWithoutChainData(t *testing.T) {
	s := NewRiskScorer(liquidityStub{err: errors.New("must not be called")}, DefaultRiskThresholds(), testLogger())

	got := s.Score(context.Background(), domain.Opportunity{Symbol: "TKN"})

	assert.True(t, got.Executable)
	assert.True(t, got.HasRisk(domain.RiskNoChainData))
	assert.Equal(t, 85, got.ConfidenceScore)
}

func TestScoreSkipsLookupForCuratedAssets(t *testing.T) {
	s := NewRiskScorer(liquidityStub{err: errors.New("must not be called")}, DefaultRiskThresholds(), testLogger())

	opp := domain.Opportunity{
		Symbol:          "USDC",
		Chain:           "ethereum",
		ContractAddress: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
	}
	got := s.Score(context.Background(), opp)

	assert.True(t, got.Executable)
	assert.Empty(t, got.Risks)
	assert.Equal(t, 85, got.ConfidenceScore)
}
