package arb

import (
	"context"
	"errors"
	"log/slog"

	"arbscan/internal/domain"
	"arbscan/internal/identity"
)

// RiskThresholds are the liquidity tiers used by the scorer, in USD.
type RiskThresholds struct {
	LowLiquidityUSD    float64
	MediumLiquidityUSD float64
	HighLiquidityUSD   float64
	// HoneypotLiquidityUSD: a contract whose aggregate liquidity across all
	// discovered venues sits below this is treated as a honeypot.
	HoneypotLiquidityUSD float64
}

// DefaultRiskThresholds returns the scoring tiers used when none are
// configured.
func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{
		LowLiquidityUSD:      10_000,
		MediumLiquidityUSD:   50_000,
		HighLiquidityUSD:     100_000,
		HoneypotLiquidityUSD: 1_000,
	}
}

const (
	baseConfidence     = 85
	failOpenConfidence = 50
	notFoundFloor      = 10
)

// RiskScorer verifies each opportunity's asset against the metadata
// collaborator and attaches a confidence score, risk flags and an
// executable verdict. Scoring is advisory: it annotates opportunities, it
// never removes them.
type RiskScorer struct {
	lookup     domain.MetadataLookup
	thresholds RiskThresholds
	logger     *slog.Logger
}

// NewRiskScorer builds a scorer. lookup may be nil, in which case every
// opportunity keeps the base confidence.
func NewRiskScorer(lookup domain.MetadataLookup, thresholds RiskThresholds, logger *slog.Logger) *RiskScorer {
	return &RiskScorer{
		lookup:     lookup,
		thresholds: thresholds,
		logger:     logger.With(slog.String("component", "risk_scorer")),
	}
}

// liquidityResult memoizes one TokenLiquidity answer, error included, so a
// pass settles on a single verdict per contract.
type liquidityResult struct {
	liq domain.TokenLiquidity
	err error
}

// ScoreAll scores opportunities in place and returns the same slice. The
// liquidity picture behind each distinct (chain, contract) pair is fetched
// at most once per pass, however many opportunities share the contract.
func (s *RiskScorer) ScoreAll(ctx context.Context, opps []domain.Opportunity) []domain.Opportunity {
	seen := make(map[string]liquidityResult)
	for i := range opps {
		opps[i] = s.score(ctx, opps[i], seen)
	}
	return opps
}

// Score evaluates one opportunity. Collaborator failures fail open: the
// opportunity keeps a degraded default confidence and stays executable.
func (s *RiskScorer) Score(ctx context.Context, opp domain.Opportunity) domain.Opportunity {
	return s.score(ctx, opp, make(map[string]liquidityResult))
}

func (s *RiskScorer) score(ctx context.Context, opp domain.Opportunity, seen map[string]liquidityResult) domain.Opportunity {
	opp.ConfidenceScore = baseConfidence
	opp.Executable = true

	if opp.Chain == "" || opp.ContractAddress == "" {
		opp.Risks = append(opp.Risks, domain.RiskNoChainData)
		return clampConfidence(opp)
	}
	if known, ok := identity.KnownAsset(opp.Symbol); ok && known.ContractAddress == opp.ContractAddress {
		// curated assets are pre-verified; skip the lookup
		return clampConfidence(opp)
	}
	if s.lookup == nil {
		return clampConfidence(opp)
	}

	key := identity.AssetKey(opp.Chain, opp.ContractAddress)
	res, ok := seen[key]
	if !ok {
		res.liq, res.err = s.lookup.TokenLiquidity(ctx, opp.Chain, opp.ContractAddress)
		seen[key] = res
	}
	liq, err := res.liq, res.err
	switch {
	case errors.Is(err, domain.ErrNotFound):
		opp.Executable = false
		opp.Risks = append(opp.Risks, domain.RiskNotFound)
		opp.ConfidenceScore = notFoundFloor
		return clampConfidence(opp)
	case err != nil:
		s.logger.Warn("liquidity check failed",
			slog.String("symbol", opp.Symbol),
			slog.String("chain", opp.Chain),
			slog.Any("error", err))
		opp.ConfidenceScore = failOpenConfidence
		opp.Risks = append(opp.Risks, domain.RiskVerificationFailed)
		return clampConfidence(opp)
	}

	if s.honeypot(liq) {
		opp.Executable = false
		opp.Risks = append(opp.Risks, domain.RiskHoneypot)
		opp.ConfidenceScore = 0
		return clampConfidence(opp)
	}

	switch {
	case liq.LiquidityUSD < s.thresholds.LowLiquidityUSD:
		opp.Risks = append(opp.Risks, domain.RiskLowLiquidity)
		opp.ConfidenceScore -= 30
	case liq.LiquidityUSD < s.thresholds.MediumLiquidityUSD:
		opp.Risks = append(opp.Risks, domain.RiskMediumLiquidity)
		opp.ConfidenceScore -= 20
	}
	if liq.LiquidityUSD < s.thresholds.HighLiquidityUSD {
		opp.ConfidenceScore -= 10
	}
	return clampConfidence(opp)
}

// honeypot flags contracts that look tradeable but are probably not:
// near-zero liquidity across every discovered venue, or a 24h volume more
// than 100x the pooled liquidity, which usually means wash trading on a
// contract that blocks sells.
func (s *RiskScorer) honeypot(liq domain.TokenLiquidity) bool {
	if liq.LiquidityUSD < s.thresholds.HoneypotLiquidityUSD {
		return true
	}
	return liq.Volume24hUSD/liq.LiquidityUSD > 100
}

func clampConfidence(opp domain.Opportunity) domain.Opportunity {
	if opp.ConfidenceScore < 0 {
		opp.ConfidenceScore = 0
	}
	if opp.ConfidenceScore > 100 {
		opp.ConfidenceScore = 100
	}
	return opp
}
