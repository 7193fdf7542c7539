package arb

import (
	"context"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"arbscan/internal/domain"
	"arbscan/internal/identity"
)

// Detector turns one resolved quote snapshot into directional arbitrage
// candidates. It is pure CPU work: identity resolution happens before
// Detect and risk scoring after.
type Detector struct {
	costs     *CostModel
	minVolume float64
	logger    *slog.Logger
}

// NewDetector builds a detector. minVolume is the floor applied to the
// smaller side of each pair; pairs below it are skipped.
func NewDetector(costs *CostModel, minVolume float64, logger *slog.Logger) *Detector {
	return &Detector{
		costs:     costs,
		minVolume: minVolume,
		logger:    logger.With(slog.String("component", "detector")),
	}
}

// Detect evaluates every ordered cross-source pair within each asset group
// and returns the candidates with a positive net spread. Both directions of
// a pair are evaluated independently. Invalid quotes are dropped before
// grouping; candidates with a non-finite profit percentage are never
// emitted. The returned slice is unscored and unfiltered.
func (d *Detector) Detect(ctx context.Context, quotes []domain.Quote) []domain.Opportunity {
	groups := groupByAsset(quotes)

	var out []domain.Opportunity
	for _, group := range groups {
		if ctx.Err() != nil {
			return nil // abandoned passes emit nothing, not a partial list
		}
		if len(group) < 2 {
			continue
		}
		for i, buy := range group {
			for j, sell := range group {
				if i == j || buy.Source == sell.Source {
					continue
				}
				if opp, ok := d.evaluate(buy, sell); ok {
					out = append(out, opp)
				}
			}
		}
	}
	d.logger.Debug("detection pass complete",
		slog.Int("quotes", len(quotes)),
		slog.Int("groups", len(groups)),
		slog.Int("candidates", len(out)))
	return out
}

// evaluate applies the full pipeline to one ordered (buy, sell) pair.
func (d *Detector) evaluate(buy, sell domain.Quote) (domain.Opportunity, bool) {
	if !identity.SameAsset(buy, sell) {
		return domain.Opportunity{}, false
	}
	if buy.Ask >= sell.Bid {
		return domain.Opportunity{}, false
	}
	if math.Min(buy.Volume, sell.Volume) < d.minVolume {
		return domain.Opportunity{}, false
	}

	c := d.costs.costs(buy, sell)
	if c.netSell <= c.netBuy {
		return domain.Opportunity{}, false
	}
	netPct := (c.netSell - c.netBuy) / c.netBuy * 100
	grossPct := (sell.Bid - buy.Ask) / buy.Ask * 100
	if !isFinite(netPct) || !isFinite(grossPct) {
		return domain.Opportunity{}, false
	}

	chain, contract, conf := carriedIdentity(buy, sell)
	ts := buy.Timestamp
	if sell.Timestamp.After(ts) {
		ts = sell.Timestamp
	}

	return domain.Opportunity{
		ID:              uuid.NewString(),
		Symbol:          identity.BaseSymbol(buy.Symbol),
		BuySource:       buy.Source,
		SellSource:      sell.Source,
		BuyPrice:        buy.Ask,
		SellPrice:       sell.Bid,
		GrossProfitPct:  grossPct,
		NetProfitPct:    netPct,
		Volume:          math.Min(buy.Volume, sell.Volume),
		Chain:           chain,
		ContractAddress: contract,
		ConfidenceScore: conf,
		Executable:      true,
		Timestamp:       ts,
	}, true
}

// groupByAsset buckets valid quotes by base symbol. Identity matching
// happens pairwise through SameAsset rather than in the group key: an
// unresolved quote must still be able to pair with a resolved one, which a
// chain-and-contract composite key would forbid.
func groupByAsset(quotes []domain.Quote) map[string][]domain.Quote {
	groups := make(map[string][]domain.Quote)
	for _, q := range quotes {
		if !q.Valid() {
			continue
		}
		sym := identity.BaseSymbol(q.Symbol)
		if sym == "" {
			continue
		}
		groups[sym] = append(groups[sym], q)
	}
	return groups
}

// carriedIdentity picks the identity the opportunity inherits: the side
// with a contract address wins, then the side with a chain, and the
// confidence follows the side that supplied the fields.
func carriedIdentity(buy, sell domain.Quote) (chain, contract string, confidence int) {
	pick := buy
	if pick.ContractAddress == "" && sell.ContractAddress != "" {
		pick = sell
	} else if pick.ContractAddress == "" && pick.Chain == "" && sell.Chain != "" {
		pick = sell
	}
	return pick.Chain, pick.ContractAddress, pick.IdentityConfidence
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
