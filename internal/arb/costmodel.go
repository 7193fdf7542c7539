// Package arb implements the detection pass: cost-adjusted spread
// computation over quote snapshots, risk scoring and threshold filtering.
package arb

import (
	"sort"
	"strings"

	"arbscan/internal/domain"
)

const (
	// defaultFeePct applies to any source without a configured taker fee.
	defaultFeePct = 0.1
	// defaultTransferUSD applies to any cross-chain pair without a
	// configured estimate.
	defaultTransferUSD = 5.0
)

// CostModel prices the two legs of a candidate trade: per-source taker fees
// and a flat USD estimate for moving value between chains.
type CostModel struct {
	fees        map[string]float64 // source -> fee pct
	transfers   map[string]float64 // unordered chain pair key -> USD
	defaultFee  float64
	defaultXfer float64
}

// NewCostModel builds a cost model. fees maps source names to taker-fee
// percentages; transfers maps chain pairs (see TransferKey) to flat USD
// estimates. Either map may be nil.
func NewCostModel(fees map[string]float64, transfers map[string]float64) *CostModel {
	m := &CostModel{
		fees:        make(map[string]float64, len(fees)),
		transfers:   make(map[string]float64, len(transfers)),
		defaultFee:  defaultFeePct,
		defaultXfer: defaultTransferUSD,
	}
	for src, pct := range fees {
		m.fees[strings.ToLower(src)] = pct
	}
	for pair, usd := range transfers {
		chains := strings.SplitN(pair, ":", 2)
		if len(chains) == 2 {
			m.transfers[TransferKey(chains[0], chains[1])] = usd
		}
	}
	return m
}

// SetDefaults overrides the fallback fee percentage and transfer estimate.
func (m *CostModel) SetDefaults(feePct, transferUSD float64) {
	if feePct >= 0 {
		m.defaultFee = feePct
	}
	if transferUSD >= 0 {
		m.defaultXfer = transferUSD
	}
}

// Fee returns the taker-fee percentage for a source.
func (m *CostModel) Fee(source string) float64 {
	if pct, ok := m.fees[strings.ToLower(source)]; ok {
		return pct
	}
	return m.defaultFee
}

// TransferCost estimates the flat USD cost of moving the asset between two
// chains. Same chain or an unknown chain on either side costs nothing; the
// unknown-chain case is deliberate, since charging a transfer against an
// unresolved identity would double-penalize quotes the risk scorer already
// flags.
func (m *CostModel) TransferCost(chainA, chainB string) float64 {
	if chainA == "" || chainB == "" {
		return 0
	}
	if strings.EqualFold(chainA, chainB) {
		return 0
	}
	if usd, ok := m.transfers[TransferKey(chainA, chainB)]; ok {
		return usd
	}
	return m.defaultXfer
}

// TransferKey normalizes a chain pair into an order-independent map key.
// Transfer estimates are symmetric.
func TransferKey(chainA, chainB string) string {
	a, b := strings.ToLower(chainA), strings.ToLower(chainB)
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// legCosts is the cost model applied to one ordered (buy, sell) pair.
type legCosts struct {
	netBuy  float64
	netSell float64
}

func (m *CostModel) costs(buy, sell domain.Quote) legCosts {
	return legCosts{
		netBuy:  buy.Ask * (1 + m.Fee(buy.Source)/100),
		netSell: sell.Bid*(1-m.Fee(sell.Source)/100) - m.TransferCost(buy.Chain, sell.Chain),
	}
}

// sortDescByNet sorts opportunities by net profit, best first. Stable so
// equal-profit opportunities keep their discovery order.
func sortDescByNet(opps []domain.Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].NetProfitPct > opps[j].NetProfitPct
	})
}
