package domain

import "time"

// RiskFlag is a qualitative warning attached to an opportunity by the risk
// scorer.
type RiskFlag string

const (
	RiskLowLiquidity       RiskFlag = "low liquidity"
	RiskMediumLiquidity    RiskFlag = "medium liquidity"
	RiskNotFound           RiskFlag = "not found on network"
	RiskHoneypot           RiskFlag = "honeypot risk"
	RiskVerificationFailed RiskFlag = "verification failed, using default"
	RiskNoChainData        RiskFlag = "no on-chain identity"
)

// Opportunity is a directional, cost-adjusted candidate arbitrage trade:
// buy at BuySource's ask, sell at SellSource's bid. Opportunities are
// immutable outputs of one detection pass; they are never merged or updated
// across passes.
type Opportunity struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	BuySource  string    `json:"buy_source"`
	SellSource string    `json:"sell_source"`
	BuyPrice   float64   `json:"buy_price"`
	SellPrice  float64   `json:"sell_price"`

	GrossProfitPct float64 `json:"gross_profit_pct"`
	NetProfitPct   float64 `json:"net_profit_pct"`

	// Volume is the minimum of the two quotes' volumes (conservative sizing).
	Volume float64 `json:"volume"`

	// Chain and ContractAddress are the resolved identity carried forward
	// from whichever side of the pair had one; empty when unresolved.
	Chain           string `json:"chain,omitempty"`
	ContractAddress string `json:"contract_address,omitempty"`

	ConfidenceScore int        `json:"confidence_score"`
	Risks           []RiskFlag `json:"risks,omitempty"`
	Executable      bool       `json:"executable"`

	// Timestamp is the max of the two input quotes' timestamps.
	Timestamp time.Time `json:"timestamp"`
}

// HasRisk reports whether the given flag is attached to the opportunity.
func (o Opportunity) HasRisk(flag RiskFlag) bool {
	for _, r := range o.Risks {
		if r == flag {
			return true
		}
	}
	return false
}
