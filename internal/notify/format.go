package notify

import (
	"fmt"
	"strings"

	"arbscan/internal/domain"
)

// FormatOpportunity renders one opportunity as an operator-readable alert
// body.
func FormatOpportunity(opp domain.Opportunity) (title, message string) {
	title = fmt.Sprintf("Arb: %s %.2f%% net", opp.Symbol, opp.NetProfitPct)

	var b strings.Builder
	fmt.Fprintf(&b, "Buy %s @ %.6g, sell %s @ %.6g\n", opp.BuySource, opp.BuyPrice, opp.SellSource, opp.SellPrice)
	fmt.Fprintf(&b, "Gross %.2f%% / net %.2f%%, volume %.4g\n", opp.GrossProfitPct, opp.NetProfitPct, opp.Volume)
	if opp.Chain != "" {
		fmt.Fprintf(&b, "Chain: %s", opp.Chain)
		if opp.ContractAddress != "" {
			fmt.Fprintf(&b, " (%s)", opp.ContractAddress)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Confidence %d/100", opp.ConfidenceScore)
	if !opp.Executable {
		b.WriteString(" (NOT EXECUTABLE)")
	}
	if len(opp.Risks) > 0 {
		flags := make([]string, 0, len(opp.Risks))
		for _, r := range opp.Risks {
			flags = append(flags, string(r))
		}
		fmt.Fprintf(&b, "\nRisks: %s", strings.Join(flags, ", "))
	}
	return title, b.String()
}

// FormatPassSummary renders a pass-level digest: the top opportunities and
// the total count.
func FormatPassSummary(opps []domain.Opportunity, top int) (title, message string) {
	title = fmt.Sprintf("Scan: %d opportunities", len(opps))
	if len(opps) == 0 {
		return title, "No opportunities cleared the thresholds this pass."
	}
	if top <= 0 || top > len(opps) {
		top = len(opps)
	}
	var b strings.Builder
	for _, opp := range opps[:top] {
		fmt.Fprintf(&b, "%s: %s→%s %.2f%% net (conf %d)\n",
			opp.Symbol, opp.BuySource, opp.SellSource, opp.NetProfitPct, opp.ConfidenceScore)
	}
	if len(opps) > top {
		fmt.Fprintf(&b, "…and %d more", len(opps)-top)
	}
	return title, strings.TrimRight(b.String(), "\n")
}
