package identity

import (
	"strings"

	"arbscan/internal/domain"
)

// SameAsset reports whether two quotes refer to the same economic asset and
// may be paired for detection.
//
// Base symbols must match. Beyond that the rules are deliberately lenient:
// identity fields only disqualify a pair when both sides carry the same
// field and the values disagree. A resolved quote against an unresolved one
// is allowed through, because blocking it would hide every opportunity
// involving a venue that publishes no chain data; the risk scorer flags
// those pairs instead of the predicate dropping them.
func SameAsset(a, b domain.Quote) bool {
	if !strings.EqualFold(BaseSymbol(a.Symbol), BaseSymbol(b.Symbol)) {
		return false
	}
	if a.ContractAddress != "" && b.ContractAddress != "" {
		// contract addresses are authoritative: equal addresses pair the
		// quotes even when the chain fields disagree
		return strings.EqualFold(a.ContractAddress, b.ContractAddress)
	}
	if a.Chain != "" && b.Chain != "" && !strings.EqualFold(a.Chain, b.Chain) {
		return false
	}
	return true
}
