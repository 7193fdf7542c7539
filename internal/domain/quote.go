// Package domain defines the core entities of the arbitrage scanner and the
// interfaces its external collaborators (price sources, metadata lookup,
// stores, caches, notification channels) must implement.
package domain

import (
	"math"
	"time"
)

// Quote is one price source's best-bid/best-ask snapshot for a symbol.
// Ask is the buy-side price, Bid is the sell-side price. Quotes are
// ephemeral: each scan pass starts from a fresh snapshot and a Quote is
// never mutated after identity resolution.
type Quote struct {
	Symbol    string
	Source    string
	Bid       float64
	Ask       float64
	Volume    float64
	Volume24h float64
	Timestamp time.Time

	// Chain and ContractAddress, when set, must use the canonical
	// lower-cased vocabulary (see identity.NormalizeChain). Empty means
	// unresolved, not mismatched.
	Chain           string
	ContractAddress string

	// IdentityConfidence is 0-100: how sure the resolver is about
	// Chain/ContractAddress.
	IdentityConfidence int
}

// Valid reports whether the quote is usable for detection. Quotes with
// non-positive or non-finite prices, or negative/non-finite volumes, are
// excluded from grouping silently.
func (q Quote) Valid() bool {
	if q.Bid <= 0 || q.Ask <= 0 {
		return false
	}
	if math.IsNaN(q.Bid) || math.IsInf(q.Bid, 0) || math.IsNaN(q.Ask) || math.IsInf(q.Ask, 0) {
		return false
	}
	if q.Volume < 0 || math.IsNaN(q.Volume) || math.IsInf(q.Volume, 0) {
		return false
	}
	if q.Volume24h < 0 || math.IsNaN(q.Volume24h) || math.IsInf(q.Volume24h, 0) {
		return false
	}
	return true
}

// Resolved reports whether the quote already pins its asset. Only a
// contract address pins it; a bare Chain field is a source hint and the
// quote still goes through symbol resolution.
func (q Quote) Resolved() bool {
	return q.ContractAddress != ""
}

// AssetIdentity is the resolver's best guess at which on-chain asset a
// quote refers to. Empty Chain and ContractAddress with Confidence 0 means
// "unknown" and is a legitimate outcome, not an error.
type AssetIdentity struct {
	Chain           string
	ContractAddress string
	Confidence      int

	// WellKnown marks identities taken from the curated asset table, which
	// the risk scorer treats as pre-verified.
	WellKnown bool
}

// Unresolved reports whether the identity carries no signal at all.
func (id AssetIdentity) Unresolved() bool {
	return id.Chain == "" && id.ContractAddress == ""
}

// Apply copies the identity onto a quote, returning the enriched copy.
func (id AssetIdentity) Apply(q Quote) Quote {
	q.Chain = id.Chain
	q.ContractAddress = id.ContractAddress
	q.IdentityConfidence = id.Confidence
	return q
}
