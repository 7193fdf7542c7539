package domain

import "context"

// TokenCandidate is one possible on-chain identity for a base symbol, as
// returned by the metadata lookup collaborator. The same symbol commonly
// maps to unrelated tokens on several chains.
type TokenCandidate struct {
	Chain           string
	ContractAddress string
	Symbol          string
	Name            string
	LiquidityUSD    float64
	PairCount       int
	ImageURL        string
}

// TokenLiquidity is the aggregate liquidity picture for one (chain,
// contract) pair across its discovered trading venues.
type TokenLiquidity struct {
	LiquidityUSD float64
	Volume24hUSD float64
	VenueCount   int
	Verified     bool
}

// MetadataLookup is the external token-metadata collaborator. All responses
// are best effort; callers must fail open on error.
type MetadataLookup interface {
	// SearchSymbol returns zero or more candidates for a base symbol across
	// all chains. An empty slice with nil error means "nothing known".
	SearchSymbol(ctx context.Context, symbol string) ([]TokenCandidate, error)

	// TokenLiquidity returns the liquidity picture for a specific contract
	// on a specific chain. Returns ErrNotFound when the collaborator has no
	// data for the pair.
	TokenLiquidity(ctx context.Context, chain, address string) (TokenLiquidity, error)
}

// Enrichment is an identity signal supplied by an optional out-of-core
// enrichment collaborator (e.g. an AI extraction service). When present it
// is treated as equivalent to a metadata-lookup result, not as stronger
// evidence.
type Enrichment struct {
	Symbol          string
	Chain           string
	ContractAddress string
	Verified        bool
	Decimals        int
}

// EnrichmentProvider supplies Enrichment signals for base symbols. Optional:
// resolution must work identically when no provider is configured.
type EnrichmentProvider interface {
	Enrich(ctx context.Context, symbol string) (Enrichment, error)
}
