package identity

import (
	"context"
	"errors"
	"fmt"

	"arbscan/internal/domain"
)

// Heuristic resolves one base symbol to an on-chain identity. The resolver
// tries its heuristics in order and the first hit wins, so ordering encodes
// trust: curated tables before pattern rules before network lookups.
//
// A (zero, false, nil) return means "no opinion"; an error means the
// heuristic could not even form one. Both fall through to the next
// heuristic.
type Heuristic interface {
	Name() string
	Resolve(ctx context.Context, symbol string) (domain.AssetIdentity, bool, error)
}

// KnownTableHeuristic resolves symbols from the curated asset table.
type KnownTableHeuristic struct{}

func (KnownTableHeuristic) Name() string { return "known_table" }

func (KnownTableHeuristic) Resolve(_ context.Context, symbol string) (domain.AssetIdentity, bool, error) {
	id, ok := KnownAsset(symbol)
	return id, ok, nil
}

// NativeTokenHeuristic maps native-token tickers to their home chain. It
// yields a chain but no contract, at half confidence: a ticker named ETH is
// probably ether, but venues also list wrapped and bridged variants under
// the same symbol.
type NativeTokenHeuristic struct{}

func (NativeTokenHeuristic) Name() string { return "native_token" }

func (NativeTokenHeuristic) Resolve(_ context.Context, symbol string) (domain.AssetIdentity, bool, error) {
	chain, ok := NativeChain(symbol)
	if !ok {
		return domain.AssetIdentity{}, false, nil
	}
	return domain.AssetIdentity{Chain: chain, Confidence: 50}, true, nil
}

// EnrichmentHeuristic consults an optional enrichment collaborator. Its
// answer is weighted like a single metadata-lookup source.
type EnrichmentHeuristic struct {
	Provider domain.EnrichmentProvider
}

func (EnrichmentHeuristic) Name() string { return "enrichment" }

func (h EnrichmentHeuristic) Resolve(ctx context.Context, symbol string) (domain.AssetIdentity, bool, error) {
	if h.Provider == nil {
		return domain.AssetIdentity{}, false, nil
	}
	enr, err := h.Provider.Enrich(ctx, symbol)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.AssetIdentity{}, false, nil
		}
		return domain.AssetIdentity{}, false, fmt.Errorf("enrich %s: %w", symbol, err)
	}
	chain, ok := NormalizeChain(enr.Chain)
	if !ok || enr.ContractAddress == "" {
		return domain.AssetIdentity{}, false, nil
	}
	conf := 70
	if enr.Verified {
		conf = 80
	}
	return domain.AssetIdentity{
		Chain:           chain,
		ContractAddress: NormalizeAddress(enr.ContractAddress),
		Confidence:      conf,
	}, true, nil
}

// LookupHeuristic queries the token-metadata collaborator and adopts a
// candidate only when one chain clearly dominates the result set. Candidate
// lists are served from the metadata cache when one is configured.
type LookupHeuristic struct {
	Lookup domain.MetadataLookup
	Cache  domain.MetadataCache
}

func (LookupHeuristic) Name() string { return "metadata_lookup" }

func (h LookupHeuristic) Resolve(ctx context.Context, symbol string) (domain.AssetIdentity, bool, error) {
	if h.Lookup == nil {
		return domain.AssetIdentity{}, false, nil
	}
	candidates, err := h.candidates(ctx, symbol)
	if err != nil {
		return domain.AssetIdentity{}, false, fmt.Errorf("search %s: %w", symbol, err)
	}
	id, ok := dominantIdentity(candidates)
	return id, ok, nil
}

func (h LookupHeuristic) candidates(ctx context.Context, symbol string) ([]domain.TokenCandidate, error) {
	if h.Cache != nil {
		cached, err := h.Cache.GetCandidates(ctx, symbol)
		if err == nil {
			return cached, nil
		}
		// cache errors (miss or otherwise) fall through to the live lookup
	}
	candidates, err := h.Lookup.SearchSymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if h.Cache != nil {
		_ = h.Cache.SetCandidates(ctx, symbol, candidates)
	}
	return candidates, nil
}

// dominantIdentity picks the identity of the chain that strictly dominates
// the candidate set. A tie between chains means the symbol is genuinely
// ambiguous and no identity is adopted. Within the winning chain the most
// liquid candidate wins. Confidence scales with the winning chain's share
// of the candidates, clamped to [50, 90]; a network lookup never outranks
// the curated table.
func dominantIdentity(candidates []domain.TokenCandidate) (domain.AssetIdentity, bool) {
	byChain := make(map[string][]domain.TokenCandidate)
	total := 0
	for _, c := range candidates {
		chain, ok := NormalizeChain(c.Chain)
		if !ok {
			continue
		}
		c.Chain = chain
		byChain[chain] = append(byChain[chain], c)
		total++
	}
	if total == 0 {
		return domain.AssetIdentity{}, false
	}

	var best string
	bestN, secondN := 0, 0
	for chain, cs := range byChain {
		switch {
		case len(cs) > bestN:
			secondN = bestN
			bestN = len(cs)
			best = chain
		case len(cs) > secondN:
			secondN = len(cs)
		}
	}
	if bestN == secondN {
		return domain.AssetIdentity{}, false
	}

	winner := byChain[best][0]
	for _, c := range byChain[best][1:] {
		if c.LiquidityUSD > winner.LiquidityUSD {
			winner = c
		}
	}

	conf := 90 * bestN / total
	if conf < 50 {
		conf = 50
	}
	return domain.AssetIdentity{
		Chain:           winner.Chain,
		ContractAddress: NormalizeAddress(winner.ContractAddress),
		Confidence:      conf,
	}, true
}
