package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"arbscan/internal/domain"
	"arbscan/internal/identity"
)

// MetadataCache implements domain.MetadataCache using JSON values under
// "meta:candidates:{symbol}" and "meta:liquidity:{chain}:{address}" keys.
// This is the cross-pass cache layer; per-pass memoization lives in the
// resolver and does not touch Redis.
type MetadataCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewMetadataCache creates a MetadataCache backed by the given Client.
// Entries expire after ttl; pass 0 for the 15 minute default.
func NewMetadataCache(c *Client, ttl time.Duration) *MetadataCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &MetadataCache{rdb: c.Underlying(), ttl: ttl}
}

func candidatesKey(symbol string) string {
	return "meta:candidates:" + identity.BaseSymbol(symbol)
}

func liquidityKey(chain, address string) string {
	return "meta:liquidity:" + identity.AssetKey(chain, address)
}

// GetCandidates returns the cached candidate list for a symbol. A cached
// empty list is a valid hit: it remembers that the collaborator had
// nothing, so the next pass does not repeat the lookup.
func (mc *MetadataCache) GetCandidates(ctx context.Context, symbol string) ([]domain.TokenCandidate, error) {
	raw, err := mc.rdb.Get(ctx, candidatesKey(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get candidates %s: %w", symbol, err)
	}
	var candidates []domain.TokenCandidate
	if err := json.Unmarshal(raw, &candidates); err != nil {
		return nil, fmt.Errorf("redis: decode candidates %s: %w", symbol, err)
	}
	return candidates, nil
}

// SetCandidates stores the candidate list for a symbol.
func (mc *MetadataCache) SetCandidates(ctx context.Context, symbol string, candidates []domain.TokenCandidate) error {
	if candidates == nil {
		candidates = []domain.TokenCandidate{}
	}
	raw, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("redis: encode candidates %s: %w", symbol, err)
	}
	if err := mc.rdb.Set(ctx, candidatesKey(symbol), raw, mc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set candidates %s: %w", symbol, err)
	}
	return nil
}

// GetLiquidity returns the cached liquidity picture for a contract.
func (mc *MetadataCache) GetLiquidity(ctx context.Context, chain, address string) (domain.TokenLiquidity, error) {
	raw, err := mc.rdb.Get(ctx, liquidityKey(chain, address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.TokenLiquidity{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.TokenLiquidity{}, fmt.Errorf("redis: get liquidity %s/%s: %w", chain, address, err)
	}
	var liq domain.TokenLiquidity
	if err := json.Unmarshal(raw, &liq); err != nil {
		return domain.TokenLiquidity{}, fmt.Errorf("redis: decode liquidity %s/%s: %w", chain, address, err)
	}
	return liq, nil
}

// SetLiquidity stores the liquidity picture for a contract.
func (mc *MetadataCache) SetLiquidity(ctx context.Context, chain, address string, liq domain.TokenLiquidity) error {
	raw, err := json.Marshal(liq)
	if err != nil {
		return fmt.Errorf("redis: encode liquidity %s/%s: %w", chain, address, err)
	}
	if err := mc.rdb.Set(ctx, liquidityKey(chain, address), raw, mc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set liquidity %s/%s: %w", chain, address, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MetadataCache = (*MetadataCache)(nil)
