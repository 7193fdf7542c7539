package domain

import (
	"context"
	"time"
)

// MetadataCache stores metadata-lookup results beyond the lifetime of one
// detection pass. Per-pass memoization lives inside the resolver; this cache
// is the collaborator-side "optionally longer" layer and has its own TTL
// policy.
type MetadataCache interface {
	GetCandidates(ctx context.Context, symbol string) ([]TokenCandidate, error)
	SetCandidates(ctx context.Context, symbol string, candidates []TokenCandidate) error
	GetLiquidity(ctx context.Context, chain, address string) (TokenLiquidity, error)
	SetLiquidity(ctx context.Context, chain, address string, liq TokenLiquidity) error
}

// StreamMessage represents a single entry from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub for pass results and durable streams for
// downstream consumers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// LockManager provides distributed locks; used to guarantee that detection
// passes never overlap when several scanner instances share one deployment.
type LockManager interface {
	// Acquire returns an unlock function, or ErrLockHeld when another
	// holder owns the lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
