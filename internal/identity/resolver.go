// Package identity resolves venue tickers to on-chain asset identities and
// decides when two quotes refer to the same economic asset.
package identity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"arbscan/internal/domain"
)

const (
	defaultConcurrency   = 8
	defaultSymbolTimeout = 5 * time.Second
)

// Resolver enriches quote batches with asset identities. Resolution per
// distinct base symbol happens at most once per pass; quotes that arrive
// with an explicit contract address are trusted as-is.
type Resolver struct {
	heuristics []Heuristic
	limit      int
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithConcurrency bounds the number of symbols resolved in parallel.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.limit = n
		}
	}
}

// WithSymbolTimeout bounds how long a single symbol's resolution may take.
func WithSymbolTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewResolver builds a resolver with the standard heuristic order: curated
// table, native-token rules, enrichment (when provided), metadata lookup.
// lookup, cache and enricher may each be nil; resolution degrades rather
// than fails.
func NewResolver(lookup domain.MetadataLookup, cache domain.MetadataCache, enricher domain.EnrichmentProvider, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		heuristics: []Heuristic{
			KnownTableHeuristic{},
			NativeTokenHeuristic{},
			EnrichmentHeuristic{Provider: enricher},
			LookupHeuristic{Lookup: lookup, Cache: cache},
		},
		limit:   defaultConcurrency,
		timeout: defaultSymbolTimeout,
		logger:  logger.With(slog.String("component", "resolver")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewResolverWithHeuristics builds a resolver with a caller-supplied
// heuristic chain, tried in the given order.
func NewResolverWithHeuristics(heuristics []Heuristic, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		heuristics: heuristics,
		limit:      defaultConcurrency,
		timeout:    defaultSymbolTimeout,
		logger:     logger.With(slog.String("component", "resolver")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveAll returns a copy of quotes enriched with asset identities.
// Quotes already carrying a contract address keep it (normalized) at full
// confidence; the rest share one symbol-level resolution per distinct base
// symbol. A chain field without a contract is only a hint: resolution still
// runs and its identity replaces the hint, which survives (at full
// confidence) only when every heuristic comes up empty. A symbol that
// cannot be resolved at all yields an unresolved identity at confidence
// zero, never an error.
func (r *Resolver) ResolveAll(ctx context.Context, quotes []domain.Quote) []domain.Quote {
	pending := make(map[string]struct{})
	for _, q := range quotes {
		if q.Resolved() {
			continue
		}
		if sym := BaseSymbol(q.Symbol); sym != "" {
			pending[sym] = struct{}{}
		}
	}

	resolved := make(map[string]domain.AssetIdentity, len(pending))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for sym := range pending {
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(gctx, r.timeout)
			defer cancel()
			id := r.ResolveSymbol(sctx, sym)
			mu.Lock()
			resolved[sym] = id
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers fail open and never return errors

	out := make([]domain.Quote, 0, len(quotes))
	for _, q := range quotes {
		if q.Resolved() {
			out = append(out, normalizeQuoteIdentity(q))
			continue
		}
		if id, ok := resolved[BaseSymbol(q.Symbol)]; ok && !id.Unresolved() {
			q = id.Apply(q)
		} else if q.Chain != "" {
			q = normalizeQuoteIdentity(q)
		}
		out = append(out, q)
	}
	return out
}

// ResolveSymbol runs the heuristic chain for one base symbol. Heuristic
// errors are logged and skipped; when no heuristic has an opinion the
// result is an unresolved identity at confidence zero.
func (r *Resolver) ResolveSymbol(ctx context.Context, symbol string) domain.AssetIdentity {
	sym := BaseSymbol(symbol)
	for _, h := range r.heuristics {
		if ctx.Err() != nil {
			break
		}
		id, ok, err := h.Resolve(ctx, sym)
		if err != nil {
			r.logger.Warn("heuristic failed",
				slog.String("heuristic", h.Name()),
				slog.String("symbol", sym),
				slog.Any("error", err))
			continue
		}
		if ok {
			r.logger.Debug("symbol resolved",
				slog.String("heuristic", h.Name()),
				slog.String("symbol", sym),
				slog.String("chain", id.Chain),
				slog.Int("confidence", id.Confidence))
			return id
		}
	}
	return domain.AssetIdentity{}
}

// normalizeQuoteIdentity folds source-supplied chain and address fields
// onto the canonical vocabulary. Explicit fields are authoritative, so the
// quote resolves at full confidence even when the chain spelling is
// unrecognized and has to be dropped.
func normalizeQuoteIdentity(q domain.Quote) domain.Quote {
	if chain, ok := NormalizeChain(q.Chain); ok {
		q.Chain = chain
	} else {
		q.Chain = ""
	}
	q.ContractAddress = NormalizeAddress(q.ContractAddress)
	if q.Chain != "" || q.ContractAddress != "" {
		q.IdentityConfidence = 100
	}
	return q
}
