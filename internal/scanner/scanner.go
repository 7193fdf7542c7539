// Package scanner orchestrates detection passes: snapshot every quote
// source, resolve identities, detect, score, filter, then hand the results
// to the persistence and notification sinks.
package scanner

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"arbscan/internal/arb"
	"arbscan/internal/domain"
	"arbscan/internal/identity"
	"arbscan/internal/source"
)

// Sink receives the filtered result of each completed pass. Sinks must be
// fast or buffer internally; the scanner calls them inline.
type Sink interface {
	PassComplete(ctx context.Context, opps []domain.Opportunity)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, opps []domain.Opportunity)

func (f SinkFunc) PassComplete(ctx context.Context, opps []domain.Opportunity) { f(ctx, opps) }

// Config holds the scanner's pass parameters.
type Config struct {
	Interval        time.Duration
	SnapshotTimeout time.Duration
	MinProfitPct    float64
	MaxProfitPct    float64
}

// Scanner runs detection passes over the source registry. Passes never
// overlap: the ticker loop waits for the previous pass before starting the
// next one.
type Scanner struct {
	sources  *source.Registry
	resolver *identity.Resolver
	detector *arb.Detector
	scorer   *arb.RiskScorer
	filter   arb.ThresholdFilter
	cfg      Config
	sinks    []Sink
	logger   *slog.Logger

	mu      sync.Mutex // guards pass execution
	running bool
}

// New builds a scanner over the given collaborators.
func New(
	sources *source.Registry,
	resolver *identity.Resolver,
	detector *arb.Detector,
	scorer *arb.RiskScorer,
	cfg Config,
	logger *slog.Logger,
	sinks ...Sink,
) *Scanner {
	if cfg.SnapshotTimeout <= 0 {
		cfg.SnapshotTimeout = 15 * time.Second
	}
	return &Scanner{
		sources:  sources,
		resolver: resolver,
		detector: detector,
		scorer:   scorer,
		filter:   arb.ThresholdFilter{MinProfitPct: cfg.MinProfitPct, MaxProfitPct: cfg.MaxProfitPct},
		cfg:      cfg,
		sinks:    sinks,
		logger:   logger.With(slog.String("component", "scanner")),
	}
}

// Run executes passes at the configured interval until ctx is cancelled.
// An immediate first pass runs before the ticker starts.
func (s *Scanner) Run(ctx context.Context) error {
	if _, err := s.RunPass(ctx); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.RunPass(ctx); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

// RunPass executes one full detection pass and returns the filtered
// opportunities. A pass over an empty or entirely unusable snapshot returns
// an empty list, not an error. If ctx is cancelled mid-pass the partial
// result is discarded wholesale and ctx.Err() returned.
func (s *Scanner) RunPass(ctx context.Context) ([]domain.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	quotes := s.snapshot(ctx)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	resolved := s.resolver.ResolveAll(ctx, quotes)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	opps := s.detector.Detect(ctx, resolved)
	opps = s.scorer.ScoreAll(ctx, opps)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	opps = s.filter.Apply(opps)

	s.logger.Info("pass complete",
		slog.Int("quotes", len(quotes)),
		slog.Int("opportunities", len(opps)),
		slog.Duration("elapsed", time.Since(start)))

	for _, sink := range s.sinks {
		sink.PassComplete(ctx, opps)
	}
	return opps, nil
}

// snapshot gathers quotes from every registered source in parallel. A
// failing source is logged and skipped; it must not stall or abort the
// pass for the others.
func (s *Scanner) snapshot(ctx context.Context) []domain.Quote {
	providers := s.sources.All()

	var mu sync.Mutex
	var quotes []domain.Quote

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range providers {
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(gctx, s.cfg.SnapshotTimeout)
			defer cancel()
			snap, err := p.Snapshot(sctx)
			if err != nil {
				s.logger.Warn("source snapshot failed",
					slog.String("source", p.Name()),
					slog.Any("error", err))
				return nil
			}
			mu.Lock()
			quotes = append(quotes, snap...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return quotes
}

// EncodePass marshals a pass result to JSON for the signal bus and stream
// consumers.
func EncodePass(opps []domain.Opportunity) ([]byte, error) {
	return json.Marshal(map[string]any{
		"event":         "pass_complete",
		"count":         len(opps),
		"opportunities": opps,
	})
}
