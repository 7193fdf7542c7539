package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"arbscan/internal/arb"
	"arbscan/internal/domain"
	"arbscan/internal/identity"
	"arbscan/internal/notify"
	"arbscan/internal/scanner"
	"arbscan/internal/server"
	"arbscan/internal/server/handler"
	"arbscan/internal/server/ws"
	"arbscan/internal/service"
	"arbscan/internal/source"
)

// passLockKey is the distributed lock key that keeps two instances sharing
// one Redis from running overlapping passes.
const passLockKey = "arbscan:pass:lock"

// pipeline bundles the scan-side collaborators built from config.
type pipeline struct {
	scanner *scanner.Scanner
	service *service.OpportunityService
	runners []source.Runner
	names   []string
}

// buildPipeline constructs the source registry, resolver, detector, scorer,
// and the opportunity service sink from the configuration.
func (a *App) buildPipeline(deps *Dependencies) (*pipeline, error) {
	reg := source.NewRegistry()
	var runners []source.Runner
	var names []string

	for _, sc := range a.cfg.Sources {
		var p domain.QuoteProvider
		switch sc.Type {
		case "rest":
			p = source.NewRESTSource(sc.Name, sc.URL, sc.Chain, sc.Timeout.Duration)
		case "ws":
			wsSrc := source.NewWSSource(sc.Name, sc.URL, sc.Chain, sc.StaleAfter.Duration, a.logger)
			runners = append(runners, wsSrc)
			p = wsSrc
		default:
			return nil, fmt.Errorf("build pipeline: source %q: unknown type %q", sc.Name, sc.Type)
		}
		if err := reg.Register(p); err != nil {
			return nil, fmt.Errorf("build pipeline: %w", err)
		}
		names = append(names, sc.Name)
	}

	costs := arb.NewCostModel(a.cfg.FeeMap(), a.cfg.Costs.Transfers)
	costs.SetDefaults(a.cfg.Costs.DefaultFeePct, a.cfg.Costs.DefaultTransferUSD)

	resolver := identity.NewResolver(deps.Lookup, deps.MetadataCache, deps.Enricher, a.logger,
		identity.WithConcurrency(a.cfg.Scanner.ResolveConcurrency),
		identity.WithSymbolTimeout(a.cfg.Scanner.ResolveTimeout.Duration),
	)

	detector := arb.NewDetector(costs, a.cfg.Scanner.MinVolume, a.logger)
	scorer := arb.NewRiskScorer(deps.Lookup, arb.RiskThresholds{
		LowLiquidityUSD:      a.cfg.Risk.LowLiquidityUSD,
		MediumLiquidityUSD:   a.cfg.Risk.MediumLiquidityUSD,
		HighLiquidityUSD:     a.cfg.Risk.HighLiquidityUSD,
		HoneypotLiquidityUSD: a.cfg.Risk.HoneypotLiquidityUSD,
	}, a.logger)

	svc := service.NewOpportunityService(
		deps.OpportunityStore, deps.SignalBus, deps.AuditStore,
		deps.Notifier, a.cfg.Scanner.AlertTop, a.logger,
	)

	sc := scanner.New(reg, resolver, detector, scorer, scanner.Config{
		Interval:        a.cfg.Scanner.Interval.Duration,
		SnapshotTimeout: a.cfg.Scanner.SnapshotTimeout.Duration,
		MinProfitPct:    a.cfg.Scanner.MinProfitPct,
		MaxProfitPct:    a.cfg.Scanner.MaxProfitPct,
	}, a.logger, svc)

	return &pipeline{scanner: sc, service: svc, runners: runners, names: names}, nil
}

// ScanMode runs a single detection pass and exits.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	p, err := a.buildPipeline(deps)
	if err != nil {
		return fmt.Errorf("scan mode: %w", err)
	}

	opps, err := a.lockedPass(ctx, deps, p.scanner)
	if err != nil {
		return fmt.Errorf("scan mode: %w", err)
	}
	a.logger.InfoContext(ctx, "pass finished", slog.Int("opportunities", len(opps)))
	return nil
}

// WatchMode runs continuous passes plus the streaming sources, and the HTTP
// server when enabled.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting watch mode")

	p, err := a.buildPipeline(deps)
	if err != nil {
		return fmt.Errorf("watch mode: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startScanLoop(ctx, g, deps, p)

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, p.service, p.names)
	}

	return g.Wait()
}

// ArchiveMode rolls opportunity history older than the retention window to
// object storage, then exits.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode",
		slog.Int("retention_days", a.cfg.S3.RetentionDays),
	)

	if deps.Archiver == nil {
		return fmt.Errorf("archive mode: requires postgres and s3 to be configured")
	}

	before := time.Now().UTC().AddDate(0, 0, -a.cfg.S3.RetentionDays)
	count, err := deps.Archiver.ArchiveOpportunities(ctx, before)
	if err != nil {
		return fmt.Errorf("archive mode: %w", err)
	}

	a.logger.InfoContext(ctx, "archive finished",
		slog.Int64("archived", count),
		slog.Time("before", before),
	)
	if deps.Notifier != nil && count > 0 {
		if err := deps.Notifier.Notify(ctx, notify.EventArchive, "Archive complete",
			fmt.Sprintf("Archived %d opportunities detected before %s.", count, before.Format("2006-01-02"))); err != nil {
			a.logger.WarnContext(ctx, "archive notify failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// ServerMode serves the read-only API over stored results without scanning.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	svc := service.NewOpportunityService(
		deps.OpportunityStore, deps.SignalBus, deps.AuditStore,
		deps.Notifier, a.cfg.Scanner.AlertTop, a.logger,
	)

	var names []string
	for _, sc := range a.cfg.Sources {
		names = append(names, sc.Name)
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, svc, names)
	return g.Wait()
}

// FullMode runs watch mode plus a daily archive sweep when object storage is
// configured.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	p, err := a.buildPipeline(deps)
	if err != nil {
		return fmt.Errorf("full mode: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startScanLoop(ctx, g, deps, p)

	if deps.Archiver != nil {
		g.Go(func() error {
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					before := time.Now().UTC().AddDate(0, 0, -a.cfg.S3.RetentionDays)
					count, err := deps.Archiver.ArchiveOpportunities(ctx, before)
					if err != nil {
						a.logger.ErrorContext(ctx, "archive sweep failed", slog.String("error", err.Error()))
						continue
					}
					a.logger.InfoContext(ctx, "archive sweep finished", slog.Int64("archived", count))
				}
			}
		})
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, p.service, p.names)
	}

	return g.Wait()
}

// startScanLoop starts the streaming sources and the pass loop on the given
// errgroup. When the distributed pass lock is configured, each pass is
// wrapped in an acquire so instances sharing one Redis take turns.
func (a *App) startScanLoop(ctx context.Context, g *errgroup.Group, deps *Dependencies, p *pipeline) {
	for _, r := range p.runners {
		r := r
		g.Go(func() error {
			return r.Run(ctx)
		})
	}

	if a.cfg.Redis.PassLock && deps.LockManager != nil {
		g.Go(func() error {
			if _, err := a.lockedPass(ctx, deps, p.scanner); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			ticker := time.NewTicker(a.cfg.Scanner.Interval.Duration)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					if _, err := a.lockedPass(ctx, deps, p.scanner); err != nil && ctx.Err() != nil {
						return ctx.Err()
					}
				}
			}
		})
	} else {
		g.Go(func() error {
			return p.scanner.Run(ctx)
		})
	}
}

// lockedPass runs one pass, holding the distributed lock for its duration
// when one is configured. A pass skipped because another instance holds the
// lock returns an empty result.
func (a *App) lockedPass(ctx context.Context, deps *Dependencies, sc *scanner.Scanner) ([]domain.Opportunity, error) {
	if !a.cfg.Redis.PassLock || deps.LockManager == nil {
		return sc.RunPass(ctx)
	}

	ttl := a.cfg.Scanner.Interval.Duration
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	unlock, err := deps.LockManager.Acquire(ctx, passLockKey, ttl)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			a.logger.DebugContext(ctx, "pass lock held elsewhere, skipping pass")
			return nil, nil
		}
		return nil, fmt.Errorf("acquire pass lock: %w", err)
	}
	defer unlock()

	return sc.RunPass(ctx)
}

// startHTTPServer adds the HTTP server and WebSocket hub goroutines to the
// given errgroup. The server is shut down gracefully on context cancel.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	svc *service.OpportunityService,
	sourceNames []string,
) {
	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, []string{service.ChannelPasses}, a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, server.Handlers{
		Health:        handler.NewHealthHandler(a.logger),
		Status:        handler.NewStatusHandler(a.cfg.Mode, sourceNames),
		Opportunities: handler.NewOpportunityHandler(svc, a.logger),
	}, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
