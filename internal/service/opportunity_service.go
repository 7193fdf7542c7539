// Package service wires pass results into the persistence, messaging and
// alerting collaborators.
package service

import (
	"context"
	"log/slog"

	"arbscan/internal/domain"
	"arbscan/internal/notify"
	"arbscan/internal/scanner"
)

// Channel and stream names used on the signal bus.
const (
	ChannelPasses = "arbscan.passes"
	StreamPasses  = "arbscan:passes"
)

// OpportunityService receives each completed pass and fans it out: batch
// insert into the store, publish on the bus, append to the durable stream,
// audit-log the pass, alert operators. Every leg is best effort; a broken
// collaborator is logged and skipped so the scan loop keeps running.
type OpportunityService struct {
	store    domain.OpportunityStore
	bus      domain.SignalBus
	audit    domain.AuditStore
	notifier *notify.Notifier
	// alertTop bounds how many opportunities one pass digest names.
	alertTop int
	logger   *slog.Logger
}

// NewOpportunityService creates the service. store, bus, audit and notifier
// may each be nil when the deployment does not configure them.
func NewOpportunityService(
	store domain.OpportunityStore,
	bus domain.SignalBus,
	audit domain.AuditStore,
	notifier *notify.Notifier,
	alertTop int,
	logger *slog.Logger,
) *OpportunityService {
	if alertTop <= 0 {
		alertTop = 5
	}
	return &OpportunityService{
		store:    store,
		bus:      bus,
		audit:    audit,
		notifier: notifier,
		alertTop: alertTop,
		logger:   logger.With(slog.String("component", "opportunity_service")),
	}
}

// PassComplete implements scanner.Sink.
func (s *OpportunityService) PassComplete(ctx context.Context, opps []domain.Opportunity) {
	if s.store != nil && len(opps) > 0 {
		if err := s.store.InsertBatch(ctx, opps); err != nil {
			s.logger.ErrorContext(ctx, "persist pass failed",
				slog.Int("count", len(opps)),
				slog.String("error", err.Error()))
		}
	}

	if s.bus != nil {
		payload, err := scanner.EncodePass(opps)
		if err != nil {
			s.logger.ErrorContext(ctx, "encode pass failed", slog.String("error", err.Error()))
		} else {
			if err := s.bus.Publish(ctx, ChannelPasses, payload); err != nil {
				s.logger.WarnContext(ctx, "publish pass failed", slog.String("error", err.Error()))
			}
			if err := s.bus.StreamAppend(ctx, StreamPasses, payload); err != nil {
				s.logger.WarnContext(ctx, "stream append failed", slog.String("error", err.Error()))
			}
		}
	}

	if s.audit != nil {
		if err := s.audit.Log(ctx, "pass_complete", map[string]any{
			"count":      len(opps),
			"executable": countExecutable(opps),
		}); err != nil {
			s.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
		}
	}

	s.alert(ctx, opps)
}

// ListRecent exposes stored opportunities for the HTTP surface.
func (s *OpportunityService) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListRecent(ctx, limit)
}

// ListBySymbol exposes per-symbol history for the HTTP surface.
func (s *OpportunityService) ListBySymbol(ctx context.Context, symbol string, opts domain.ListOpts) ([]domain.Opportunity, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListBySymbol(ctx, symbol, opts)
}

func (s *OpportunityService) alert(ctx context.Context, opps []domain.Opportunity) {
	if s.notifier == nil {
		return
	}
	if len(opps) == 0 {
		title, msg := notify.FormatPassSummary(opps, s.alertTop)
		if err := s.notifier.Notify(ctx, notify.EventPassEmpty, title, msg); err != nil {
			s.logger.WarnContext(ctx, "notify failed", slog.String("error", err.Error()))
		}
		return
	}
	title, msg := notify.FormatPassSummary(opps, s.alertTop)
	if err := s.notifier.Notify(ctx, notify.EventOpportunity, title, msg); err != nil {
		s.logger.WarnContext(ctx, "notify failed", slog.String("error", err.Error()))
	}
}

func countExecutable(opps []domain.Opportunity) int {
	n := 0
	for _, o := range opps {
		if o.Executable {
			n++
		}
	}
	return n
}

// Compile-time interface check.
var _ scanner.Sink = (*OpportunityService)(nil)
