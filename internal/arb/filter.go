package arb

import "arbscan/internal/domain"

// ThresholdFilter drops uneconomical and implausible opportunities and
// orders the survivors best-first.
type ThresholdFilter struct {
	MinProfitPct float64
	// MaxProfitPct guards against bad quotes: a spread above it is treated
	// as broken data and dropped outright.
	MaxProfitPct float64
}

// Apply returns the opportunities whose net profit lies within
// [MinProfitPct, MaxProfitPct], sorted descending by net profit. Filtering
// an already filtered list with the same bounds is a no-op.
func (f ThresholdFilter) Apply(opps []domain.Opportunity) []domain.Opportunity {
	out := make([]domain.Opportunity, 0, len(opps))
	for _, o := range opps {
		if o.NetProfitPct < f.MinProfitPct || o.NetProfitPct > f.MaxProfitPct {
			continue
		}
		out = append(out, o)
	}
	sortDescByNet(out)
	return out
}
