package domain

import "context"

// QuoteProvider is one price source. Snapshot returns the source's current
// tickers; the scanner calls it once per pass and treats a failure as "this
// source contributes no quotes this pass", never as a pass-level error.
type QuoteProvider interface {
	Name() string
	Snapshot(ctx context.Context) ([]Quote, error)
}
