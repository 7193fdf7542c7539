package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"arbscan/internal/domain"
	"arbscan/internal/identity"
)

// tickerPayload is the wire shape a REST ticker endpoint must serve: either
// a bare JSON array of tickers or an object with a "tickers" field.
type tickerPayload struct {
	Tickers []apiTicker `json:"tickers"`
}

type apiTicker struct {
	Symbol          string  `json:"symbol"`
	Bid             float64 `json:"bid"`
	Ask             float64 `json:"ask"`
	Volume          float64 `json:"volume"`
	Volume24h       float64 `json:"volume_24h"`
	Chain           string  `json:"chain"`
	ContractAddress string  `json:"contract_address"`
}

// RESTSource polls a ticker endpoint once per Snapshot call. A configured
// chain hint is applied to tickers that do not carry their own chain field.
type RESTSource struct {
	name       string
	url        string
	chainHint  string
	httpClient *http.Client
}

// NewRESTSource creates a polling provider. chainHint may be empty; when
// set it must be a canonical chain name and is stamped onto quotes whose
// payload has no chain of its own.
func NewRESTSource(name, url, chainHint string, timeout time.Duration) *RESTSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RESTSource{
		name:       name,
		url:        url,
		chainHint:  chainHint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements domain.QuoteProvider.
func (s *RESTSource) Name() string { return s.name }

// Snapshot fetches the endpoint and returns one Quote per ticker. Tickers
// that fail validation are dropped here rather than handed to the scanner.
func (s *RESTSource) Snapshot(ctx context.Context) ([]domain.Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("source %s: create request: %w", s.name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source %s: http request: %w", s.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("source %s: read response: %w", s.name, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("source %s: %w", s.name, domain.ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("source %s: HTTP %d: %s", s.name, resp.StatusCode, string(body))
	}

	tickers, err := decodeTickers(body)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", s.name, err)
	}

	now := time.Now().UTC()
	quotes := make([]domain.Quote, 0, len(tickers))
	for _, t := range tickers {
		q := s.toQuote(t, now)
		if !q.Valid() {
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func decodeTickers(body []byte) ([]apiTicker, error) {
	var list []apiTicker
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var payload tickerPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode tickers: %w", err)
	}
	return payload.Tickers, nil
}

func (s *RESTSource) toQuote(t apiTicker, now time.Time) domain.Quote {
	chain := t.Chain
	if chain == "" {
		chain = s.chainHint
	}
	if chain != "" {
		if c, ok := identity.NormalizeChain(chain); ok {
			chain = c
		} else {
			chain = ""
		}
	}
	return domain.Quote{
		Symbol:          t.Symbol,
		Source:          s.name,
		Bid:             t.Bid,
		Ask:             t.Ask,
		Volume:          t.Volume,
		Volume24h:       t.Volume24h,
		Timestamp:       now,
		Chain:           chain,
		ContractAddress: identity.NormalizeAddress(t.ContractAddress),
	}
}
