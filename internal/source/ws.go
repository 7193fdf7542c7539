package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"arbscan/internal/domain"
	"arbscan/internal/identity"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	reconnectDelay    = 2 * time.Second
	maxReconnectDelay = 60 * time.Second
)

// WSSource maintains a streaming connection to a ticker feed and serves
// Snapshot from its latest-quote book. The feed must push apiTicker-shaped
// JSON messages, one ticker per message.
type WSSource struct {
	name       string
	wsURL      string
	chainHint  string
	staleAfter time.Duration
	logger     *slog.Logger

	mu     sync.RWMutex
	latest map[string]domain.Quote

	closeOnce sync.Once
	done      chan struct{}
}

// NewWSSource creates a streaming provider. Quotes older than staleAfter
// are dropped from snapshots; pass 0 for the 30s default.
func NewWSSource(name, wsURL, chainHint string, staleAfter time.Duration, logger *slog.Logger) *WSSource {
	if staleAfter <= 0 {
		staleAfter = 30 * time.Second
	}
	return &WSSource{
		name:       name,
		wsURL:      wsURL,
		chainHint:  chainHint,
		staleAfter: staleAfter,
		logger:     logger.With(slog.String("component", "ws_source"), slog.String("source", name)),
		latest:     make(map[string]domain.Quote),
		done:       make(chan struct{}),
	}
}

// Name implements domain.QuoteProvider.
func (s *WSSource) Name() string { return s.name }

// Snapshot returns the current quote book, excluding entries the feed has
// not refreshed within the staleness window.
func (s *WSSource) Snapshot(_ context.Context) ([]domain.Quote, error) {
	cutoff := time.Now().Add(-s.staleAfter)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quote, 0, len(s.latest))
	for _, q := range s.latest {
		if q.Timestamp.Before(cutoff) {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// Run connects and keeps reading until ctx is cancelled or Close is called,
// reconnecting with exponential backoff on disconnect.
func (s *WSSource) Run(ctx context.Context) error {
	delay := reconnectDelay
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		default:
		}

		err := s.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-s.done:
			return nil
		default:
		}

		s.logger.Warn("feed disconnected, reconnecting",
			slog.Duration("delay", delay),
			slog.Any("error", err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// Close stops the source permanently.
func (s *WSSource) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *WSSource) runConnection(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("source %s: connect: %w", s.name, err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// close the connection when ctx ends so ReadMessage unblocks
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-s.done:
				_ = conn.Close()
				return
			case <-stop:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					_ = conn.Close()
					return
				}
			}
		}
	}()

	s.logger.Info("feed connected")
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("source %s: %w: %v", s.name, domain.ErrWSDisconnect, err)
		}
		s.handleMessage(msg)
	}
}

func (s *WSSource) handleMessage(msg []byte) {
	var t apiTicker
	if err := json.Unmarshal(msg, &t); err != nil {
		s.logger.Debug("dropping unparseable message", slog.Any("error", err))
		return
	}

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
	q := domain.Quote{
		Symbol:          t.Symbol,
		Source:          s.name,
		Bid:             t.Bid,
		Ask:             t.Ask,
		Volume:          t.Volume,
		Volume24h:       t.Volume24h,
		Timestamp:       time.Now().UTC(),
		Chain:           chain,
		ContractAddress: identity.NormalizeAddress(t.ContractAddress),
	}
	if !q.Valid() || q.Symbol == "" {
		return
	}

	s.mu.Lock()
	s.latest[identity.BaseSymbol(q.Symbol)] = q
	s.mu.Unlock()
}
