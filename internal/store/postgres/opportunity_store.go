package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arbscan/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates an OpportunityStore backed by the given pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const oppSelectCols = `id, symbol, buy_source, sell_source, buy_price, sell_price,
	gross_profit_pct, net_profit_pct, volume, chain, contract_address,
	confidence_score, risks, executable, detected_at`

const oppInsert = `
	INSERT INTO opportunities (
		id, symbol, buy_source, sell_source, buy_price, sell_price,
		gross_profit_pct, net_profit_pct, volume, chain, contract_address,
		confidence_score, risks, executable, detected_at
	) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9, $10, $11,
		$12, $13, $14, $15
	)`

// Insert stores one opportunity.
func (s *OpportunityStore) Insert(ctx context.Context, opp domain.Opportunity) error {
	args, err := insertArgs(opp)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, oppInsert, args...); err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// InsertBatch stores a full pass result in one round trip.
func (s *OpportunityStore) InsertBatch(ctx context.Context, opps []domain.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, opp := range opps {
		args, err := insertArgs(opp)
		if err != nil {
			return err
		}
		batch.Queue(oppInsert, args...)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range opps {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert opportunity batch: %w", err)
		}
	}
	return nil
}

// ListRecent returns the most recently detected opportunities.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + oppSelectCols + ` FROM opportunities ORDER BY detected_at DESC LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities: %w", err)
	}
	defer rows.Close()
	return scanOpportunities(rows)
}

// ListBySymbol returns opportunities for one base symbol with pagination
// and optional time filtering.
func (s *OpportunityStore) ListBySymbol(ctx context.Context, symbol string, opts domain.ListOpts) ([]domain.Opportunity, error) {
	query := `SELECT ` + oppSelectCols + ` FROM opportunities WHERE symbol = $1`
	args := []any{symbol}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND detected_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND detected_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY detected_at DESC"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities for %s: %w", symbol, err)
	}
	defer rows.Close()
	return scanOpportunities(rows)
}

// ListBefore returns all opportunities detected strictly before the cutoff,
// oldest first; used by the archiver.
func (s *OpportunityStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Opportunity, error) {
	query := `SELECT ` + oppSelectCols + ` FROM opportunities WHERE detected_at < $1 ORDER BY detected_at ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities before %s: %w", before, err)
	}
	defer rows.Close()
	return scanOpportunities(rows)
}

// DeleteBefore removes opportunities detected before the cutoff and returns
// the number of rows dropped. Callers must archive first.
func (s *OpportunityStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM opportunities WHERE detected_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete opportunities before %s: %w", before, err)
	}
	return tag.RowsAffected(), nil
}

func insertArgs(opp domain.Opportunity) ([]any, error) {
	risks, err := json.Marshal(opp.Risks)
	if err != nil {
		return nil, fmt.Errorf("postgres: marshal risks for %s: %w", opp.ID, err)
	}
	return []any{
		opp.ID, opp.Symbol, opp.BuySource, opp.SellSource, opp.BuyPrice, opp.SellPrice,
		opp.GrossProfitPct, opp.NetProfitPct, opp.Volume, nullable(opp.Chain), nullable(opp.ContractAddress),
		opp.ConfidenceScore, risks, opp.Executable, opp.Timestamp,
	}, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanOpportunities(rows pgx.Rows) ([]domain.Opportunity, error) {
	var opps []domain.Opportunity
	for rows.Next() {
		var (
			opp             domain.Opportunity
			chain, contract *string
			risks           []byte
		)
		if err := rows.Scan(
			&opp.ID, &opp.Symbol, &opp.BuySource, &opp.SellSource, &opp.BuyPrice, &opp.SellPrice,
			&opp.GrossProfitPct, &opp.NetProfitPct, &opp.Volume, &chain, &contract,
			&opp.ConfidenceScore, &risks, &opp.Executable, &opp.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		if chain != nil {
			opp.Chain = *chain
		}
		if contract != nil {
			opp.ContractAddress = *contract
		}
		if risks != nil {
			if err := json.Unmarshal(risks, &opp.Risks); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal risks: %w", err)
			}
		}
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: opportunity rows: %w", err)
	}
	return opps, nil
}

// Compile-time interface check.
var _ domain.OpportunityStore = (*OpportunityStore)(nil)
