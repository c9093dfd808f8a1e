package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/tradepress/internal/contracts"
)

// ErrNotFound is returned when no ranking run exists yet
var ErrNotFound = errors.New("not found")

const schema = `
CREATE SCHEMA IF NOT EXISTS scoring;

CREATE TABLE IF NOT EXISTS scoring.ranking_runs (
	id              UUID PRIMARY KEY,
	created_at      TIMESTAMPTZ NOT NULL,
	candidate_count INT NOT NULL
);

CREATE TABLE IF NOT EXISTS scoring.ranking_results (
	run_id           UUID NOT NULL REFERENCES scoring.ranking_runs(id) ON DELETE CASCADE,
	rank             INT NOT NULL,
	symbol           TEXT NOT NULL,
	company_name     TEXT NOT NULL DEFAULT '',
	total_score      DOUBLE PRECISION NOT NULL,
	score_breakdown  JSONB NOT NULL,
	recommendation   TEXT NOT NULL,
	confidence_level TEXT NOT NULL,
	risk_factors     JSONB NOT NULL,
	PRIMARY KEY (run_id, rank)
);

CREATE TABLE IF NOT EXISTS scoring.directive_results (
	id                  BIGSERIAL PRIMARY KEY,
	symbol              TEXT NOT NULL,
	code                TEXT NOT NULL,
	score               DOUBLE PRECISION NOT NULL,
	signal              TEXT NOT NULL,
	condition           TEXT NOT NULL DEFAULT '',
	trading_mode        TEXT NOT NULL,
	insufficient_data   BOOLEAN NOT NULL DEFAULT FALSE,
	indicator_values    JSONB,
	calculation_details TEXT NOT NULL DEFAULT '',
	evaluated_at        TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_directive_results_lookup
	ON scoring.directive_results (symbol, code, evaluated_at DESC);
`

// Repository persists ranking runs and directive evaluations
// ⭐ SSOT: 점수 데이터 저장/조회는 여기서만
type Repository struct {
	pool  *pgxpool.Pool
	clock func() time.Time
}

var _ contracts.RankingRepository = (*Repository)(nil)

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool:  pool,
		clock: func() time.Time { return time.Now().UTC() },
	}
}

// EnsureSchema creates the scoring schema if it does not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// SaveRanking stores one ranking pass and returns its run ID
func (r *Repository) SaveRanking(ctx context.Context, results []contracts.CompositeScoreResult) (string, error) {
	runID := uuid.New()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		"INSERT INTO scoring.ranking_runs (id, created_at, candidate_count) VALUES ($1, $2, $3)",
		runID, r.clock(), len(results))
	if err != nil {
		return "", fmt.Errorf("failed to insert ranking run: %w", err)
	}

	query := `
		INSERT INTO scoring.ranking_results (
			run_id, rank, symbol, company_name, total_score,
			score_breakdown, recommendation, confidence_level, risk_factors
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	batch := &pgx.Batch{}
	for _, res := range results {
		breakdown, err := json.Marshal(res.ScoreBreakdown)
		if err != nil {
			return "", fmt.Errorf("failed to marshal score breakdown for %s: %w", res.Symbol, err)
		}
		risks, err := json.Marshal(nonNil(res.RiskFactors))
		if err != nil {
			return "", fmt.Errorf("failed to marshal risk factors for %s: %w", res.Symbol, err)
		}

		batch.Queue(query, runID, res.Rank, res.Symbol, res.CompanyName, res.TotalScore,
			breakdown, res.Recommendation, res.ConfidenceLevel, risks)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return "", fmt.Errorf("failed to insert ranking results: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit ranking: %w", err)
	}

	return runID.String(), nil
}

// LatestRanking returns the most recent run with its top limit results
// (all results when limit <= 0). ErrNotFound when nothing was saved yet.
func (r *Repository) LatestRanking(ctx context.Context, limit int) (*contracts.RankingRun, error) {
	var (
		runID     uuid.UUID
		createdAt time.Time
	)
	err := r.pool.QueryRow(ctx,
		"SELECT id, created_at FROM scoring.ranking_runs ORDER BY created_at DESC LIMIT 1",
	).Scan(&runID, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}

	query := `
		SELECT rank, symbol, company_name, total_score,
		       score_breakdown, recommendation, confidence_level, risk_factors
		FROM scoring.ranking_results
		WHERE run_id = $1 AND ($2 <= 0 OR rank <= $2)
		ORDER BY rank
	`

	rows, err := r.pool.Query(ctx, query, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranking results: %w", err)
	}
	defer rows.Close()

	run := &contracts.RankingRun{
		ID:        runID.String(),
		CreatedAt: createdAt,
		Results:   []contracts.CompositeScoreResult{},
	}

	for rows.Next() {
		var (
			res       contracts.CompositeScoreResult
			breakdown []byte
			risks     []byte
		)
		if err := rows.Scan(&res.Rank, &res.Symbol, &res.CompanyName, &res.TotalScore,
			&breakdown, &res.Recommendation, &res.ConfidenceLevel, &risks); err != nil {
			return nil, fmt.Errorf("failed to scan ranking result: %w", err)
		}
		if err := json.Unmarshal(breakdown, &res.ScoreBreakdown); err != nil {
			return nil, fmt.Errorf("failed to unmarshal score breakdown: %w", err)
		}
		if err := json.Unmarshal(risks, &res.RiskFactors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal risk factors: %w", err)
		}
		run.Results = append(run.Results, res)
	}

	return run, rows.Err()
}

// SaveDirectiveResult appends one directive evaluation for symbol
func (r *Repository) SaveDirectiveResult(ctx context.Context, symbol string, result contracts.DirectiveResult) error {
	values, err := json.Marshal(result.Values)
	if err != nil {
		return fmt.Errorf("failed to marshal indicator values: %w", err)
	}

	query := `
		INSERT INTO scoring.directive_results (
			symbol, code, score, signal, condition, trading_mode,
			insufficient_data, indicator_values, calculation_details, evaluated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.pool.Exec(ctx, query,
		symbol, result.Code, result.Score, result.Signal, result.Condition, string(result.TradingMode),
		result.InsufficientData, values, result.CalculationDetails, r.clock())
	if err != nil {
		return fmt.Errorf("failed to save directive result: %w", err)
	}

	return nil
}

// DirectiveHistory returns the latest evaluations of code for symbol, newest first
func (r *Repository) DirectiveHistory(ctx context.Context, symbol, code string, limit int) ([]contracts.DirectiveResult, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT code, score, signal, condition, trading_mode,
		       insufficient_data, indicator_values, calculation_details
		FROM scoring.directive_results
		WHERE symbol = $1 AND code = $2
		ORDER BY evaluated_at DESC, id DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, symbol, code, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query directive history: %w", err)
	}
	defer rows.Close()

	history := []contracts.DirectiveResult{}
	for rows.Next() {
		var (
			res    contracts.DirectiveResult
			mode   string
			values []byte
		)
		if err := rows.Scan(&res.Code, &res.Score, &res.Signal, &res.Condition, &mode,
			&res.InsufficientData, &values, &res.CalculationDetails); err != nil {
			return nil, fmt.Errorf("failed to scan directive result: %w", err)
		}
		res.TradingMode = contracts.TradingMode(mode)
		if len(values) > 0 {
			if err := json.Unmarshal(values, &res.Values); err != nil {
				return nil, fmt.Errorf("failed to unmarshal indicator values: %w", err)
			}
		}
		history = append(history, res)
	}

	return history, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
