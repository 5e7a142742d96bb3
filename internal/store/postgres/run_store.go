package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfable/oracle/internal/domain"
)

// RunStore implements domain.RunStore using PostgreSQL.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a new RunStore backed by the given connection pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Insert records one completed pipeline run.
func (s *RunStore) Insert(ctx context.Context, run domain.PipelineRun) error {
	const query = `
		INSERT INTO pipeline_runs (
			id, started_at, finished_at, fetched,
			accepted, no_question, low_volume, no_year_or_offtopic,
			no_prices, invalid_probability, years, stop_reason, narrative_ok
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12, $13
		)`

	_, err := s.pool.Exec(ctx, query,
		run.ID, run.StartedAt, run.FinishedAt, run.Fetched,
		run.Stats.Accepted, run.Stats.NoQuestion, run.Stats.LowVolume,
		run.Stats.NoYearOrOffTopic, run.Stats.NoPrices, run.Stats.InvalidProbability,
		run.Years, run.StopReason, run.NarrativeOK,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert run %s: %w", run.ID, err)
	}
	return nil
}

// ListRecent returns up to limit runs, most recent first.
func (s *RunStore) ListRecent(ctx context.Context, limit int) ([]domain.PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, started_at, finished_at, fetched,
			accepted, no_question, low_volume, no_year_or_offtopic,
			no_prices, invalid_probability, years, stop_reason, narrative_ok
		 FROM pipeline_runs
		 ORDER BY started_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.PipelineRun
	for rows.Next() {
		var run domain.PipelineRun
		err := rows.Scan(
			&run.ID, &run.StartedAt, &run.FinishedAt, &run.Fetched,
			&run.Stats.Accepted, &run.Stats.NoQuestion, &run.Stats.LowVolume,
			&run.Stats.NoYearOrOffTopic, &run.Stats.NoPrices, &run.Stats.InvalidProbability,
			&run.Years, &run.StopReason, &run.NarrativeOK,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list recent runs: %w", err)
	}
	return runs, nil
}
