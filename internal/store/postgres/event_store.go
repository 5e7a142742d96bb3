package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfable/oracle/internal/domain"
)

// EventStore implements domain.EventStore using PostgreSQL.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new EventStore backed by the given connection pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

const upsertEventQuery = `
	INSERT INTO prediction_events (
		market_id, slug, year, event, probability,
		category, confidence, source, ticker,
		price_target, timeframe, signal, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9,
		$10, $11, $12, NOW(), NOW()
	)
	ON CONFLICT (market_id) DO UPDATE SET
		slug         = EXCLUDED.slug,
		year         = EXCLUDED.year,
		event        = EXCLUDED.event,
		probability  = EXCLUDED.probability,
		category     = EXCLUDED.category,
		confidence   = EXCLUDED.confidence,
		source       = EXCLUDED.source,
		ticker       = EXCLUDED.ticker,
		price_target = EXCLUDED.price_target,
		timeframe    = EXCLUDED.timeframe,
		signal       = EXCLUDED.signal,
		updated_at   = NOW()`

// UpsertBatch inserts or updates multiple events in a single batch operation.
// Re-running the pipeline over the same markets converges to one row per
// market instead of accumulating duplicates.
func (s *EventStore) UpsertBatch(ctx context.Context, events []domain.StoredEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(upsertEventQuery,
			e.MarketID, e.Slug, e.Year,
			e.Event.Event, e.Event.Probability,
			string(e.Event.Category), string(e.Event.Confidence), e.Event.Source,
			e.Event.Ticker, e.Event.PriceTarget, e.Event.Timeframe,
			string(e.Event.Signal),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range events {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert event batch item %d: %w", i, err)
		}
	}
	return nil
}

const eventCols = `event, probability, category, confidence, source,
	ticker, price_target, timeframe, signal`

// scanEvent scans a single prediction event row.
func scanEvent(row pgx.Row) (domain.PredictionEvent, error) {
	var ev domain.PredictionEvent
	var category, confidence, signal string
	err := row.Scan(
		&ev.Event, &ev.Probability, &category, &confidence, &ev.Source,
		&ev.Ticker, &ev.PriceTarget, &ev.Timeframe, &signal,
	)
	if err != nil {
		return domain.PredictionEvent{}, err
	}
	ev.Category = domain.Category(category)
	ev.Confidence = domain.Confidence(confidence)
	ev.Signal = domain.Signal(signal)
	return ev, nil
}

// ListByYear returns the events stored for a year ordered by descending
// probability.
func (s *EventStore) ListByYear(ctx context.Context, year string) ([]domain.PredictionEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+eventCols+`
		 FROM prediction_events
		 WHERE year = $1
		 ORDER BY probability DESC, market_id`, year)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events for %s: %w", year, err)
	}
	defer rows.Close()

	var events []domain.PredictionEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list events for %s: %w", year, err)
	}
	return events, nil
}

// ListAll returns every stored event grouped into a Timeline, each year
// bucket ordered by descending probability.
func (s *EventStore) ListAll(ctx context.Context) (domain.Timeline, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT year, `+eventCols+`
		 FROM prediction_events
		 ORDER BY year, probability DESC, market_id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list all events: %w", err)
	}
	defer rows.Close()

	timeline := domain.Timeline{}
	for rows.Next() {
		var year string
		var ev domain.PredictionEvent
		var category, confidence, signal string
		err := rows.Scan(
			&year,
			&ev.Event, &ev.Probability, &category, &confidence, &ev.Source,
			&ev.Ticker, &ev.PriceTarget, &ev.Timeframe, &signal,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		ev.Category = domain.Category(category)
		ev.Confidence = domain.Confidence(confidence)
		ev.Signal = domain.Signal(signal)
		timeline[year] = append(timeline[year], ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list all events: %w", err)
	}
	return timeline, nil
}
