// Package service contains the read-side application services behind the
// HTTP handlers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quantfable/oracle/internal/domain"
)

// TimelineService serves timeline reads, checking the cache first and
// falling back to the persistent store on a miss.
type TimelineService struct {
	cache  domain.TimelineCache
	events domain.EventStore
	runs   domain.RunStore
	logger *slog.Logger
}

// NewTimelineService creates a TimelineService with all required dependencies.
func NewTimelineService(
	cache domain.TimelineCache,
	events domain.EventStore,
	runs domain.RunStore,
	logger *slog.Logger,
) *TimelineService {
	return &TimelineService{
		cache:  cache,
		events: events,
		runs:   runs,
		logger: logger.With(slog.String("component", "timeline_service")),
	}
}

// GetTimeline returns the full timeline. Cache misses fall through to the
// store, and the cache is back-filled so the next read is fast again.
func (s *TimelineService) GetTimeline(ctx context.Context) (domain.Timeline, error) {
	t, err := s.cache.Get(ctx)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "cache read failed",
			slog.String("error", err.Error()),
		)
	}

	t, err = s.events.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("timeline_service: list all: %w", err)
	}

	if cacheErr := s.cache.Set(ctx, t); cacheErr != nil {
		s.logger.WarnContext(ctx, "cache back-fill failed",
			slog.String("error", cacheErr.Error()),
		)
	}
	return t, nil
}

// GetYear returns the events for one year, ordered by descending
// probability. It returns domain.ErrNotFound when the year has no events.
func (s *TimelineService) GetYear(ctx context.Context, year string) ([]domain.PredictionEvent, error) {
	if t, err := s.cache.Get(ctx); err == nil {
		if events, ok := t[year]; ok && len(events) > 0 {
			return events, nil
		}
		// The cached snapshot is authoritative for the last run; a missing
		// year means no events rather than a stale cache.
		return nil, domain.ErrNotFound
	}

	events, err := s.events.ListByYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("timeline_service: list year %s: %w", year, err)
	}
	if len(events) == 0 {
		return nil, domain.ErrNotFound
	}
	return events, nil
}

// RecentRuns returns up to limit pipeline runs, most recent first.
func (s *TimelineService) RecentRuns(ctx context.Context, limit int) ([]domain.PipelineRun, error) {
	runs, err := s.runs.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("timeline_service: list runs: %w", err)
	}
	return runs, nil
}
