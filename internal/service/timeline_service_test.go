package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfable/oracle/internal/domain"
)

type fakeCache struct {
	timeline domain.Timeline
	getErr   error
	sets     int
}

func (f *fakeCache) Set(_ context.Context, t domain.Timeline) error {
	f.timeline = t
	f.sets++
	return nil
}

func (f *fakeCache) Get(context.Context) (domain.Timeline, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.timeline == nil {
		return nil, domain.ErrNotFound
	}
	return f.timeline, nil
}

type fakeEventStore struct {
	all    domain.Timeline
	byYear map[string][]domain.PredictionEvent
	err    error
}

func (f *fakeEventStore) UpsertBatch(context.Context, []domain.StoredEvent) error { return nil }

func (f *fakeEventStore) ListByYear(_ context.Context, year string) ([]domain.PredictionEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byYear[year], nil
}

func (f *fakeEventStore) ListAll(context.Context) (domain.Timeline, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.all, nil
}

type fakeRunStore struct {
	runs []domain.PipelineRun
}

func (f *fakeRunStore) Insert(_ context.Context, run domain.PipelineRun) error {
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeRunStore) ListRecent(context.Context, int) ([]domain.PipelineRun, error) {
	return f.runs, nil
}

func testTimeline() domain.Timeline {
	return domain.Timeline{
		"2027": {{Event: "Will Bitcoin reach $100,000 by 2027?", Probability: 0.73}},
	}
}

func newService(cache *fakeCache, events *fakeEventStore) *TimelineService {
	return NewTimelineService(cache, events, &fakeRunStore{}, slog.New(slog.DiscardHandler))
}

func TestGetTimelineCacheHit(t *testing.T) {
	cache := &fakeCache{timeline: testTimeline()}
	events := &fakeEventStore{all: domain.Timeline{}}
	svc := newService(cache, events)

	got, err := svc.GetTimeline(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testTimeline(), got)
	assert.Zero(t, cache.sets)
}

func TestGetTimelineFallsBackToStore(t *testing.T) {
	cache := &fakeCache{}
	events := &fakeEventStore{all: testTimeline()}
	svc := newService(cache, events)

	got, err := svc.GetTimeline(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testTimeline(), got)

	// The cache was back-filled.
	assert.Equal(t, 1, cache.sets)
}

func TestGetTimelineCacheErrorStillServes(t *testing.T) {
	cache := &fakeCache{getErr: errors.New("redis down")}
	events := &fakeEventStore{all: testTimeline()}
	svc := newService(cache, events)

	got, err := svc.GetTimeline(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testTimeline(), got)
}

func TestGetYearFromCachedSnapshot(t *testing.T) {
	cache := &fakeCache{timeline: testTimeline()}
	svc := newService(cache, &fakeEventStore{})

	events, err := svc.GetYear(context.Background(), "2027")
	require.NoError(t, err)
	assert.Len(t, events, 1)

	// A year absent from the cached snapshot is not found, not a fallthrough.
	_, err = svc.GetYear(context.Background(), "2030")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetYearStoreFallback(t *testing.T) {
	cache := &fakeCache{}
	events := &fakeEventStore{byYear: map[string][]domain.PredictionEvent{
		"2028": {{Event: "Will the S&P 500 double by 2028?", Probability: 0.12}},
	}}
	svc := newService(cache, events)

	got, err := svc.GetYear(context.Background(), "2028")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = svc.GetYear(context.Background(), "2031")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
