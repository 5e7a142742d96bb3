package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfable/oracle/internal/domain"
	"github.com/quantfable/oracle/internal/platform/polymarket"
)

type fakeSource struct {
	markets []polymarket.APIMarket
	diag    polymarket.FetchDiag
}

func (f *fakeSource) FetchActiveMarkets(context.Context, int) ([]polymarket.APIMarket, polymarket.FetchDiag) {
	return f.markets, f.diag
}

type fakeEventStore struct {
	upserted []domain.StoredEvent
	err      error
}

func (f *fakeEventStore) UpsertBatch(_ context.Context, events []domain.StoredEvent) error {
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, events...)
	return nil
}

func (f *fakeEventStore) ListByYear(context.Context, string) ([]domain.PredictionEvent, error) {
	return nil, nil
}

func (f *fakeEventStore) ListAll(context.Context) (domain.Timeline, error) {
	return domain.Timeline{}, nil
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

type fakeCache struct {
	timeline domain.Timeline
	sets     int
}

func (f *fakeCache) Set(_ context.Context, t domain.Timeline) error {
	f.timeline = t
	f.sets++
	return nil
}

func (f *fakeCache) Get(context.Context) (domain.Timeline, error) {
	if f.timeline == nil {
		return nil, domain.ErrNotFound
	}
	return f.timeline, nil
}

type fakeLocks struct {
	held    bool
	unlocks int
}

func (f *fakeLocks) Acquire(context.Context, string, time.Duration) (func(), error) {
	if f.held {
		return nil, domain.ErrLockHeld
	}
	return func() { f.unlocks++ }, nil
}

type fakeArtifacts struct {
	written map[string]any
}

func (f *fakeArtifacts) WriteJSON(name string, v any) error {
	if f.written == nil {
		f.written = map[string]any{}
	}
	f.written[name] = v
	return nil
}

type fakeAnalyzer struct {
	narrative domain.Narrative
	err       error
	calls     int
}

func (f *fakeAnalyzer) Generate(context.Context, domain.Timeline) (domain.Narrative, error) {
	f.calls++
	return f.narrative, f.err
}

type fakeNotifier struct {
	runs []domain.PipelineRun
}

func (f *fakeNotifier) NotifyRun(_ context.Context, run domain.PipelineRun) error {
	f.runs = append(f.runs, run)
	return nil
}

type fakeHub struct {
	runs      []domain.PipelineRun
	timelines []domain.Timeline
}

func (f *fakeHub) BroadcastRun(run domain.PipelineRun)       { f.runs = append(f.runs, run) }
func (f *fakeHub) BroadcastTimeline(t domain.Timeline)       { f.timelines = append(f.timelines, t) }

func testMarket(question string, volume string) polymarket.APIMarket {
	return polymarket.APIMarket{
		ID:            "mkt-" + question[:8],
		Question:      question,
		Slug:          "slug",
		Outcomes:      polymarket.ParsedStringList("Yes", "No"),
		OutcomePrices: polymarket.ParsedStringList("0.73", "0.27"),
		Volume:        volume,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRunHappyPath(t *testing.T) {
	source := &fakeSource{
		markets: []polymarket.APIMarket{
			testMarket("Will Bitcoin reach $100,000 by 2027?", "123456"),
			testMarket("Will it rain tomorrow?", "50000"), // no year, off topic
		},
		diag: polymarket.FetchDiag{Pages: 1, StopReason: "end_of_data"},
	}
	events := &fakeEventStore{}
	runs := &fakeRunStore{}
	cache := &fakeCache{}
	locks := &fakeLocks{}
	artifacts := &fakeArtifacts{}
	analyzer := &fakeAnalyzer{narrative: domain.Narrative{Chapters: []domain.Chapter{
		{Year: "2027", Title: "T", Story: "S"},
	}}}
	notifier := &fakeNotifier{}
	hub := &fakeHub{}

	o := NewOrchestrator(Deps{
		Source:    source,
		Events:    events,
		Runs:      runs,
		Cache:     cache,
		Locks:     locks,
		Artifacts: artifacts,
		Analyzer:  analyzer,
		Publisher: nil,
		Notifier:  notifier,
		Hub:       hub,
	}, 500, time.Minute, testLogger())

	run, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 2, run.Fetched)
	assert.Equal(t, 1, run.Stats.Accepted)
	assert.Equal(t, 1, run.Stats.NoYearOrOffTopic)
	assert.Equal(t, 1, run.Years)
	assert.Equal(t, "end_of_data", run.StopReason)
	assert.True(t, run.NarrativeOK)

	// The accepted event was persisted with its market identity.
	require.Len(t, events.upserted, 1)
	assert.Equal(t, "2027", events.upserted[0].Year)

	// Cache and artifacts were refreshed.
	assert.Equal(t, 1, cache.sets)
	assert.Contains(t, artifacts.written, "timeline.json")
	assert.Contains(t, artifacts.written, "narrative.json")

	// The run record was stored and announced.
	require.Len(t, runs.runs, 1)
	assert.Len(t, notifier.runs, 1)
	assert.Len(t, hub.runs, 1)
	assert.Len(t, hub.timelines, 1)

	// The lock was released.
	assert.Equal(t, 1, locks.unlocks)
}

func TestRunSkipsWhenLockHeld(t *testing.T) {
	source := &fakeSource{}
	o := NewOrchestrator(Deps{
		Source:    source,
		Events:    &fakeEventStore{},
		Runs:      &fakeRunStore{},
		Cache:     &fakeCache{},
		Locks:     &fakeLocks{held: true},
		Artifacts: &fakeArtifacts{},
	}, 500, time.Minute, testLogger())

	_, err := o.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrLockHeld)
}

func TestRunFailsOnStoreError(t *testing.T) {
	source := &fakeSource{
		markets: []polymarket.APIMarket{
			testMarket("Will Bitcoin reach $100,000 by 2027?", "123456"),
		},
		diag: polymarket.FetchDiag{Pages: 1, StopReason: "end_of_data"},
	}
	locks := &fakeLocks{}
	o := NewOrchestrator(Deps{
		Source:    source,
		Events:    &fakeEventStore{err: errors.New("pg down")},
		Runs:      &fakeRunStore{},
		Cache:     &fakeCache{},
		Locks:     locks,
		Artifacts: &fakeArtifacts{},
	}, 500, time.Minute, testLogger())

	_, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist events")

	// The lock is still released on failure.
	assert.Equal(t, 1, locks.unlocks)
}

func TestRunSkipsNarrativeOnEmptyTimeline(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	o := NewOrchestrator(Deps{
		Source:    &fakeSource{diag: polymarket.FetchDiag{StopReason: "end_of_data"}},
		Events:    &fakeEventStore{},
		Runs:      &fakeRunStore{},
		Cache:     &fakeCache{},
		Locks:     &fakeLocks{},
		Artifacts: &fakeArtifacts{},
		Analyzer:  analyzer,
	}, 500, time.Minute, testLogger())

	run, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, run.NarrativeOK)
	assert.Zero(t, analyzer.calls)
}

func TestRunDegradesWhenNarrativeFails(t *testing.T) {
	source := &fakeSource{
		markets: []polymarket.APIMarket{
			testMarket("Will Bitcoin reach $100,000 by 2027?", "123456"),
		},
		diag: polymarket.FetchDiag{Pages: 1, StopReason: "end_of_data"},
	}
	artifacts := &fakeArtifacts{}
	o := NewOrchestrator(Deps{
		Source:    source,
		Events:    &fakeEventStore{},
		Runs:      &fakeRunStore{},
		Cache:     &fakeCache{},
		Locks:     &fakeLocks{},
		Artifacts: artifacts,
		Analyzer:  &fakeAnalyzer{err: errors.New("api timeout")},
	}, 500, time.Minute, testLogger())

	run, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, run.NarrativeOK)
	assert.Contains(t, artifacts.written, "timeline.json")
	assert.NotContains(t, artifacts.written, "narrative.json")
}
