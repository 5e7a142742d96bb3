package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfable/oracle/internal/domain"
	"github.com/quantfable/oracle/internal/service"
)

type stubCache struct {
	timeline domain.Timeline
}

func (s *stubCache) Set(context.Context, domain.Timeline) error { return nil }

func (s *stubCache) Get(context.Context) (domain.Timeline, error) {
	if s.timeline == nil {
		return nil, domain.ErrNotFound
	}
	return s.timeline, nil
}

type stubEventStore struct {
	all domain.Timeline
}

func (s *stubEventStore) UpsertBatch(context.Context, []domain.StoredEvent) error { return nil }

func (s *stubEventStore) ListByYear(_ context.Context, year string) ([]domain.PredictionEvent, error) {
	return s.all[year], nil
}

func (s *stubEventStore) ListAll(context.Context) (domain.Timeline, error) {
	if s.all == nil {
		return domain.Timeline{}, nil
	}
	return s.all, nil
}

type stubRunStore struct {
	runs []domain.PipelineRun
}

func (s *stubRunStore) Insert(context.Context, domain.PipelineRun) error { return nil }

func (s *stubRunStore) ListRecent(context.Context, int) ([]domain.PipelineRun, error) {
	return s.runs, nil
}

func newTestMux(timeline domain.Timeline, runs []domain.PipelineRun) *http.ServeMux {
	logger := slog.New(slog.DiscardHandler)
	svc := service.NewTimelineService(
		&stubCache{timeline: timeline},
		&stubEventStore{all: timeline},
		&stubRunStore{runs: runs},
		logger,
	)
	h := NewTimelineHandler(svc, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/timeline", h.GetTimeline)
	mux.HandleFunc("GET /api/timeline/{year}", h.GetYear)
	mux.HandleFunc("GET /api/runs", h.ListRuns)
	return mux
}

func get(t *testing.T, mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestGetTimeline(t *testing.T) {
	timeline := domain.Timeline{
		"2027": {{Event: "Will Bitcoin reach $100,000 by 2027?", Probability: 0.73}},
	}
	rec := get(t, newTestMux(timeline, nil), "/api/timeline")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var got domain.Timeline
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got["2027"], 1)
}

func TestGetYear(t *testing.T) {
	timeline := domain.Timeline{
		"2027": {{Event: "Will Bitcoin reach $100,000 by 2027?", Probability: 0.73}},
	}
	mux := newTestMux(timeline, nil)

	rec := get(t, mux, "/api/timeline/2027")
	require.Equal(t, http.StatusOK, rec.Code)

	var events []domain.PredictionEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, 0.73, events[0].Probability)
}

func TestGetYearNotFound(t *testing.T) {
	timeline := domain.Timeline{
		"2027": {{Event: "Will Bitcoin reach $100,000 by 2027?", Probability: 0.73}},
	}
	rec := get(t, newTestMux(timeline, nil), "/api/timeline/2035")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetYearRejectsMalformedYear(t *testing.T) {
	rec := get(t, newTestMux(nil, nil), "/api/timeline/soon")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRuns(t *testing.T) {
	runs := []domain.PipelineRun{{ID: "run-1", Fetched: 500}}
	rec := get(t, newTestMux(nil, runs), "/api/runs")

	require.Equal(t, http.StatusOK, rec.Code)

	var got []domain.PipelineRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "run-1", got[0].ID)
}

func TestListRunsEmptyIsArray(t *testing.T) {
	rec := get(t, newTestMux(nil, nil), "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())
}
