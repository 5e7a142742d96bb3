package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/quantfable/oracle/internal/domain"
	"github.com/quantfable/oracle/internal/service"
)

var yearRe = regexp.MustCompile(`^20\d{2}$`)

// TimelineHandler serves timeline read endpoints.
type TimelineHandler struct {
	timelines *service.TimelineService
	logger    *slog.Logger
}

// NewTimelineHandler creates a TimelineHandler.
func NewTimelineHandler(timelines *service.TimelineService, logger *slog.Logger) *TimelineHandler {
	return &TimelineHandler{
		timelines: timelines,
		logger:    logger.With(slog.String("handler", "timeline")),
	}
}

// GetTimeline returns the full year-keyed timeline.
// GET /api/timeline
func (h *TimelineHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	t, err := h.timelines.GetTimeline(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "get timeline failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load timeline")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// GetYear returns the events for a single year.
// GET /api/timeline/{year}
func (h *TimelineHandler) GetYear(w http.ResponseWriter, r *http.Request) {
	year := r.PathValue("year")
	if !yearRe.MatchString(year) {
		writeError(w, http.StatusBadRequest, "year must be a 4-digit year")
		return
	}

	events, err := h.timelines.GetYear(r.Context(), year)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no events for year "+year)
			return
		}
		h.logger.ErrorContext(r.Context(), "get year failed",
			slog.String("year", year),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load year")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// ListRuns returns recent pipeline runs.
// GET /api/runs
func (h *TimelineHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	if limit > 100 {
		limit = 100
	}

	runs, err := h.timelines.RecentRuns(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list runs failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load runs")
		return
	}
	if runs == nil {
		runs = []domain.PipelineRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}
