package handler

import (
	"log/slog"
	"net/http"

	"github.com/quantfable/oracle/internal/service"
)

// NarrativeHandler serves the latest generated narrative.
type NarrativeHandler struct {
	holder *service.NarrativeHolder
	logger *slog.Logger
}

// NewNarrativeHandler creates a NarrativeHandler.
func NewNarrativeHandler(holder *service.NarrativeHolder, logger *slog.Logger) *NarrativeHandler {
	return &NarrativeHandler{
		holder: holder,
		logger: logger.With(slog.String("handler", "narrative")),
	}
}

// GetNarrative returns the most recently generated narrative.
// GET /api/narrative
func (h *NarrativeHandler) GetNarrative(w http.ResponseWriter, r *http.Request) {
	n, ok := h.holder.Get()
	if !ok {
		writeError(w, http.StatusNotFound, "no narrative generated yet")
		return
	}
	writeJSON(w, http.StatusOK, n)
}
