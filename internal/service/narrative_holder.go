package service

import (
	"sync"

	"github.com/quantfable/oracle/internal/domain"
)

// NarrativeHolder keeps the most recent narrative in memory for API reads.
// The pipeline replaces it after each successful generation; the holder is
// empty until the first run completes.
type NarrativeHolder struct {
	mu        sync.RWMutex
	narrative domain.Narrative
	set       bool
}

// NewNarrativeHolder creates an empty holder.
func NewNarrativeHolder() *NarrativeHolder {
	return &NarrativeHolder{}
}

// Set replaces the held narrative.
func (h *NarrativeHolder) Set(n domain.Narrative) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.narrative = n
	h.set = true
}

// Get returns the held narrative and whether one has been set.
func (h *NarrativeHolder) Get() (domain.Narrative, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.narrative, h.set
}
