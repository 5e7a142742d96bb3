package domain

import (
	"context"
	"io"
	"time"
)

// EventStore persists normalized prediction events.
type EventStore interface {
	// UpsertBatch stores events from one run, keyed by source market ID.
	UpsertBatch(ctx context.Context, events []StoredEvent) error
	// ListByYear returns events for a year ordered by descending probability.
	ListByYear(ctx context.Context, year string) ([]PredictionEvent, error)
	// ListAll returns every stored event grouped into a Timeline.
	ListAll(ctx context.Context) (Timeline, error)
}

// StoredEvent pairs a PredictionEvent with its source market identity for
// persistence. The market ID is the upsert key.
type StoredEvent struct {
	MarketID string
	Slug     string
	Year     string
	Event    PredictionEvent
}

// RunStore persists pipeline run history.
type RunStore interface {
	Insert(ctx context.Context, run PipelineRun) error
	ListRecent(ctx context.Context, limit int) ([]PipelineRun, error)
}

// TimelineCache holds the latest timeline snapshot for fast API reads.
type TimelineCache interface {
	Set(ctx context.Context, t Timeline) error
	// Get returns ErrNotFound when no snapshot is cached.
	Get(ctx context.Context) (Timeline, error)
}

// LockManager provides distributed locking so overlapping pipeline runs do
// not double-fetch the external API.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// BlobWriter uploads artifacts to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
