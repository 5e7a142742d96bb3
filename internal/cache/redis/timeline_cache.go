package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantfable/oracle/internal/domain"
)

// timelineKey holds the latest full timeline snapshot as one JSON blob. The
// API reads it on every /api/timeline request, so a single GET beats
// reassembling the timeline from per-year keys.
const timelineKey = "oracle:timeline"

// TimelineCache implements domain.TimelineCache using a single Redis string
// key with a TTL.
type TimelineCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTimelineCache creates a TimelineCache backed by the given Client. A
// non-positive ttl defaults to one hour, slightly longer than the default
// pipeline interval so a healthy pipeline always refreshes before expiry.
func NewTimelineCache(c *Client, ttl time.Duration) *TimelineCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TimelineCache{rdb: c.Underlying(), ttl: ttl}
}

// Set stores the timeline snapshot, replacing any previous one.
func (tc *TimelineCache) Set(ctx context.Context, t domain.Timeline) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("redis: marshal timeline: %w", err)
	}
	if err := tc.rdb.Set(ctx, timelineKey, data, tc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set timeline: %w", err)
	}
	return nil
}

// Get retrieves the cached timeline snapshot.
// It returns domain.ErrNotFound when no snapshot is cached.
func (tc *TimelineCache) Get(ctx context.Context) (domain.Timeline, error) {
	data, err := tc.rdb.Get(ctx, timelineKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get timeline: %w", err)
	}

	var t domain.Timeline
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("redis: unmarshal timeline: %w", err)
	}
	return t, nil
}

// Compile-time interface check.
var _ domain.TimelineCache = (*TimelineCache)(nil)
